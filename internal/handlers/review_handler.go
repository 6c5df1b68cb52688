package handlers

import (
	"tutorfinder/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ReviewHandler handles review submission.
type ReviewHandler struct {
	reviewService *services.ReviewService
	recorder      Recorder
}

// NewReviewHandler creates a new ReviewHandler. recorder may be nil.
func NewReviewHandler(reviewService *services.ReviewService, recorder Recorder) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		recorder:      recorder,
	}
}

// RegisterRoutes registers the review routes with the Fiber app.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/reviews", h.SubmitReview)
	router.Get("/providers/:id/reviews", h.GetReviews)
}

// SubmitReview stores a review and answers with the provider's new rating.
func (h *ReviewHandler) SubmitReview(c *fiber.Ctx) error {
	var input services.ReviewInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	rating, err := h.reviewService.SubmitReview(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	if h.recorder != nil {
		h.recorder.ReviewSubmitted()
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"newRating": rating,
	})
}

// GetReviews lists the reviews of one provider.
func (h *ReviewHandler) GetReviews(c *fiber.Ctx) error {
	reviews, err := h.reviewService.Reviews(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reviews)
}
