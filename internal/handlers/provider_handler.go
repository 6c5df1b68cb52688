package handlers

import (
	"tutorfinder/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProviderHandler handles HTTP requests related to providers.
type ProviderHandler struct {
	providerService *services.ProviderService
	recorder        Recorder
}

// NewProviderHandler creates a new ProviderHandler. recorder may be nil.
func NewProviderHandler(providerService *services.ProviderService, recorder Recorder) *ProviderHandler {
	return &ProviderHandler{
		providerService: providerService,
		recorder:        recorder,
	}
}

// RegisterRoutes registers the provider routes with the Fiber app.
func (h *ProviderHandler) RegisterRoutes(router fiber.Router) {
	providers := router.Group("/providers")
	providers.Get("/", h.GetAllProviders)
	providers.Get("/:id", h.GetProviderByID)
	providers.Post("/", h.CreateProvider)
	providers.Put("/", h.UpdateProvider)
	providers.Delete("/", h.DeleteProvider)
}

// GetAllProviders handles fetching all providers with their reviews.
func (h *ProviderHandler) GetAllProviders(c *fiber.Ctx) error {
	providers, err := h.providerService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(providers)
}

// GetProviderByID handles fetching a single provider.
func (h *ProviderHandler) GetProviderByID(c *fiber.Ctx) error {
	provider, err := h.providerService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(provider)
}

// CreateProvider handles creating a new provider.
func (h *ProviderHandler) CreateProvider(c *fiber.Ctx) error {
	var input services.ProviderInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	provider, err := h.providerService.Create(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(provider)
}

// UpdateProvider handles updating an existing provider. The image is only
// replaced when the body carries a non-empty one.
func (h *ProviderHandler) UpdateProvider(c *fiber.Ctx) error {
	var input services.ProviderInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.providerService.Update(c.UserContext(), input); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeleteRequest is the body of the delete endpoints.
type DeleteRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// DeleteProvider removes a provider and its reviews.
func (h *ProviderHandler) DeleteProvider(c *fiber.Ctx) error {
	var req DeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.providerService.Delete(c.UserContext(), req.ID); err != nil {
		return respondError(c, err)
	}
	if h.recorder != nil {
		h.recorder.RecordDeleted(services.RecordProviders)
	}
	return c.JSON(fiber.Map{"success": true})
}
