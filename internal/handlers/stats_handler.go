package handlers

import (
	"tutorfinder/internal/services"

	"github.com/gofiber/fiber/v2"
)

// StatsHandler serves the admin dashboard: counts, record lists and deletes.
type StatsHandler struct {
	adminService *services.AdminService
	recorder     Recorder
}

// NewStatsHandler creates a new StatsHandler. recorder may be nil.
func NewStatsHandler(adminService *services.AdminService, recorder Recorder) *StatsHandler {
	return &StatsHandler{
		adminService: adminService,
		recorder:     recorder,
	}
}

// RegisterRoutes registers the stats routes with the Fiber app.
func (h *StatsHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/stats", h.GetStats)
	router.Delete("/stats", h.DeleteRecord)
}

// GetStats returns the user list, the provider list or, for any other type, the counts.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	switch c.Query("type") {
	case services.RecordUsers:
		users, err := h.adminService.ListUsers(ctx)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(users)
	case services.RecordProviders:
		providers, err := h.adminService.ListProviders(ctx)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(providers)
	default:
		counts, err := h.adminService.Counts(ctx)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(counts)
	}
}

// DeleteRecord deletes a user or a provider named by {type, id}.
func (h *StatsHandler) DeleteRecord(c *fiber.Ctx) error {
	var req DeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.adminService.Delete(c.UserContext(), req.Type, req.ID); err != nil {
		return respondError(c, err)
	}
	if h.recorder != nil {
		h.recorder.RecordDeleted(req.Type)
	}
	return c.JSON(fiber.Map{"success": true})
}
