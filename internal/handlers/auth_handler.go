package handlers

import (
	"tutorfinder/internal/models"
	"tutorfinder/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Auth actions accepted by POST /auth.
const (
	ActionRegister      = "register"
	ActionLogin         = "login"
	ActionResetPassword = "reset-password"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/auth", h.HandleAuth)
}

// AuthRequest represents the request body of POST /auth.
type AuthRequest struct {
	Action   string      `json:"action"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

func toUserResponse(user *models.User) UserResponse {
	return UserResponse{ID: user.ID, Username: user.Username, Role: user.Role}
}

// HandleAuth dispatches on the action field.
func (h *AuthHandler) HandleAuth(c *fiber.Ctx) error {
	var req AuthRequest
	if err := c.BodyParser(&req); err != nil {
		logrus.WithError(err).Debug("error parsing auth request body")
		return badRequest(c, "Invalid request body")
	}

	creds := services.Credentials{Username: req.Username, Password: req.Password, Role: req.Role}
	switch req.Action {
	case ActionRegister:
		return h.handleRegister(c, creds)
	case ActionLogin:
		return h.handleLogin(c, creds)
	case ActionResetPassword:
		return h.handleResetPassword(c, creds)
	default:
		return badRequest(c, "Invalid action")
	}
}

func (h *AuthHandler) handleRegister(c *fiber.Ctx, creds services.Credentials) error {
	user, err := h.authService.Register(c.UserContext(), creds)
	if err != nil {
		return respondError(c, err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
}

func (h *AuthHandler) handleLogin(c *fiber.Ctx, creds services.Credentials) error {
	user, err := h.authService.Login(c.UserContext(), creds.Username, creds.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toUserResponse(user))
}

func (h *AuthHandler) handleResetPassword(c *fiber.Ctx, creds services.Credentials) error {
	if err := h.authService.ResetPassword(c.UserContext(), creds.Username, creds.Password); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
