package handlers

import (
	"log"

	"userhub/internal/models/dto"
	"userhub/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// RegisterRoutes registers the authentication routes. requireAuth guards
// the routes that need a bearer token.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	router.Post("/login", h.HandleLogin)
	router.Post("/register", h.HandleRegister)

	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Get("/me", requireAuth, h.HandleMe)
}

// HandleRegister is the public sign-up endpoint. It has the same semantics
// as creating a user through /users.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	user, err := h.userService.CreateUser(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": user})
}

// HandleLogin checks credentials and issues an access token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}

	resp, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		log.Printf("Login failed: %v", err)
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// HandleMe returns the user the bearer token was issued to.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	id, ok := c.Locals("user_id").(uint)
	if !ok {
		return respondError(c, services.ErrInvalidToken)
	}
	user, err := h.authService.CurrentUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": user})
}
