package handlers

import (
	"userhub/internal/models/dto"
	"userhub/internal/services"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles HTTP requests for user records.
type UserHandler struct {
	service *services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service *services.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// RegisterRoutes registers the user routes with the Fiber app.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleListUsers)
	userRoutes.Post("/", h.HandleCreateUser)
	userRoutes.Get("/:id", h.HandleGetUser)
	userRoutes.Put("/:id", h.HandleUpdateUser)
	userRoutes.Patch("/:id", h.HandleUpdateUser)
	userRoutes.Delete("/:id", h.HandleDeleteUser)
}

// HandleListUsers returns a page of users filtered by the search query.
func (h *UserHandler) HandleListUsers(c *fiber.Ctx) error {
	page, err := h.service.ListUsers(c.UserContext(), c.Query("search"), c.QueryInt("page", 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// HandleGetUser retrieves a single user by its ID.
func (h *UserHandler) HandleGetUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.service.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": user})
}

// HandleCreateUser creates a new user.
func (h *UserHandler) HandleCreateUser(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	user, err := h.service.CreateUser(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": user})
}

// HandleUpdateUser applies a partial update. PUT and PATCH behave the same.
func (h *UserHandler) HandleUpdateUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	user, err := h.service.UpdateUser(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"data": user})
}

// HandleDeleteUser permanently deletes a user.
func (h *UserHandler) HandleDeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.DeleteUser(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Deleted"})
}
