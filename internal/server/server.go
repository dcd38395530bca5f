package server

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"userhub/internal/config"
	"userhub/internal/handlers"
	"userhub/internal/middleware"
	"userhub/internal/repositories"
	"userhub/internal/services"
)

// Server bundles the HTTP app with the services behind it.
type Server struct {
	App   *fiber.App
	Users *services.UserService
	Auth  *services.AuthService
}

// New wires services, handlers and middleware around repo. publisher may be nil.
func New(cfg config.Config, repo repositories.UserRepository, publisher services.EventPublisher) *Server {
	userService := services.NewUserService(repo, publisher, cfg.BcryptCost)
	authService := services.NewAuthService(repo, services.TokenConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
	})

	userHandler := handlers.NewUserHandler(userService)
	authHandler := handlers.NewAuthHandler(authService, userService)

	app := fiber.New(fiber.Config{
		AppName:      "userhub",
		ErrorHandler: errorHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	requireAuth := middleware.AuthRequired(authService)

	// Public routes plus /auth/me
	authHandler.RegisterRoutes(app, requireAuth)

	// Protected routes
	protected := app.Group("", requireAuth)
	userHandler.RegisterRoutes(protected)

	return &Server{
		App:   app,
		Users: userService,
		Auth:  authService,
	}
}

// errorHandler renders errors that escape handlers, such as unknown routes,
// with the same {message} body the handlers use.
func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
	}
	log.Printf("Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Internal server error",
	})
}
