package v1

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"tasksync/internal/api/v1/handlers"
	"tasksync/internal/middleware"
	"tasksync/internal/upload"
)

// bodyLimit memberi ruang untuk gambar maksimum plus overhead multipart.
const bodyLimit = upload.MaxImageSize + 1<<20

// errorHandler mengubah error yang lolos dari handler (mis. 404 route atau
// body terlalu besar) ke envelope yang sama dengan handler.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{
		"message": message,
		"error":   message,
		"success": false,
		"status":  code,
	})
}

// NewApp membuat aplikasi fiber lengkap dengan middleware dan route.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	RegisterRoutes(app)
	return app
}

func RegisterRoutes(app *fiber.App) {
	// File hasil upload dilayani di root agar URL publik tetap pendek
	app.Get("/uploads/:filename", handlers.ServeImage)

	api := app.Group("/api/v1")

	// Auth
	api.Post("/auth/login", handlers.Login)
	api.Post("/auth/register", handlers.Register)

	// Todo
	todoRoutes := api.Group("/todos", middleware.UseToken)
	todoRoutes.Get("/", handlers.GetTodos)
	todoRoutes.Post("/", handlers.CreateTodo)
	todoRoutes.Patch("/:id", handlers.UpdateTodo)
	todoRoutes.Delete("/:id", handlers.DeleteTodo)

	// Image upload
	api.Post("/images", middleware.UseToken, handlers.UploadImage)

	// User
	userRoutes := api.Group("/users", middleware.UseToken)
	userRoutes.Get("/", handlers.GetUsers)
	userRoutes.Post("/promotion", handlers.RequestPromotion)
	userRoutes.Patch("/:id/role", handlers.SetUserRole)
}
