package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/owlrsvp/owlrsvp-backend/internal/admission"
	"github.com/owlrsvp/owlrsvp-backend/internal/config"
	"github.com/owlrsvp/owlrsvp-backend/internal/handler"
	"github.com/owlrsvp/owlrsvp-backend/internal/middleware"
	"github.com/owlrsvp/owlrsvp-backend/internal/repository"
	"github.com/owlrsvp/owlrsvp-backend/internal/service"
	"github.com/owlrsvp/owlrsvp-backend/pkg/database"
	"github.com/owlrsvp/owlrsvp-backend/pkg/email"
	"github.com/owlrsvp/owlrsvp-backend/pkg/logger"
	"github.com/owlrsvp/owlrsvp-backend/pkg/payment"
	"github.com/owlrsvp/owlrsvp-backend/pkg/qrcode"
	"github.com/owlrsvp/owlrsvp-backend/pkg/utils"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg := config.LoadConfig()

	zapLogger := logger.New()
	defer zapLogger.Sync()

	// Database (runs migrations and seeds plans)
	db := database.NewDatabase()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	attendeeRepo := repository.NewAttendeeRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	// External services
	emailService := email.NewEmailService(zapLogger)
	stripeService := payment.NewStripeService(cfg.Stripe.SecretKey)
	qrService := qrcode.NewQRService(cfg.RSVPBaseURL)

	// Services
	authService := service.NewAuthService(userRepo, emailService, zapLogger)
	userService := service.NewUserService(userRepo)
	billingService := service.NewBillingService(stripeService, userRepo, planRepo, subscriptionRepo, zapLogger)
	eventService := service.NewEventService(eventRepo, attendeeRepo, billingService)

	// Admission controller: billingService resolves tiers, stripeService
	// meters overflow usage.
	admissionController := admission.NewController(eventRepo, attendeeRepo, billingService, stripeService, zapLogger)

	validator := utils.NewValidator()

	// Handlers
	authHandler := handler.NewAuthHandler(authService, validator)
	userHandler := handler.NewUserHandler(userService, validator)
	eventHandler := handler.NewEventHandler(eventService, qrService, validator)
	rsvpHandler := handler.NewRSVPHandler(admissionController, eventService, userService, emailService, validator, zapLogger)
	billingHandler := handler.NewBillingHandler(billingService, validator, zapLogger)

	// Router
	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE",
		AllowCredentials: true,
	}))
	app.Use(fiberlogger.New())
	app.Use(limiter.New(limiter.Config{
		Max:        20,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	api := app.Group("/api")

	// Public routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/verify-email", authHandler.VerifyEmail)

	// Public event + RSVP routes
	api.Post("/rsvp/:eventRef", rsvpHandler.SubmitRSVP)
	api.Get("/events/url/:url", eventHandler.GetEventByURL)
	api.Get("/events/url/:url/qrcode", eventHandler.GetEventQRCode)

	// Billing (public pieces)
	api.Get("/billing/plans", billingHandler.GetPlans)
	api.Post("/billing/webhook", billingHandler.HandleStripeWebhook)

	// Protected routes
	api.Use(middleware.AuthMiddleware())
	{
		user := api.Group("/user")
		user.Get("/profile", userHandler.GetMyProfile)
		user.Put("/profile", userHandler.UpdateProfile)
		user.Post("/change-password", userHandler.ChangePassword)

		events := api.Group("/events")
		events.Post("/", eventHandler.CreateEvent)
		events.Get("/", eventHandler.GetUserEvents)
		events.Get("/:id", eventHandler.GetEvent)
		events.Put("/:id", eventHandler.UpdateEvent)
		events.Delete("/:id", eventHandler.DeleteEvent)
		events.Get("/:id/attendees", eventHandler.GetAttendees)
		events.Get("/:id/stats", eventHandler.GetEventStats)
		events.Post("/:id/guest-list", eventHandler.ImportGuestList)

		billing := api.Group("/billing")
		billing.Post("/checkout", billingHandler.CreateCheckoutSession)
	}

	zapLogger.Info("starting server", zap.String("port", cfg.Port))
	log.Fatal(app.Listen(":" + cfg.Port))
}
