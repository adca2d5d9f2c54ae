package routes

import (
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/config"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/handlers"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/metrics"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/middleware"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/pricing"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/realtime"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/services"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

type Dependencies struct {
	Config *config.Config
	DB     repository.TxDB
	Hub    *realtime.Hub
	// Broadcaster defaults to Hub when nil.
	Broadcaster services.Broadcaster
	Metrics     *metrics.Registry
	Logger      *zap.Logger
}

func RegisterRoutes(app *fiber.App, deps Dependencies) error {
	cfg := deps.Config
	db := deps.DB

	engine, err := pricing.NewEngine(cfg.Booking.CommissionRate)
	if err != nil {
		return err
	}
	broadcaster := deps.Broadcaster
	if broadcaster == nil {
		broadcaster = deps.Hub
	}

	userRepo := repository.NewUserRepository(db)
	tutorProfileRepo := repository.NewTutorProfileRepository(db)
	sessionStore := repository.NewSessionStore(db)
	paymentStore := repository.NewPaymentStore(db)

	authService := services.NewAuthService(
		repository.NewAccountStore(db, cfg.Booking.DefaultTutorTimezone),
		cfg.JWTSecret,
		deps.Logger.Named("auth"),
	)
	tutorService := services.NewTutorService(tutorProfileRepo)
	sessionService := services.NewSessionService(
		sessionStore,
		userRepo,
		tutorProfileRepo,
		paymentStore,
		broadcaster,
		cfg.Booking,
		deps.Metrics,
		deps.Logger.Named("sessions"),
	)
	paymentService := services.NewPaymentService(paymentStore, sessionService, engine, services.ManualProcessor{}, deps.Logger.Named("payments"))
	availabilityService := services.NewAvailabilityService(
		repository.NewAvailabilityStore(db),
		sessionStore,
		cfg.Booking,
		deps.Logger.Named("availability"),
	)
	reviewService := services.NewReviewService(repository.NewReviewStore(db), sessionStore, deps.Logger.Named("reviews"))

	authHandler := handlers.NewAuthHandler(authService, tutorService)
	tutorHandler := handlers.NewTutorHandler(tutorService, availabilityService, reviewService)
	sessionHandler := handlers.NewSessionHandler(sessionService, paymentService)
	realtimeHandler := handlers.NewRealtimeHandler(deps.Hub, sessionService, cfg.JWTSecret)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if cfg.EnableMetrics {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	requireAuth := middleware.AuthRequired(cfg.JWTSecret)
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", requireAuth, authHandler.Me)

	api.Use("/v1/ws", realtimeHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(realtimeHandler.HandleWebSocket))

	v1 := api.Group("/v1")

	tutors := v1.Group("/tutors")
	tutors.Get("", tutorHandler.ListTutors)
	tutors.Get("/filter-options", tutorHandler.FilterOptions)
	tutors.Put("/profile", requireAuth, tutorHandler.UpdateProfile)
	tutors.Put("/availability", requireAuth, tutorHandler.ReplaceAvailability)
	tutors.Post("/verify", requireAuth, tutorHandler.VerifyProfile)
	tutors.Get("/me/earnings", requireAuth, sessionHandler.Earnings)
	tutors.Get("/:id", tutorHandler.GetTutor)
	tutors.Get("/:id/slots", tutorHandler.AvailableSlots)
	tutors.Get("/:id/reviews", tutorHandler.TutorReviews)

	sessions := v1.Group("/sessions", requireAuth)
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Post("/:id/confirm", sessionHandler.Confirm)
	sessions.Post("/:id/start-call", sessionHandler.StartCall)
	sessions.Put("/:id/complete", sessionHandler.Complete)
	sessions.Post("/:id/cancel", sessionHandler.Cancel)
	sessions.Post("/:id/pay", sessionHandler.PayForSession)

	v1.Post("/reviews", requireAuth, tutorHandler.SubmitReview)
	v1.Get("/students/me/reviews", requireAuth, tutorHandler.MyReviews)

	return nil
}
