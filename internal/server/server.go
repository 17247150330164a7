// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "bookswap/docs" // swagger docs
	"bookswap/internal/bootstrap"
	"bookswap/internal/cache"
	"bookswap/internal/config"
	"bookswap/internal/featureflags"
	"bookswap/internal/geocoding"
	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/notifications"
	"bookswap/internal/repository"
	"bookswap/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const wsTicketPrefix = "ws_ticket:"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	verifier       *middleware.TokenVerifier
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager

	profileService      *service.ProfileService
	bookService         *service.BookService
	exchangeService     *service.ExchangeService
	notificationService *service.NotificationService
	wishlistService     *service.WishlistService
	historyService      *service.HistoryService
	stallService        *service.StallService
	forumService        *service.ForumService
	chatService         *service.ChatService
	paymentService      *service.PaymentService
	ledger              *service.PointLedger
}

// NewServer connects to the database and redis, builds the integrations and
// returns a fully wired Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{
		ApplySchema:  true,
		SeedDemoData: cfg.SeedDemoData,
	})
	if err != nil {
		return nil, err
	}

	integ, err := bootstrap.InitIntegrations(ctx, cfg, featureflags.NewManager(cfg.FeatureFlags))
	if err != nil {
		return nil, fmt.Errorf("integrations: %w", err)
	}

	return NewServerWithDeps(cfg, db, rdb, integ)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, live push and ws tickets are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, integ *bootstrap.Integrations) (*Server, error) {
	if integ == nil || integ.Objects == nil || integ.Valuer == nil {
		return nil, errors.New("server: object store and valuer are required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.FiberPrometheus("bookswap-api"),
		verifier:       middleware.NewTokenVerifier(cfg),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	// A typed nil must not reach the EventPublisher interface.
	var publisher service.EventPublisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		s.hub = notifications.NewHub()
		publisher = s.notifier
	}

	store := cache.NewStore(redisClient)
	profileRepo := repository.NewProfileRepository(db)
	bookRepo := repository.NewBookRepository(db)
	exchangeRepo := repository.NewExchangeRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	resolver := geocoding.NewResolver(integ.Geocoder)
	images := service.NewImageService(integ.Objects, cfg)
	dispatcher := service.NewNotificationDispatcher(notificationRepo, publisher)

	s.ledger = service.NewPointLedger(db, profileRepo, store)
	s.profileService = service.NewProfileService(db, profileRepo, bookRepo, resolver, images, store)
	s.bookService = service.NewBookService(db, bookRepo, profileRepo, s.ledger, integ.Valuer, images, store)
	s.exchangeService = service.NewExchangeService(db, bookRepo, exchangeRepo, profileRepo, s.ledger, dispatcher, store)
	s.notificationService = service.NewNotificationService(notificationRepo)
	s.wishlistService = service.NewWishlistService(repository.NewWishlistRepository(db), bookRepo)
	s.historyService = service.NewHistoryService(repository.NewHistoryRepository(db), bookRepo)
	s.stallService = service.NewStallService(repository.NewStallRepository(db), resolver)
	s.forumService = service.NewForumService(repository.NewForumRepository(db), bookRepo)
	s.chatService = service.NewChatService(repository.NewConversationRepository(db), profileRepo, bookRepo, publisher)
	s.paymentService = service.NewPaymentService(db, repository.NewPaymentRepository(db), s.ledger, integ.Payments, cfg.FrontendURL)

	return s, nil
}

// NewApp returns a Fiber app with the shared error handler.
func (s *Server) NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "BookSwap API",
		BodyLimit: 12 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}
	app.Use(middleware.MetricsMiddleware())
	app.Use(middleware.TracingMiddleware())

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS must run before the limiter so throttled responses still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests, models.NewRateLimitedError("API"))
		},
	}))
}

// Per-profile quotas on write endpoints.
var (
	avatarQuota   = middleware.Quota{Action: "avatar_upload", Limit: 10, Window: 10 * time.Minute}
	deductQuota   = middleware.Quota{Action: "deduct_reputation", Limit: 20, Window: time.Minute}
	listingQuota  = middleware.Quota{Action: "create_book", Limit: 20, Window: 10 * time.Minute}
	imageQuota    = middleware.Quota{Action: "book_images", Limit: 20, Window: 10 * time.Minute}
	requestQuota  = middleware.Quota{Action: "create_request", Limit: 30, Window: 10 * time.Minute}
	forumQuota    = middleware.Quota{Action: "forum_post", Limit: 10, Window: time.Minute}
	chatQuota     = middleware.Quota{Action: "send_chat", Limit: 15, Window: time.Minute}
	checkoutQuota = middleware.Quota{Action: "checkout", Limit: 10, Window: 10 * time.Minute, FailClosed: true}
)

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "BookSwap Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Public browse
	api.Get("/payments/packages", s.GetPointPackages)
	api.Get("/stalls", s.GetStalls)

	protected := api.Group("", s.AuthRequired())
	protected.Get("/feature-flags", s.GetFeatureFlags)

	// Profile routes. Specific /me paths are registered before /:id.
	profile := protected.Group("/profile")
	profile.Post("/", s.UpsertProfile)
	profile.Get("/me", s.GetMyProfile)
	profile.Put("/me", s.UpdateMyProfile)
	profile.Delete("/me", s.DeleteMyProfile)
	profile.Get("/me/stats", s.GetMyStats)
	profile.Put("/me/points", s.UpdateMyPoints)
	profile.Post("/me/convert", s.ConvertPoints)
	profile.Get("/me/reputation-check", s.CheckReputation)
	profile.Post("/me/avatar", middleware.Throttle(s.redis, avatarQuota), s.UploadAvatar)
	profile.Post("/:id/deduct-reputation", middleware.Throttle(s.redis, deductQuota), s.DeductReputation)
	profile.Get("/:id", s.GetProfile)

	books := protected.Group("/books")
	books.Get("/", s.GetBooks)
	books.Post("/", middleware.Throttle(s.redis, listingQuota), s.CreateBook)
	books.Post("/:id/images", middleware.Throttle(s.redis, imageQuota), s.UploadBookImages)
	books.Get("/:id/history", s.GetBookHistory)
	books.Post("/:id/history", s.AddBookHistory)
	books.Get("/:id/forum", s.GetBookForum)
	books.Post("/:id/forum", s.ReputationRequired(service.ActionForum), s.OpenBookForum)
	books.Get("/:id", s.GetBook)
	books.Put("/:id", s.UpdateBook)
	books.Delete("/:id", s.DeleteBook)

	requests := protected.Group("/requests")
	requests.Get("/", s.GetRequests)
	requests.Post("/", s.ReputationRequired(service.ActionRequest),
		middleware.Throttle(s.redis, requestQuota), s.CreateRequest)
	requests.Put("/:id", s.RespondToRequest)

	notificationsGroup := protected.Group("/notifications")
	notificationsGroup.Get("/", s.GetNotifications)
	notificationsGroup.Put("/read-all", s.MarkAllNotificationsRead)
	notificationsGroup.Put("/:id/read", s.MarkNotificationRead)

	wishlist := protected.Group("/wishlist")
	wishlist.Get("/", s.GetWishlist)
	wishlist.Post("/", s.AddToWishlist)
	wishlist.Delete("/:bookId", s.RemoveFromWishlist)

	forums := protected.Group("/forums")
	forums.Get("/:id/posts", s.GetForumPosts)
	forums.Post("/:id/posts", s.ReputationRequired(service.ActionForum),
		middleware.Throttle(s.redis, forumQuota), s.CreateForumPost)

	conversations := protected.Group("/conversations")
	conversations.Get("/", s.GetConversations)
	conversations.Post("/", s.ReputationRequired(service.ActionChat), s.CreateConversation)
	conversations.Get("/:id/messages", s.GetMessages)
	conversations.Post("/:id/messages", s.ReputationRequired(service.ActionChat),
		middleware.Throttle(s.redis, chatQuota), s.SendMessage)

	stalls := protected.Group("/stalls")
	stalls.Post("/", s.CreateStall)
	stalls.Put("/:id", s.UpdateStall)
	stalls.Delete("/:id", s.DeleteStall)

	paymentsGroup := protected.Group("/payments")
	paymentsGroup.Get("/", s.GetMyPayments)
	paymentsGroup.Post("/checkout", middleware.Throttle(s.redis, checkoutQuota), s.CreateCheckout)
	paymentsGroup.Post("/verify", s.VerifyPayment)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())
}

// HealthCheck is a simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness checks. Redis is optional: the
// API degrades to no cache and no live push without it.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired accepts a single-use websocket ticket on /api/ws and a bearer
// token everywhere.
func (s *Server) AuthRequired() fiber.Handler {
	bearer := middleware.AuthRequired(s.verifier)
	return func(c *fiber.Ctx) error {
		if _, ok := middleware.UserID(c); ok {
			return c.Next()
		}
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			userID, ok := s.consumeWSTicket(c.UserContext(), ticket)
			if !ok {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			middleware.SetUserID(c, userID)
			return c.Next()
		}

		return bearer(c)
	}
}

// consumeWSTicket resolves and deletes a ticket atomically.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uuid.UUID, bool) {
	if s.redis == nil {
		return uuid.Nil, false
	}
	raw, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.Logger.WarnContext(ctx, "ws ticket lookup failed", "error", err)
		}
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// ReputationRequired rejects callers whose reputation is below the threshold
// for action. Must be placed after AuthRequired.
func (s *Server) ReputationRequired(action service.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := middleware.UserID(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		decision, err := s.profileService.CheckReputation(c.UserContext(), userID, action)
		if err != nil {
			return respondError(c, err)
		}
		if err := decision.Err(action); err != nil {
			middleware.Logger.InfoContext(c.UserContext(), "reputation gate denied",
				"action", action, "required", decision.Required, "current", decision.Current)
			return respondError(c, err)
		}
		return c.Next()
	}
}

// Start builds the app, wires the hub to redis and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.NewApp()
	s.app = app
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
			}
		}()
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
