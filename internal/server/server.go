// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	_ "culturetech/docs" // swagger docs
	"culturetech/internal/authz"
	"culturetech/internal/bootstrap"
	"culturetech/internal/cache"
	"culturetech/internal/config"
	"culturetech/internal/featureflags"
	"culturetech/internal/middleware"
	"culturetech/internal/models"
	"culturetech/internal/notifications"
	"culturetech/internal/service"
	"culturetech/internal/store"
	"culturetech/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	store          store.Store
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	rules          *authz.Rules
	validator      *validation.Validator
	featureFlags   *featureflags.Manager
	notifier       *notifications.Notifier
	revocations    *cache.Revocations

	postService     *service.PostService
	commentService  *service.CommentService
	bookmarkService *service.BookmarkService
	userService     *service.UserService
}

// Option adjusts a Server built by NewServerWithDeps.
type Option func(*serverOptions)

type serverOptions struct {
	passwordCost int
}

// WithPasswordCost sets the bcrypt cost used for new passwords.
func WithPasswordCost(cost int) Option {
	return func(o *serverOptions) { o.passwordCost = cost }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	st, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{Seed: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, st, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer has opened the store and Redis.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, st store.Store, redisClient *redis.Client, opts ...Option) (*Server, error) {
	o := serverOptions{passwordCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(&o)
	}

	rules, err := authz.NewRules()
	if err != nil {
		return nil, fmt.Errorf("authorization rules: %w", err)
	}
	validator, err := validation.New()
	if err != nil {
		return nil, fmt.Errorf("payload schemas: %w", err)
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	for _, name := range flags.Unknown() {
		middleware.Logger.Warn("ignoring unknown feature flag", "flag", name)
	}
	middleware.Logger.Info("feature flags", "enabled", flags.Snapshot(0))

	notifier := notifications.NewNotifier(redisClient)

	return &Server{
		config:          cfg,
		store:           st,
		redis:           redisClient,
		promMiddleware:  middleware.InitMetrics("culturetech-api"),
		rules:           rules,
		validator:       validator,
		featureFlags:    flags,
		notifier:        notifier,
		revocations:     cache.NewRevocations(redisClient),
		postService:     service.NewPostService(st, notifier),
		commentService:  service.NewCommentService(st, flags, notifier),
		bookmarkService: service.NewBookmarkService(st, flags),
		userService:     service.NewUserService(st, o.passwordCost),
	}, nil
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "CultureTech API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Span per request; sets the traceID local read by ContextMiddleware
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5000,http://localhost:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400, // 24 hours
	}))

	// Resolve the caller for every route; anonymous is a valid outcome
	app.Use(s.Identify())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "CultureTech API Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Account routes
	api.Post("/register", s.Register)
	api.Post("/login", s.Login)
	api.Post("/logout", s.Logout)
	api.Get("/user", s.GetCurrentUser)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	// Specific /category route BEFORE generic /:id route
	posts.Get("/category/:category", s.GetPostsByCategory)
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/:postId/comments", s.CreateComment)
	posts.Get("/:id", s.GetPost)
	posts.Post("/", s.CreatePost)

	bookmarks := api.Group("/bookmarks")
	bookmarks.Get("/", s.GetBookmarks)
	bookmarks.Post("/:postId", s.CreateBookmark)
	bookmarks.Delete("/:postId", s.DeleteBookmark)
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,time=string}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so a
// missing client reports "disabled" without failing readiness.
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} object{status=string,checks=object}
// @Failure 503 {object} object{status=string,checks=object}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	storeStatus := "healthy"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if storeStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"store":  storeStatus,
			"redis":  redisStatus,
			"driver": s.config.StoreDriver,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", "port", s.config.Port, "store", s.config.StoreDriver)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.store.Close(); err != nil {
		middleware.Logger.Error("error closing store", "error", err)
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", "error", err)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
