// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	_ "schoolmates/docs" // swagger docs
	"schoolmates/internal/auth"
	"schoolmates/internal/cache"
	"schoolmates/internal/config"
	"schoolmates/internal/database"
	"schoolmates/internal/middleware"
	"schoolmates/internal/models"
	"schoolmates/internal/notifications"
	"schoolmates/internal/repository"
	"schoolmates/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// presenceReapInterval is how often mirrored presence left behind by dead
// instances is cleaned up.
const presenceReapInterval = time.Minute

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens *auth.TokenManager

	userRepo   repository.UserRepository
	friendRepo repository.FriendRepository
	chatRepo   repository.ChatRepository
	memoryRepo repository.MemoryRepository

	authService   *service.AuthService
	userService   *service.UserService
	friendService *service.FriendService
	chatService   *service.ChatService
	memoryService *service.MemoryService

	presence *notifications.Presence
	notifier *notifications.Notifier
	gateway  *notifications.Gateway
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limiting and cross-instance relay are
// then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("schoolmates-api"),
		tokens:         auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		userRepo:       repository.NewUserRepository(db),
		friendRepo:     repository.NewFriendRepository(db),
		chatRepo:       repository.NewChatRepository(db),
		memoryRepo:     repository.NewMemoryRepository(db),
	}

	s.authService = service.NewAuthService(s.userRepo, s.tokens)
	s.userService = service.NewUserService(s.userRepo, s.friendRepo, s.memoryRepo)
	s.friendService = service.NewFriendService(s.friendRepo, s.userRepo)
	s.chatService = service.NewChatService(s.chatRepo, s.userRepo)
	s.memoryService = service.NewMemoryService(s.memoryRepo, s.userRepo, s.friendService)

	s.presence = notifications.NewPresence(redisClient)
	s.notifier = notifications.NewNotifier(redisClient)
	s.gateway = notifications.NewGateway(s.presence, s.notifier)

	return s, nil
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Schoolmates API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err.Error())
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, token, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Schoolmates Backend Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	api.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	protected := api.Group("", s.AuthRequired())

	// Profiles and discovery
	protected.Get("/profile", s.GetProfile)
	protected.Put("/profile", s.UpdateProfile)
	protected.Post("/profile", s.SetupProfile)
	protected.Get("/otherProfile/:userId", s.GetOtherProfile)
	protected.Get("/userDetails/:userId", s.GetUserDetails)
	protected.Get("/searchUsers", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchUsers)
	protected.Get("/recommendUsers", s.RecommendUsers)

	// Social graph
	protected.Post("/sendFriendRequest",
		middleware.RateLimit(s.redis, 10, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	protected.Post("/acceptFriendRequest", s.AcceptFriendRequest)
	protected.Post("/rejectFriendRequest", s.RejectFriendRequest)
	protected.Get("/getFriends", s.GetFriends)
	protected.Get("/getFriendRequests", s.GetFriendRequests)
	protected.Get("/onlineFriends", s.GetOnlineFriends)

	// Conversations. markAsRead must be registered before the :conversationId routes.
	protected.Get("/conversations", s.GetConversations)
	protected.Post("/conversations", s.CreateConversation)
	protected.Post("/messages/markAsRead", s.MarkMessagesRead)
	protected.Get("/messages/:conversationId", s.GetMessages)
	protected.Post("/messages/:conversationId",
		middleware.RateLimit(s.redis, 30, time.Minute, "send_chat"), s.SendMessage)

	// Memories
	protected.Post("/uploadMemory", middleware.RateLimit(s.redis, 10, 5*time.Minute, "upload_memory"), s.UploadMemory)
	protected.Post("/memory/:id/addPhoto", s.AddMemoryPhoto)
	protected.Post("/memory/:id/addTimelineEvent", s.AddMemoryTimelineEvent)
	protected.Post("/memory/:id/like", s.ToggleMemoryLike)
	protected.Post("/memory/:id/comment", s.AddMemoryComment)
	protected.Get("/memory/:id", s.GetMemory)
	protected.Get("/userMemories/:userId", s.GetUserMemories)
	protected.Get("/friendsMemories", s.GetFriendsMemories)
	protected.Get("/memories", s.GetFeed)
	protected.Get("/memories/more/:offset", s.GetMoreFeed)

	// Realtime channel
	protected.Get("/ws", s.WebsocketUpgrade(), s.WebsocketHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: its
// absence is reported but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
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

// AuthRequired returns the authentication middleware. The token is read from
// the Authorization bearer header, then the legacy token header, and on the
// websocket path from the token query parameter.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := auth.ExtractBearer(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			tokenString = strings.TrimSpace(c.Get("token"))
		}
		if tokenString == "" && strings.HasPrefix(c.Path(), "/api/ws") {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		userID, err := s.tokens.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		c.Locals("userID", userID)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if err := s.gateway.Start(ctx); err != nil {
		middleware.Logger.Error("failed to start realtime relay, continuing single-instance", "error", err.Error())
	}
	s.clearStaleOnline(ctx)
	s.presence.StartReaper(ctx, presenceReapInterval, func(stale []uint) {
		s.markOffline(ctx, stale)
	})

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// clearStaleOnline resets the online flag of users no instance holds a
// connection for, such as those left behind by a crash.
func (s *Server) clearStaleOnline(ctx context.Context) {
	ids, err := s.userRepo.OnlineIDs(ctx)
	if err != nil {
		middleware.Logger.Warn("failed to load online users", "error", err.Error())
		return
	}
	stale := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !s.presence.IsOnline(ctx, id) {
			stale = append(stale, id)
		}
	}
	s.markOffline(ctx, stale)
}

func (s *Server) markOffline(ctx context.Context, ids []uint) {
	for _, id := range ids {
		if err := s.userRepo.SetOnline(ctx, id, false); err != nil {
			middleware.Logger.Warn("failed to clear presence", "user_id", id, "error", err.Error())
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err.Error())
		}
	}

	connected := s.presence.OnlineUserIDs()
	if err := s.gateway.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down realtime gateway", "error", err.Error())
	}
	// Client close handlers race the DB close below, so flag them here.
	s.markOffline(ctx, connected)

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr.Error())
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr.Error())
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
