package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"flatup/internal/auth"
	"flatup/internal/config"
	"flatup/internal/payment"
	"flatup/internal/subscription"
	"flatup/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	User         *user.Handler
	Payment      *payment.Handler
	Subscription *subscription.Handler
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, h Handlers) *Server {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	registerRoutes(router, cfg.JWTSecret, h)

	router.GET("/health", Health(db, rdb))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func registerRoutes(router *gin.Engine, jwtSecret string, h Handlers) {
	public := router.Group("/")
	public.Use(RateLimitMiddleware(10, 20))
	{
		public.POST("/auth/register", h.User.Register)
		public.POST("/auth/login", h.User.Login)
		public.POST("/auth/refresh", h.User.RefreshToken)
		public.GET("/plans", h.Subscription.ListPlans)
	}

	authMiddleware := auth.AuthMiddleware(jwtSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware, RateLimitMiddleware(10, 20))
	{
		protected.GET("/me", h.User.GetMe)
		protected.GET("/subscription", h.Subscription.GetStatus)
		protected.GET("/subscriptions", h.Subscription.ListHistory)
	}

	pay := router.Group("/payment")
	pay.Use(authMiddleware, AccountRateLimitMiddleware(1, 5))
	{
		pay.POST("/create-order", h.Payment.CreateOrder)
		pay.POST("/verify", h.Subscription.Verify)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleSuperadmin))
	{
		admin.GET("/subscriptions", h.Subscription.AdminList)
		admin.GET("/subscriptions/stats", h.Subscription.AdminStats)
		admin.POST("/subscriptions/reconcile", h.Subscription.AdminReconcile)
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-Id")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
