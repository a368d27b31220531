package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmehdipour/eventlog/internal/config"
	"github.com/jmehdipour/eventlog/internal/http/middleware"
	"github.com/jmehdipour/eventlog/internal/metrics"
	"github.com/jmehdipour/eventlog/internal/repository"
	"github.com/jmehdipour/eventlog/internal/service/accounts"
	"github.com/jmehdipour/eventlog/internal/service/events"
	"github.com/jmehdipour/eventlog/internal/stream"
	"github.com/jmehdipour/eventlog/internal/util"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the long-lived resources the server borrows. The caller owns and
// closes them after Shutdown.
type Deps struct {
	Store     *sqlx.DB
	Redis     *redis.Client        // optional
	Publisher stream.Publisher     // optional
	Registry  *prometheus.Registry // optional, a fresh registry when nil
	Log       *zap.Logger          // optional
}

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

func NewServer(cfg config.Config, d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}

	// repos
	customersRepo := repository.NewCustomersRepository(d.Store)
	eventsRepo := repository.NewEventsRepository(d.Store)

	// services
	accountsSvc := accounts.New(customersRepo)
	eventsSvc := events.New(eventsRepo, d.Publisher)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	bodyLimit := cfg.HTTP.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "100K"
	}
	e.Use(
		echoMid.Recover(),
		echoMid.RequestIDWithConfig(echoMid.RequestIDConfig{Generator: util.New}),
		requestLogger(d.Log),
		echoMid.CORS(),
		echoMid.Secure(),
		echoMid.BodyLimit(bodyLimit),
	)

	metrics.MustRegister(d.Registry)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))

	// health
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	// self-service
	e.POST("/register", registerHandler(accountsSvc, cfg.Registration.Enabled))

	// admin
	admin := e.Group("/admin", middleware.AdminGuard(cfg.Admin.Password))
	admin.GET("/customers", listCustomersHandler(accountsSvc))
	admin.POST("/customers", createCustomerHandler(accountsSvc))
	admin.POST("/customers/:copy_id/block", blockCustomerHandler(accountsSvc))
	admin.POST("/customers/:copy_id/reset", resetCustomerHandler(accountsSvc))

	// customer
	customerMW := middleware.CustomerGuard(accountsSvc)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:copy:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	e.POST("/events", pushEventHandler(eventsSvc), customerMW, rlMW)
	e.GET("/events", listEventsHandler(eventsSvc), customerMW, rlMW)

	return &Server{e: e, log: d.Log}
}

// ServeHTTP lets tests drive the router without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.e.ServeHTTP(w, r) }

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

func requestLogger(l *zap.Logger) echo.MiddlewareFunc {
	return echoMid.RequestLoggerWithConfig(echoMid.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echoMid.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				l.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			l.Info("request", fields...)
			return nil
		},
	})
}
