// routes.go - Route registration and middleware helpers
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	SessionMgr SessionManager
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Session SessionHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version, deps.SessionMgr),
		Session: NewSessionHandler(deps.SessionMgr),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	apiGroup.GET("/health", handlers.Health.HandleHealth)

	sessions := apiGroup.Group("/sessions")
	sessions.POST("", handlers.Session.HandleCreateSession)
	sessions.GET("/:id", handlers.Session.HandleGetSession)
	sessions.DELETE("/:id", handlers.Session.HandleDeleteSession)
	sessions.POST("/:id/keepalive", handlers.Session.HandleSessionKeepAlive)
	sessions.POST("/:id/file", handlers.Session.HandleSelectFile)
	sessions.GET("/:id/preview", handlers.Session.HandleGetPreview)
	sessions.POST("/:id/analyze", handlers.Session.HandleStartAnalysis)
}

// MiddlewareConfig configures SetupMiddleware
type MiddlewareConfig struct {
	Logger           *slog.Logger
	RequestLogging   bool
	ShowErrorDetails bool
	BodyLimit        string
	EnableCORS       bool
	AllowOrigins     []string
}

// SetupMiddleware installs the error handler and common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.HTTPErrorHandler = NewErrorHandler(logger, cfg.ShowErrorDetails)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.RequestLogging {
				return true
			}
			return isPollingRequest(c.Request())
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				logger.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Info("request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			logger.Error("handler panicked", "path", c.Request().URL.Path, "error", err, "stack", string(stack))
			return err
		},
	}))

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			Limit:   cfg.BodyLimit,
			Skipper: isFileUpload,
		}))
	}

	if cfg.EnableCORS {
		origins := cfg.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

// isPollingRequest reports requests the page repeats on a timer.
func isPollingRequest(r *http.Request) bool {
	path := r.URL.Path
	if path == "/api/health" || strings.HasSuffix(path, "/keepalive") {
		return true
	}
	return r.Method == http.MethodGet && strings.HasPrefix(path, "/api/sessions/")
}

// SplitOrigins parses a comma-separated origin list
func SplitOrigins(value string) []string {
	var origins []string
	for _, o := range strings.Split(value, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// isFileUpload reports whether the request selects a session file. Uploads
// skip the body limit so an oversized document reaches the handler, which
// stops reading at the size limit and clears the slot.
func isFileUpload(c echo.Context) bool {
	path := c.Request().URL.Path
	return c.Request().Method == http.MethodPost &&
		strings.HasPrefix(path, "/api/sessions/") &&
		strings.HasSuffix(path, "/file")
}
