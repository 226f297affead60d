package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/iba-monitor/adapters/controller"
	"github.com/Go-routine-4595/iba-monitor/service"
)

// Scheduler is the acquisition loop control surface.
type Scheduler interface {
	State() controller.State
	Period() time.Duration
	Connect() error
	Disconnect() error
	Pause() error
	Resume() error
	Subscribe() (<-chan service.TickResult, func())
}

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Service   *service.Service
	Scheduler Scheduler
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// SignalsFile receives the configuration on every save when set.
	SignalsFile string
	Version     string
	Logger      zerolog.Logger
}

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, h *Handler, ws *StreamHandler, metrics http.Handler) {
	e.GET("/health", h.HandleHealth)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}

	g := e.Group("/api")
	g.GET("/status", h.HandleStatus)
	g.GET("/signals", h.HandleGetSignals)
	g.PUT("/signals", h.HandleSaveSignals)
	g.GET("/values", h.HandleValues)
	g.GET("/history/:id", h.HandleHistory)
	g.GET("/diagnostics", h.HandleDiagnostics)
	g.POST("/expressions/check", h.HandleCheckExpression)

	g.GET("/alarms", h.HandleAlarms)
	g.DELETE("/alarms", h.HandleClearAlarms)
	g.POST("/alarms/fault", h.HandleInjectFault)
	g.POST("/analyze", h.HandleAnalyze)

	conn := g.Group("/connection")
	conn.POST("/connect", h.HandleConnect)
	conn.POST("/disconnect", h.HandleDisconnect)
	conn.POST("/pause", h.HandlePause)
	conn.POST("/resume", h.HandleResume)

	g.GET("/stream", ws.HandleStream)
}

// NewEcho builds a configured Echo instance with every route registered.
func NewEcho(deps *Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	logger := deps.Logger.With().Str("component", "http").Logger()
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || p == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Debug()
			if v.Error != nil {
				ev = logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	RegisterRoutes(e, NewHandler(deps), NewStreamHandler(deps.Scheduler, deps.Logger), deps.Metrics)
	return e
}
