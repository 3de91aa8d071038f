package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"stockmeta/internal/logging"
	"stockmeta/internal/workspace"
)

const defaultBodyLimit = "1G"

// Server is the control surface router for one workspace.
type Server struct {
	ws        *workspace.Workspace
	logger    *slog.Logger
	echo      *echo.Echo
	upgrader  websocket.Upgrader
	bodyLimit string
	hosts     map[string]struct{}
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBodyLimit caps request bodies, e.g. "512M".
func WithBodyLimit(limit string) Option {
	return func(s *Server) {
		if limit != "" {
			s.bodyLimit = limit
		}
	}
}

// WithAllowedHosts accepts Host headers naming these hosts in addition to
// localhost and loopback addresses. Ports are ignored.
func WithAllowedHosts(hosts ...string) Option {
	return func(s *Server) {
		for _, h := range hosts {
			if name := hostName(h); name != "" {
				s.hosts[name] = struct{}{}
			}
		}
	}
}

// NewServer builds the router and registers every route.
func NewServer(ws *workspace.Workspace, opts ...Option) *Server {
	s := &Server{
		ws:        ws,
		logger:    logging.NewNop(),
		bodyLimit: defaultBodyLimit,
		hosts:     make(map[string]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "api")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(s.logger)
	e.Pre(s.checkHost)
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(s.bodyLimit))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug("request",
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	s.echo = e
	s.registerRoutes()
	return s
}

// checkHost rejects requests whose Host header is not a loopback name or an
// allowed host, so pages served from other origins cannot reach the control
// surface through DNS rebinding.
func (s *Server) checkHost(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		name := hostName(c.Request().Host)
		if !s.hostAllowed(name) {
			logging.WarnWithContext(s.logger, "request host rejected", "api_host_rejected",
				logging.String("host", c.Request().Host),
				logging.String(logging.FieldImpact, "request refused"),
			)
			return &APIError{Status: http.StatusForbidden, Code: "FORBIDDEN_HOST", Message: "host not allowed"}
		}
		return next(c)
	}
}

func (s *Server) hostAllowed(name string) bool {
	if name == "" {
		return false
	}
	if name == "localhost" {
		return true
	}
	if ip := net.ParseIP(name); ip != nil && ip.IsLoopback() {
		return true
	}
	_, ok := s.hosts[name]
	return ok
}

func hostName(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		hostport = host
	}
	return strings.ToLower(strings.Trim(hostport, "[]"))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo { return s.echo }

func (s *Server) registerRoutes() {
	e := s.echo
	e.GET("/previews/:token", s.handlePreview)

	g := e.Group("/api")
	g.GET("/state", s.handleState)
	g.GET("/snapshot", s.handleSnapshot)
	g.GET("/stream", s.handleStream)
	g.GET("/platforms", s.handlePlatforms)

	items := g.Group("/items")
	items.GET("", s.handleListItems)
	items.POST("", s.handleAddFiles)
	items.DELETE("", s.handleClear)
	items.POST("/paths", s.handleAddPaths)
	items.POST("/retry", s.handleRetryFailed)
	items.DELETE("/:id", s.handleRemove)
	items.POST("/:id/retry", s.handleRetry)
	items.GET("/:id/copy", s.handleCopy)

	run := g.Group("/run")
	run.POST("/start", s.handleStart)
	run.POST("/pause", s.handlePause)
	run.POST("/resume", s.handleResume)
	run.POST("/stop", s.handleStop)

	g.PUT("/settings", s.handleSettings)
	g.PUT("/platform", s.handlePlatform)
	g.PUT("/mode", s.handleMode)

	exp := g.Group("/export")
	exp.POST("/csv", s.handleExportCSV)
	exp.POST("/prompts", s.handleExportPrompts)
	exp.POST("/eps", s.handleExportEPS)

	sess := g.Group("/session")
	sess.GET("", s.handleSession)
	sess.POST("/login", s.handleLogin)
	sess.POST("/logout", s.handleLogout)
	sess.PUT("/key", s.handleSetKey)
}
