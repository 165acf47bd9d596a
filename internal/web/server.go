package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camuig/whale-dashboard/internal/config"
	"github.com/camuig/whale-dashboard/internal/logger"
	"github.com/camuig/whale-dashboard/internal/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

const sweepInterval = time.Minute

// History is the query log as the API reads it.
type History interface {
	RecentQueryLogs(view string, limit int) ([]storage.QueryLog, error)
	CountSince(view string, since time.Time) (int64, error)
}

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	sessions   *Sessions
	history    History
	config     *config.Config
	logger     *logger.Logger

	// baseCtx outlives single requests so background refreshes keep running
	// after the redirect. It ends on Shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewServer wires the routes. history may be nil when storage is disabled.
func NewServer(cfg *config.Config, factory DashboardFactory, history History, log *logger.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if cfg.Web.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		sessions: NewSessions(cfg.SessionTTL(), cfg.Web.MaxSessions, factory),
		history:  history,
		config:   cfg,
		logger:   log.With("component", "web"),
		baseCtx:  ctx,
		cancel:   cancel,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	r.SetHTMLTemplate(tmpl)
	s.routes(r)
	s.engine = r

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Web.Port),
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// API refreshes hold the response until the backend answers.
		IdleTimeout: 60 * time.Second,
	}

	go s.sessions.run(ctx, sweepInterval)

	return s, nil
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.handleHealth)

	ui := r.Group("/", withSession(s.sessions, s.config.SessionTTL()))
	{
		ui.GET("/", s.handleDashboard)
		ui.POST("/views/:view/refresh", s.handleRefresh)
		ui.POST("/views/:view/tables/:table/sort", s.handleSort)
	}

	api := r.Group("/api")
	{
		api.GET("/history", s.handleHistory)

		views := api.Group("/views", withSession(s.sessions, s.config.SessionTTL()))
		views.GET("/:view", s.apiSnapshot)
		views.POST("/:view/refresh", s.apiRefresh)
		views.POST("/:view/tables/:table/sort", s.apiSort)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Sessions() *Sessions {
	return s.sessions
}

func (s *Server) Start() error {
	s.logger.Info("web server starting", "port", s.config.Web.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and cancels background refreshes.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.cancel()
	return s.httpServer.Shutdown(ctx)
}
