package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/glossa/internal/auth"
	"horse.fit/glossa/internal/catalog"
	"horse.fit/glossa/internal/completion"
	"horse.fit/glossa/internal/db"
	"horse.fit/glossa/internal/globaltime"
	"horse.fit/glossa/internal/langdetect"
	"horse.fit/glossa/internal/messages"
	"horse.fit/glossa/internal/reader"
	"horse.fit/glossa/internal/settings"
	"horse.fit/glossa/internal/trace"
	"horse.fit/glossa/internal/translate"
)

type Options struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// SessionTTL evicts idle translation sessions; AuthTokenTTL expires
	// bearer tokens.
	SessionTTL   time.Duration
	AuthTokenTTL time.Duration

	AllowedOrigins    []string
	AdminPasswordHash string
	UILanguage        string
}

// Deps are the shared services the API serves.
type Deps struct {
	Pool     *db.Pool
	Catalog  *catalog.Catalog
	Messages *messages.Store
	Prefs    *settings.Store
	Engine   *completion.Service
	Tracer   *trace.Service
}

type Server struct {
	pool     *db.Pool
	catalog  *catalog.Catalog
	messages *messages.Store
	prefs    *settings.Store
	engine   *completion.Service
	tracer   *trace.Service
	sessions *sessionRegistry
	tokens   *auth.SessionStore
	logger   zerolog.Logger
	opts     Options

	// Overridable in tests.
	newController  func(opts translate.Options) *translate.Controller
	fetchSelection func(ctx context.Context, pageURL string) (string, error)
	detectLanguage func(text string) string
}

func NewServer(deps Deps, logger zerolog.Logger, opts Options) *Server {
	addr := strings.TrimSpace(opts.ListenAddr)
	if addr == "" {
		addr = ":8080"
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// Streaming endpoints hold a response open for the whole session.
		writeTimeout = 0
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	sessionTTL := opts.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}

	s := &Server{
		pool:     deps.Pool,
		catalog:  deps.Catalog,
		messages: deps.Messages,
		prefs:    deps.Prefs,
		engine:   deps.Engine,
		tracer:   deps.Tracer,
		sessions: newSessionRegistry(sessionTTL),
		tokens:   auth.NewSessionStore(opts.AuthTokenTTL),
		logger:   logger,
		opts: Options{
			ListenAddr:        addr,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			ShutdownTimeout:   shutdownTimeout,
			SessionTTL:        sessionTTL,
			AuthTokenTTL:      opts.AuthTokenTTL,
			AllowedOrigins:    opts.AllowedOrigins,
			AdminPasswordHash: opts.AdminPasswordHash,
			UILanguage:        opts.UILanguage,
		},
	}

	s.newController = func(ctrlOpts translate.Options) *translate.Controller {
		return translate.New(ctrlOpts, translate.Deps{
			Catalog:     s.catalog,
			Preferences: s.prefs,
			Engine:      s.engine,
			Feed:        s.messages,
			Tracer:      s.tracer,
			Logger:      s.logger,
		})
	}
	s.fetchSelection = func(ctx context.Context, pageURL string) (string, error) {
		return reader.FetchSelection(ctx, pageURL, reader.FetchOptions{})
	}
	s.detectLanguage = langdetect.DetectOrUnd

	return s
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	allowOrigins := s.opts.AllowedOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/languages", s.handleLanguages)
	api.POST("/auth/session", s.handleCreateAuthSession)
	api.DELETE("/auth/session", s.handleDeleteAuthSession)

	protected := api.Group("", s.requireAuth())
	protected.GET("/settings", s.handleGetSettings)
	protected.PUT("/settings", s.handlePutSettings)
	protected.POST("/sessions", s.handleCreateSession)
	protected.GET("/sessions/:session_id", s.handleGetSession)
	protected.GET("/sessions/:session_id/events", s.handleSessionEvents)
	protected.GET("/sessions/:session_id/messages", s.handleSessionMessages)
	protected.POST("/sessions/:session_id/language", s.handleChangeLanguage)
	protected.POST("/sessions/:session_id/pause", s.handlePauseSession)
	protected.POST("/sessions/:session_id/regenerate", s.handleRegenerateSession)
	protected.DELETE("/sessions/:session_id", s.handleDeleteSession)

	httpServer := &http.Server{
		Addr:         s.opts.ListenAddr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", s.opts.ListenAddr).Msg("glossa api server started")

	err := e.StartServer(httpServer)
	s.closeAllSessions()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("glossa api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service":       "glossa",
		"time":          globaltime.UTC(),
		"catalog_ready": s.catalog.Ready(),
		"sessions":      s.sessions.size(),
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"items": s.catalog.Options(),
	})
}
