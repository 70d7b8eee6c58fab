// Package mockapi serves a local stand-in for the language-learning REST API.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/russianllm/ruterm/internal/model"
)

// Test account accepted by the mock.
const (
	TestEmail    = "test@test.com"
	TestPassword = "password"
	TestUsername = "testuser"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "session_id"

// Config configures the mock server.
type Config struct {
	Addr          string
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	JWTSecret     string
	Faults        Faults
	CORSOrigins   []string
	Fixtures      *Fixtures
	Logger        *slog.Logger
	Clock         clockwork.Clock
	BcryptCost    int
}

type user struct {
	email    string
	username string
	hash     []byte
}

type session struct {
	username string
	expireAt time.Time
}

// Server is the mock REST API.
type Server struct {
	addr     string
	cfg      Config
	data     Fixtures
	logger   *slog.Logger
	clock    clockwork.Clock
	faults   *FaultInjector
	engine   *gin.Engine
	server   *http.Server
	listener net.Listener
	ctx      context.Context
	cancel   context.CancelFunc

	startTime time.Time

	mu         sync.Mutex
	users      map[string]*user
	sessions   map[string]session
	usedTokens map[string]time.Time
	lastReset  string
}

// NewServer builds the server and its routes. It does not listen yet.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = model.DefaultMockAddr
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = model.DefaultSessionTTL
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = model.DefaultResetTokenTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = newSessionID()
	}

	data := cfg.Fixtures
	if data == nil {
		def, err := DefaultFixtures()
		if err != nil {
			return nil, err
		}
		data = &def
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing test password: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:       cfg.Addr,
		cfg:        cfg,
		data:       *data,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
		faults:     newFaultInjector(cfg.Faults),
		ctx:        ctx,
		cancel:     cancel,
		startTime:  cfg.Clock.Now(),
		users:      map[string]*user{TestEmail: {email: TestEmail, username: TestUsername, hash: hash}},
		sessions:   make(map[string]session),
		usedTokens: make(map[string]time.Time),
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/health", s.handleHealth)

	api := r.Group("/", s.faults.middleware(s.logger))
	api.GET("/check-login-status", s.handleCheckLoginStatus)
	api.POST("/login", s.handleLogin)
	api.GET("/logout", s.handleLogout)
	api.POST("/forgot-password", s.handleForgotPassword)
	api.GET("/validate-token", s.handleValidateToken)
	api.PUT("/password-reset", s.handlePasswordReset)

	protected := api.Group("/", s.requireSession)
	protected.GET("/exercises", s.handleExercises)
	protected.GET("/stats", s.handleStats)
	protected.GET("/words", s.handleWords)
	return r
}

// Handler exposes the routes for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.engine,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = s.clock.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mock api serve failed", "error", err)
		}
	}()
	s.logger.Info("mock api listening", "addr", listener.Addr().String())
	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Faults returns the live fault injector.
func (s *Server) Faults() *FaultInjector { return s.faults }

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.Lock()
	sessions := len(s.sessions)
	s.mu.Unlock()
	respond(c, http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   s.clock.Since(s.startTime).String(),
		"sessions": sessions,
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// respond writes v as JSON with sonic.
func respond(c *gin.Context, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json; charset=utf-8", body)
}

// fail aborts with an error body the client can classify.
func fail(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	if _, ok := body["message"]; !ok {
		body["message"] = http.StatusText(status)
	}
	c.Abort()
	respond(c, status, body)
}
