package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/npatel023/tutorgraph/internal/store"
	"github.com/npatel023/tutorgraph/internal/syllabus"
	"github.com/npatel023/tutorgraph/internal/tutor"
)

// Server is the thin HTTP surface over the tutoring core. Request
// parsing and response envelopes live here; all decisions live in the
// machine and the syllabus store.
type Server struct {
	engine   *gin.Engine
	machine  *tutor.Machine
	syllabi  *syllabus.Store
	messages store.MessageRepo
	log      *zap.SugaredLogger
}

// Options configures the server surface.
type Options struct {
	// Env selects the gin mode: "prod" disables debug output.
	Env string

	// CORSOrigins is the allowed origin list. "*" allows all.
	CORSOrigins []string
}

// NewServer wires routes and middleware.
func NewServer(machine *tutor.Machine, syllabi *syllabus.Store, messages store.MessageRepo, opts Options, log *zap.SugaredLogger) *Server {
	if opts.Env == "prod" || opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))
	engine.Use(cors.New(corsConfig(opts.CORSOrigins)))

	s := &Server{
		engine:   engine,
		machine:  machine,
		syllabi:  syllabi,
		messages: messages,
		log:      log,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/sessions", s.startSession)
		v1.POST("/sessions/:id/turns", s.processTurn)
		v1.GET("/sessions/:id/messages", s.listMessages)
		v1.GET("/syllabus", s.resolveSyllabus)
		v1.POST("/syllabus/:uid/fork", s.forkSyllabus)
	}
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func requestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
