package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Finmate-core-poc/server/internal/agent/router"
	"github.com/Finmate-core-poc/server/internal/core"
)

type Config struct {
	Addr string `split_words:"true" default:":8080"`
}

// Server exposes the assistant over HTTP: a health probe and the chat
// websocket.
type Server struct {
	engine   *gin.Engine
	sessions *router.SessionManager
	addr     string
}

func New(cfg Config, env core.Environment, sessions *router.SessionManager) *Server {
	if env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:   engine,
		sessions: sessions,
		addr:     cfg.Addr,
	}

	engine.GET("/healthz", s.health)
	engine.GET("/ws/chat", s.chat)

	return s
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	return s.engine.Run(s.addr)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
