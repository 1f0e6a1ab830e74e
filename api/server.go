// Package api is the backend relay: it creates generation projects on
// behalf of proxied-mode clients, re-publishes job lifecycle events over a
// server-push progress stream, and fronts cross-origin image fetches.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tourloop/events"
	"tourloop/genapi"
)

// Server holds the relay's dependencies and the mapping from relay request
// identifiers to the provider projects created for them.
type Server struct {
	api        *genapi.Client
	bus        events.Bus
	httpClient *http.Client

	mu       sync.Mutex
	projects map[string]genapi.Project
}

// NewServer creates the relay server.
func NewServer(api *genapi.Client, bus events.Bus) *Server {
	return &Server{
		api:        api,
		bus:        bus,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		projects:   make(map[string]genapi.Project),
	}
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	r.GET("/health", s.HandleHealth)
	r.POST("/api/generate-transition", s.HandleGenerateTransition)
	r.GET("/api/progress-stream/:projectId", s.HandleProgressStream)
	r.GET("/api/proxy-image", s.HandleProxyImage)
	return r
}

// HandleHealth provides a health check endpoint.
// GET /health
func (s *Server) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) rememberProject(requestID string, project genapi.Project) {
	s.mu.Lock()
	s.projects[requestID] = project
	s.mu.Unlock()
}

func (s *Server) lookupProject(requestID string) (genapi.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[requestID]
	return project, ok
}
