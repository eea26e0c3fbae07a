// Package httpapi exposes QC runs over HTTP: a gin JSON API for starting
// and inspecting runs, plus a chi ops sidecar with health and pprof
// endpoints on a separate port.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"studyqc/app"
	"studyqc/internal"
	"studyqc/internal/config"
	"studyqc/ports"
)

// Server is the JSON API for QC runs
type Server struct {
	qc     *app.QCService
	batch  *app.BatchService
	runs   ports.RunRepository
	study  config.StudyConfig
	logger *internal.Logger
	router *gin.Engine
}

// NewServer wires the API routes. The run repository may be nil; listing
// and report endpoints then answer 503.
func NewServer(qcService *app.QCService, batchService *app.BatchService, runs ports.RunRepository, study config.StudyConfig, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	s := &Server{
		qc:     qcService,
		batch:  batchService,
		runs:   runs,
		study:  study,
		logger: logger.WithComponent("HTTPServer"),
		router: gin.Default(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.POST("/runs", s.handleCreateRun)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
	api.GET("/runs/:id/report", s.handleGetRunReport)
	api.POST("/batch", s.handleBatch)
}

// Router returns the underlying handler, for tests and embedding
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start runs the HTTP server on the given address, blocking
func (s *Server) Start(addr string) error {
	s.logger.Info("API listening on %s", addr)
	return s.router.Run(addr)
}
