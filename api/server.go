package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/tickrl/types"
)

var (
	ErrNoProgression = errors.New("no progression configured")
)

// Progressor advances the training to the next level and returns it
type Progressor func(ctx context.Context) (int, error)

type SpeedRequest struct {
	StepsPerSecond *float64 `json:"steps_per_second" binding:"required"`
}

type SpeedResponse struct {
	StepsPerSecond float64 `json:"steps_per_second"`
}

// Server exposes a running TickLoop over http
type Server struct {
	loop     *types.TickLoop
	progress Progressor
	logger   log.Logger
	router   *gin.Engine
	server   *http.Server
}

func NewServer(addr string, loop *types.TickLoop, progress Progressor, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		loop:     loop,
		progress: progress,
		logger:   log.With(logger, "component", "api"),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/stats", s.handleStats)
	r.GET("/speed", s.handleGetSpeed)
	r.PUT("/speed", s.handleSetSpeed)
	r.POST("/progression/next", s.handleNext)
	r.POST("/stop", s.handleStop)
	s.router = r
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until the context is cancelled
func (s *Server) Start(ctx context.Context) {
	go func() {
		level.Info(s.logger).Log("msg", "listening", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			level.Error(s.logger).Log("msg", "server failed", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) loopError(c *gin.Context, err error) {
	if errors.Is(err, types.ErrLoopStopped) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.loop.Snapshot(c.Request.Context())
	if err != nil {
		s.loopError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetSpeed(c *gin.Context) {
	var speed float64
	err := s.loop.Do(c.Request.Context(), func(r *types.EpisodeRunner) {
		speed = r.StepsPerSecond()
	})
	if err != nil {
		s.loopError(c, err)
		return
	}
	c.JSON(http.StatusOK, SpeedResponse{StepsPerSecond: speed})
}

func (s *Server) handleSetSpeed(c *gin.Context) {
	req := SpeedRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	var speed float64
	err := s.loop.Do(c.Request.Context(), func(r *types.EpisodeRunner) {
		speed = r.SetStepsPerSecond(*req.StepsPerSecond)
	})
	if err != nil {
		s.loopError(c, err)
		return
	}
	level.Info(s.logger).Log("msg", "speed changed", "requested", *req.StepsPerSecond, "effective", speed)
	c.JSON(http.StatusOK, SpeedResponse{StepsPerSecond: speed})
}

func (s *Server) handleNext(c *gin.Context) {
	if s.progress == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNoProgression.Error()})
		return
	}
	lvl, err := s.progress(c.Request.Context())
	if err != nil {
		s.loopError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"level": lvl})
}

func (s *Server) handleStop(c *gin.Context) {
	s.loop.Stop()
	c.JSON(http.StatusOK, gin.H{"message": "stopping"})
}
