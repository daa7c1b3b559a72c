package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/inconshreveable/log15"

	"github.com/Barospooky/ecg-simulator/internal/render"
	"github.com/Barospooky/ecg-simulator/internal/signal"
	"github.com/Barospooky/ecg-simulator/internal/stream"
	"github.com/Barospooky/ecg-simulator/internal/sweep"
)

var (
	errNoFrame = errors.New("no frame received yet")
	errNoHR    = errors.New("no heart rate measured yet")
)

// Publisher sends a message on a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Server bridges the stream subjects to HTTP and websocket clients and
// forwards parameter edits to the producer.
type Server struct {
	hub     *Hub
	snap    *render.Snapshot
	display sweep.Display
	pub     Publisher
	control string
	log     log.Logger

	mu  sync.RWMutex
	cfg signal.BeatConfig
	hr  *stream.ParamMsg

	waves    int64
	frames   int64
	params   int64
	rejected int64
}

// NewServer starts out with cfg as the current beat configuration. Accepted
// edits are published on the control subject.
func NewServer(cfg signal.BeatConfig, d sweep.Display, pub Publisher, control string) *Server {
	return &Server{
		hub:     NewHub(),
		snap:    render.NewSnapshot(d, "ECG"),
		display: d,
		pub:     pub,
		control: control,
		cfg:     cfg,
		log:     log.New("component", "api"),
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Config returns the last accepted beat configuration.
func (s *Server) Config() signal.BeatConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// OnWave passes a raw wave packet through to websocket clients.
func (s *Server) OnWave(b []byte) {
	atomic.AddInt64(&s.waves, 1)
	s.hub.BroadcastBinary(b)
}

// OnFrame keeps the frame for the chart and passes it to websocket clients.
func (s *Server) OnFrame(b []byte) error {
	m, err := stream.DecodeFrame(b)
	if err != nil {
		return err
	}
	atomic.AddInt64(&s.frames, 1)
	if err := s.snap.Render(m.Frame()); err != nil {
		return err
	}
	s.hub.BroadcastText(b)
	return nil
}

// OnParams records the measured heart rate and passes it on.
func (s *Server) OnParams(b []byte) error {
	var m stream.ParamMsg
	if err := json.Unmarshal(b, &m); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	atomic.AddInt64(&s.params, 1)
	s.mu.Lock()
	s.hr = &m
	s.mu.Unlock()
	s.hub.BroadcastText(b)
	return nil
}

// Router returns the HTTP routes of the dashboard.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/chart")
	})

	r.GET("/api/v1/params.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.Config())
	})
	r.POST("/api/v1/params.json", s.postParams)

	r.GET("/api/v1/frame.json", func(c *gin.Context) {
		f, n := s.snap.Latest()
		if n == 0 {
			c.AbortWithError(http.StatusNotFound, errNoFrame)
			return
		}
		c.JSON(http.StatusOK, stream.NewFrameMsg(f, time.Now()))
	})

	r.GET("/api/v1/hr.json", func(c *gin.Context) {
		s.mu.RLock()
		hr := s.hr
		s.mu.RUnlock()
		if hr == nil {
			c.AbortWithError(http.StatusNotFound, errNoHR)
			return
		}
		c.JSON(http.StatusOK, hr)
	})

	r.GET("/api/v1/display.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"display": s.display,
			"grid":    sweep.Grid(s.display),
		})
	})

	r.GET("/chart", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := s.snap.WriteHTML(c.Writer); err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
		}
	})

	r.GET("/metrics", func(c *gin.Context) {
		c.String(http.StatusOK, "waves %d\nframes %d\nparams %d\nrejected %d\nclients %d\n",
			atomic.LoadInt64(&s.waves),
			atomic.LoadInt64(&s.frames),
			atomic.LoadInt64(&s.params),
			atomic.LoadInt64(&s.rejected),
			s.hub.Len(),
		)
	})

	r.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.log.Debug("websocket upgrade failed", "error", err)
			return
		}
		s.hub.serve(conn)
	})

	return r
}

// postParams binds the body over the current configuration, so a partial
// document only changes the fields it names. The custom beat queue is
// replaced as a whole.
func (s *Server) postParams(c *gin.Context) {
	cur := s.Config()
	cfg := cur
	cfg.CustomBeats = nil
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.AbortWithError(http.StatusBadRequest, err)
		return
	}
	if cfg.CustomBeats == nil {
		cfg.CustomBeats = cur.CustomBeats
	}
	if err := signal.Validate(cfg); err != nil {
		atomic.AddInt64(&s.rejected, 1)
		s.log.Info("rejected parameters", "error", err)
		c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if err := s.pub.Publish(s.control, data); err != nil {
		c.AbortWithError(http.StatusBadGateway, fmt.Errorf("failed to publish parameters: %w", err))
		return
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.log.Info("parameters updated", "heart_rate", cfg.Base.HeartRate, "custom", cfg.CustomEnabled)
	c.JSON(http.StatusOK, cfg)
}
