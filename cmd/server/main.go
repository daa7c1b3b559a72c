package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	osSignal "os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cli/browser"
	"github.com/gin-gonic/gin"
	log "github.com/inconshreveable/log15"
	"github.com/nats-io/nats.go"

	"github.com/Barospooky/ecg-simulator/internal/api"
	"github.com/Barospooky/ecg-simulator/internal/config"
	"github.com/Barospooky/ecg-simulator/internal/logging"
	"github.com/Barospooky/ecg-simulator/internal/stream"
)

func main() {
	c, err := config.Load()
	if err != nil {
		log.Crit("failed to load config", "error", err)
		os.Exit(1)
	}

	var (
		natsURL  = flag.String("nats", c.NatsURL, "NATS url")
		addr     = flag.String("addr", c.HTTPAddr, "http address")
		scenario = flag.String("scenario", c.Scenario, "initial beat configuration (JSON)")
		open     = flag.Bool("open", false, "open the dashboard in a browser")
		verbose  = flag.Bool("v", c.Verbose, "debug logging")
	)
	flag.Parse()

	if err := logging.Setup(*verbose, c.LogFile); err != nil {
		log.Crit("failed to set up logging", "error", err)
		os.Exit(1)
	}
	logger := logging.New("server")
	if !*verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg, err := config.LoadScenario(*scenario)
	if err != nil {
		logger.Crit("failed to load scenario", "error", err)
		os.Exit(1)
	}

	nc, err := stream.Connect(*natsURL, "server")
	if err != nil {
		logger.Crit("failed to connect", "url", *natsURL, "error", err)
		os.Exit(1)
	}
	defer nc.Drain()

	srv := api.NewServer(cfg, c.Display, nc, c.ControlSubject)

	subs := map[string]nats.MsgHandler{
		// Waves (binario passthrough)
		c.WaveSubject: func(msg *nats.Msg) { srv.OnWave(msg.Data) },
		// Frames y params (JSON)
		c.FrameSubject: func(msg *nats.Msg) {
			if err := srv.OnFrame(msg.Data); err != nil {
				logger.Warn("dropping frame", "error", err)
			}
		},
		c.ParamsSubject: func(msg *nats.Msg) {
			if err := srv.OnParams(msg.Data); err != nil {
				logger.Warn("dropping params", "error", err)
			}
		},
	}
	for subject, h := range subs {
		if _, err := nc.Subscribe(subject, h); err != nil {
			logger.Crit("failed to subscribe", "subject", subject, "error", err)
			os.Exit(1)
		}
	}

	server := &http.Server{Addr: *addr, Handler: srv.Router()}
	go func() {
		logger.Info("server running", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Crit("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	if *open {
		url := "http://" + dashboardHost(*addr) + "/chart"
		if err := browser.OpenURL(url); err != nil {
			logger.Warn("failed to open browser", "url", url, "error", err)
		}
	}

	ctx, stop := osSignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdown); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// dashboardHost turns a listen address like ":8080" into something a
// browser can reach.
func dashboardHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return strings.Replace(addr, "0.0.0.0", "localhost", 1)
}
