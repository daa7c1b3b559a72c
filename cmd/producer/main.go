package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/nats-io/nats.go"

	"github.com/Barospooky/ecg-simulator/internal/config"
	"github.com/Barospooky/ecg-simulator/internal/logging"
	"github.com/Barospooky/ecg-simulator/internal/signal"
	"github.com/Barospooky/ecg-simulator/internal/stream"
	"github.com/Barospooky/ecg-simulator/internal/sweep"
)

func main() {
	c, err := config.Load()
	if err != nil {
		log.Crit("failed to load config", "error", err)
		os.Exit(1)
	}

	var (
		natsURL   = flag.String("nats", c.NatsURL, "NATS url")
		scenario  = flag.String("scenario", c.Scenario, "beat configuration (JSON)")
		fs        = flag.Float64("fs", c.SampleRate, "sampling rate Hz")
		frameRate = flag.Float64("fps", c.FrameRate, "sweep frames per second")
		batch     = flag.Int("batch", c.Batch, "samples per message")
		noise     = flag.Float64("noise", c.Noise, "noise amplitude mV")
		verbose   = flag.Bool("v", c.Verbose, "debug logging")
	)
	flag.Parse()

	if err := logging.Setup(*verbose, c.LogFile); err != nil {
		log.Crit("failed to set up logging", "error", err)
		os.Exit(1)
	}
	logger := logging.New("producer")

	cfg, err := config.LoadScenario(*scenario)
	if err != nil {
		logger.Crit("failed to load scenario", "error", err)
		os.Exit(1)
	}

	engine := sweep.New(c.Display)
	if err := engine.ApplyParameters(cfg); err != nil {
		logger.Crit("invalid scenario", "error", err)
		os.Exit(1)
	}
	sim, err := signal.NewECGSim(*fs, cfg, *noise)
	if err != nil {
		logger.Crit("invalid scenario", "error", err)
		os.Exit(1)
	}

	nc, err := stream.Connect(*natsURL, "producer")
	if err != nil {
		logger.Crit("failed to connect", "url", *natsURL, "error", err)
		os.Exit(1)
	}
	defer nc.Drain()

	updates := make(chan signal.BeatConfig, 1)
	_, err = nc.Subscribe(c.ControlSubject, func(msg *nats.Msg) {
		next := signal.DefaultBeatConfig()
		if err := json.Unmarshal(msg.Data, &next); err != nil {
			logger.Warn("dropping control message", "error", err)
			return
		}
		// solo importa la última edición
		select {
		case <-updates:
		default:
		}
		updates <- next
	})
	if err != nil {
		logger.Crit("failed to subscribe", "subject", c.ControlSubject, "error", err)
		os.Exit(1)
	}

	ctx, stop := osSignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("producer running", "fs", *fs, "fps", *frameRate, "heart_rate", cfg.Base.HeartRate)
	p := &producer{
		nc:      nc,
		c:       c,
		engine:  engine,
		sim:     sim,
		rate:    *fs,
		batch:   max(*batch, 1),
		updates: updates,
		log:     logger,
	}
	p.run(ctx, *frameRate)
	logger.Info("producer stopped", "samples", p.index)
}

// producer owns the sweep engine and the sampler. Only run touches them.
type producer struct {
	nc      *nats.Conn
	c       config.Config
	engine  *sweep.Engine
	sim     *signal.ECGSim
	rate    float64
	batch   int
	updates <-chan signal.BeatConfig
	log     log.Logger

	buffer []float32
	index  uint64
	first  uint64
}

func (p *producer) run(ctx context.Context, frameRate float64) {
	if !(frameRate > 0) {
		frameRate = config.Default().FrameRate
	}
	frames := time.NewTicker(time.Duration(float64(time.Second) / frameRate))
	defer frames.Stop()
	samples := time.NewTicker(time.Duration(float64(time.Second) / p.rate))
	defer samples.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return

		case cfg := <-p.updates:
			p.apply(cfg)

		case now := <-frames.C:
			f := p.engine.Advance(now.Sub(last).Seconds())
			last = now
			if f.Wrapped {
				if err := p.engine.Err(); err != nil {
					p.log.Error("sweep refill failed", "error", err)
				}
				p.log.Debug("sweep wrapped", "sweep", f.Sweep+1, "beats", p.engine.State().Beats)
			}
			b, err := stream.EncodeFrame(f, now)
			if err != nil {
				p.log.Error("failed to encode frame", "error", err)
				continue
			}
			p.publish(p.c.FrameSubject, b)

		case <-samples.C:
			// batch de samples con el índice del primero
			if len(p.buffer) == 0 {
				p.first = p.index
			}
			p.buffer = append(p.buffer, p.sim.Next())
			p.index++
			if len(p.buffer) >= p.batch {
				p.publish(p.c.WaveSubject, stream.EncodeWave(stream.WavePacket{
					Rate:    uint32(p.rate),
					First:   p.first,
					Samples: p.buffer,
				}))
				p.buffer = p.buffer[:0]
			}
		}
	}
}

// apply hands a parameter edit to both the sweep and the sampler. A
// rejected edit leaves both untouched.
func (p *producer) apply(cfg signal.BeatConfig) {
	if err := p.engine.ApplyParameters(cfg); err != nil {
		p.log.Warn("rejected parameters", "error", err)
		return
	}
	if err := p.sim.Apply(cfg); err != nil {
		p.log.Warn("sampler rejected parameters", "error", err)
		return
	}
	p.log.Info("parameters applied", "heart_rate", cfg.Base.HeartRate, "custom", cfg.CustomEnabled)
}

func (p *producer) publish(subject string, b []byte) {
	if err := p.nc.Publish(subject, b); err != nil {
		p.log.Warn("publish failed", "subject", subject, "error", err)
	}
}
