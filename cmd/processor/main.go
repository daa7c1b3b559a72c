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

	"github.com/Barospooky/ecg-simulator/internal/analysis"
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
		natsURL = flag.String("nats", c.NatsURL, "NATS url")
		in      = flag.String("in", c.WaveSubject, "input subject")
		out     = flag.String("out", c.ParamsSubject, "output subject")
		broker  = flag.String("mqtt", c.MqttBroker, "MQTT broker to mirror heart rate to (tcp://host:1883)")
		topic   = flag.String("topic", c.MqttTopic, "MQTT topic")
		verbose = flag.Bool("v", c.Verbose, "debug logging")
	)
	flag.Parse()

	if err := logging.Setup(*verbose, c.LogFile); err != nil {
		log.Crit("failed to set up logging", "error", err)
		os.Exit(1)
	}
	logger := logging.New("processor")

	nc, err := stream.Connect(*natsURL, "processor")
	if err != nil {
		logger.Crit("failed to connect", "url", *natsURL, "error", err)
		os.Exit(1)
	}
	defer nc.Drain()

	var mirror *stream.MQTTPublisher
	if *broker != "" {
		mirror, err = stream.NewMQTTPublisher(*broker, *topic)
		if err != nil {
			logger.Crit("failed to connect mqtt", "error", err)
			os.Exit(1)
		}
		defer mirror.Close()
	}

	detector := analysis.NewHRDetector()
	var next uint64

	// NATS delivers a subscription's messages one at a time, so the
	// detector is only touched from here.
	_, err = nc.Subscribe(*in, func(msg *nats.Msg) {
		pkt, err := stream.DecodeWave(msg.Data)
		if err != nil {
			logger.Warn("dropping wave packet", "error", err)
			return
		}
		if pkt.First != next {
			if pkt.First < next {
				logger.Info("stream restarted", "first", pkt.First)
				detector.Reset()
			} else {
				logger.Debug("samples lost", "missing", pkt.First-next)
			}
		}
		next = pkt.First + uint64(len(pkt.Samples))

		for i, v := range pkt.Samples {
			bpm, ok := detector.Process(v, pkt.Offset(i))
			if !ok {
				continue
			}
			param := stream.ParamMsg{
				Subject: *out,
				Ts:      time.Now().UnixMilli(),
				HR:      bpm,
			}
			b, err := json.Marshal(param)
			if err != nil {
				logger.Error("failed to encode heart rate", "error", err)
				continue
			}
			if err := nc.Publish(*out, b); err != nil {
				logger.Warn("publish failed", "subject", *out, "error", err)
			}
			if mirror != nil {
				if err := mirror.Publish(param); err != nil {
					logger.Warn("mqtt publish failed", "error", err)
				}
			}
			logger.Info("heart rate detected", "bpm", bpm)
		}
	})
	if err != nil {
		logger.Crit("failed to subscribe", "subject", *in, "error", err)
		os.Exit(1)
	}

	ctx, stop := osSignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("processor running", "in", *in, "out", *out, "mqtt", *broker)
	<-ctx.Done()
	logger.Info("processor stopped")
}
