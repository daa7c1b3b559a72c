package stream

import (
	"time"

	log "github.com/inconshreveable/log15"
	"github.com/nats-io/nats.go"
)

// Subjects shared by the binaries.
const (
	SubjectWave    = "ecg.wave"
	SubjectFrame   = "ecg.frame"
	SubjectParams  = "ecg.params"
	SubjectControl = "ecg.control"
)

// Connect dials NATS with reconnects enabled forever. name identifies the
// client in server monitoring.
func Connect(url, name string) (*nats.Conn, error) {
	logger := log.New("component", "nats", "client", name)
	return nats.Connect(
		url,
		nats.Name("ecg-simulator/"+name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected", "url", nc.ConnectedUrl())
		}),
	)
}
