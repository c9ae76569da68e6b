package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// NATSPublisher publishes events on core NATS subjects. Each message carries
// a Nats-Msg-Id header so JetStream streams bound to the subjects dedupe
// redeliveries.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher wraps an open connection.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// DialNATS connects to url and returns a publisher for it.
func DialNATS(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("farmtrack"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.WithField("url", url).Info("Connected to NATS")
	return NewNATSPublisher(nc, prefix), nil
}

// Publish sends e and flushes so that delivery failures surface within ctx.
func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := e.encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := nats.NewMsg(natsSubject(p.prefix, e))
	msg.Header.Set(nats.MsgIdHdr, e.ID)
	msg.Data = data
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
	}
	if _, ok := ctx.Deadline(); !ok {
		return p.nc.Flush()
	}
	return p.nc.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
