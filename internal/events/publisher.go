package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/technosupport/secops/internal/metrics"
)

// Publisher delivers camera status events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishStatus(ctx context.Context, evt *CameraStatusChanged) error
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	conn       Conn
	subject    string
	maxRetries int
	dedup      *Dedup
	backoff    time.Duration
}

func NewNATSPublisher(conn Conn, subject string, maxRetries int, dedup *Dedup) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{
		conn:       conn,
		subject:    subject,
		maxRetries: maxRetries,
		dedup:      dedup,
		backoff:    100 * time.Millisecond,
	}
}

func (p *NATSPublisher) PublishStatus(ctx context.Context, evt *CameraStatusChanged) error {
	if p.dedup != nil && evt.DedupKey != "" && p.dedup.Seen(evt.DedupKey) {
		metrics.EventsPublishedTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	for i := 0; i <= p.maxRetries; i++ {
		err = p.conn.Publish(p.subject, data)
		if err == nil {
			if p.dedup != nil && evt.DedupKey != "" {
				p.dedup.Record(evt.DedupKey)
			}
			metrics.EventsPublishedTotal.WithLabelValues("success").Inc()
			return nil
		}

		select {
		case <-ctx.Done():
			metrics.EventsPublishedTotal.WithLabelValues("failure").Inc()
			return ctx.Err()
		case <-time.After(time.Duration(i) * p.backoff):
		}
	}

	metrics.EventsPublishedTotal.WithLabelValues("failure").Inc()
	return fmt.Errorf("publish failed after %d retries: %w", p.maxRetries, err)
}

// LogPublisher is used when no NATS URL is configured.
type LogPublisher struct{}

func (LogPublisher) PublishStatus(ctx context.Context, evt *CameraStatusChanged) error {
	log.Printf("[EVENTS] camera %s status %s -> %s", evt.CameraID, evt.Previous, evt.Status)
	return nil
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[EVENTS] NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[EVENTS] NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
}
