// Package events publishes fleet lifecycle notifications to a message broker.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Kind identifies a lifecycle notification.
type Kind string

const (
	KindOperationStarted   Kind = "operation.started"
	KindOperationCompleted Kind = "operation.completed"
	KindAlertRaised        Kind = "alert.raised"
	KindAlertResolved      Kind = "alert.resolved"
)

// Event is one lifecycle notification.
type Event struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	TractorID   string    `json:"tractorId"`
	OperationID string    `json:"operationId,omitempty"`
	AlertID     string    `json:"alertId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload,omitempty"`
}

// New builds an event with a fresh id.
func New(kind Kind, tractorID string, at time.Time, payload any) Event {
	return Event{ID: uuid.NewString(), Kind: kind, TractorID: tractorID, Timestamp: at, Payload: payload}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Publish must honor ctx's deadline.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// mqttTopic is "<prefix>/<kind path>/<tractorId>", kind dots becoming levels.
func mqttTopic(prefix string, e Event) string {
	return prefix + "/" + strings.ReplaceAll(string(e.Kind), ".", "/") + "/" + e.TractorID
}

// natsSubject is "<prefix>.<kind>.<tractorId>".
func natsSubject(prefix string, e Event) string {
	return prefix + "." + string(e.Kind) + "." + e.TractorID
}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct {
	logger *log.Entry
}

// NewLogPublisher returns a publisher that logs events at debug level.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: log.WithField("component", "events")}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.WithFields(log.Fields{
		"id":           e.ID,
		"kind":         e.Kind,
		"tractor_id":   e.TractorID,
		"operation_id": e.OperationID,
		"alert_id":     e.AlertID,
	}).Debug("Lifecycle event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
