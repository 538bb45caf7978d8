// Package telemetry emits audit events onto the message bus. The audit trail
// outlives request logs, so anything a moderator might ask about later
// (message sends, thread deletions) goes through here.
package telemetry

import (
	"context"
	"log"
	"time"
)

// Publisher is the transport audit envelopes are written to.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEnvelope is the versioned wire format the audit pipeline consumes.
type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

// AuditPayload is the human-readable part of an audit event.
type AuditPayload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// AuditEmitter stamps service identity onto audit events and publishes them
// under a fixed routing key.
type AuditEmitter struct {
	sink        Publisher
	routingKey  string
	service     string
	environment string
}

func NewAuditEmitter(sink Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		sink:        sink,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one audit event. Failures are logged and dropped; auditing
// never blocks or fails the request that triggered it. Safe on a nil emitter.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *string) {
	if e == nil || e.sink == nil {
		return
	}

	log.Printf("audit: level=%s request_id=%s user_id=%v text=%q", level, requestID, userID, text)

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        userID,
		Payload:       AuditPayload{Level: level, Text: text},
	}
	if err := e.sink.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit: publish failed: %v", err)
	}
}
