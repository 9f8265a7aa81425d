// Package events defines the envelope every domain event travels in, the
// payloads it can carry and the Notifier the core publishes through.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// EventType represents the type of a domain event
type EventType string

const (
	EventTypeSessionCreated     EventType = "SessionCreated"
	EventTypeSessionStarted     EventType = "SessionStarted"
	EventTypeSessionPaused      EventType = "SessionPaused"
	EventTypeSessionResumed     EventType = "SessionResumed"
	EventTypeSessionCancelled   EventType = "SessionCancelled"
	EventTypeSessionCompleted   EventType = "SessionCompleted"
	EventTypeSessionHalted      EventType = "SessionHalted"
	EventTypePickStarted        EventType = "PickStarted"
	EventTypePickMade           EventType = "PickMade"
	EventTypeLotNominated       EventType = "LotNominated"
	EventTypeBidPlaced          EventType = "BidPlaced"
	EventTypeLotResolved        EventType = "LotResolved"
	EventTypeTransactionApplied EventType = "TransactionApplied"
)

// Envelope wraps a payload with the identity subscribers de-duplicate on.
// Sequence increases by one per event within StreamID, which is the draft
// session for draft events and the team-season row for transactions.
type Envelope struct {
	ID         uuid.UUID       `json:"eventId"`
	Type       EventType       `json:"eventType"`
	SeasonID   uuid.UUID       `json:"seasonId"`
	SessionID  uuid.UUID       `json:"sessionId"`
	StreamID   uuid.UUID       `json:"streamId"`
	Sequence   int64           `json:"sequence"`
	OccurredAt time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an envelope around payload.
func New(t EventType, seasonID, sessionID, streamID uuid.UUID, seq int64, at time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return Envelope{
		ID:         uuid.New(),
		Type:       t,
		SeasonID:   seasonID,
		SessionID:  sessionID,
		StreamID:   streamID,
		Sequence:   seq,
		OccurredAt: at.UTC(),
		Payload:    data,
	}, nil
}

// Decode unmarshals the envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var out T
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
	}
	return out, nil
}

// Record converts the envelope into an outbox row. The row payload is the
// whole envelope so the relay can publish it unchanged.
func (e Envelope) Record() (storage.OutboxRecord, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return storage.OutboxRecord{}, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return storage.OutboxRecord{
		ID:        e.ID,
		SeasonID:  e.SeasonID,
		StreamID:  e.StreamID,
		Sequence:  e.Sequence,
		EventType: string(e.Type),
		Payload:   data,
		CreatedAt: e.OccurredAt,
	}, nil
}

// Parse decodes an envelope from its wire form.
func Parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.ID == uuid.Nil || env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing id or type")
	}
	return env, nil
}

// Notifier receives committed events. Delivery is at-least-once; consumers
// de-duplicate on (StreamID, Sequence).
type Notifier interface {
	Notify(ctx context.Context, env Envelope)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, env Envelope)

func (f NotifierFunc) Notify(ctx context.Context, env Envelope) { f(ctx, env) }

// Fanout delivers to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, env Envelope) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, env)
		}
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Envelope) {}
