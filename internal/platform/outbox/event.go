// Package outbox queues local-save events in a Redis stream so a worker can mirror
// them to the remote backend without holding up the request that saved them.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	PatientRegistered            EventType = "patient.registered"
	VitalsRecorded               EventType = "vitals.recorded"
	GeneralAssessmentRecorded    EventType = "assessment.general"
	OverweightAssessmentRecorded EventType = "assessment.overweight"
)

// Event is one queued change. ID is the stream entry id and is only set on read.
type Event struct {
	ID          string
	Type        EventType
	AggregateID string
	OccurredAt  time.Time
	Payload     json.RawMessage
}

func NewEvent(typ EventType, aggregateID string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Event{
		Type:        typ,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

func (e Event) values() map[string]interface{} {
	return map[string]interface{}{
		"type":         string(e.Type),
		"aggregate_id": e.AggregateID,
		"occurred_at":  e.OccurredAt.Format(time.RFC3339Nano),
		"payload":      string(e.Payload),
	}
}

func eventFromValues(id string, values map[string]interface{}) (Event, error) {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}
	e := Event{
		ID:          id,
		Type:        EventType(str("type")),
		AggregateID: str("aggregate_id"),
		Payload:     json.RawMessage(str("payload")),
	}
	if e.Type == "" {
		return e, fmt.Errorf("entry %s has no event type", id)
	}
	if !json.Valid(e.Payload) {
		return e, fmt.Errorf("entry %s has an invalid payload", id)
	}
	if at := str("occurred_at"); at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return e, fmt.Errorf("entry %s: occurred_at: %w", id, err)
		}
		e.OccurredAt = t
	}
	return e, nil
}
