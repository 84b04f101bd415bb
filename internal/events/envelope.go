package events

import (
	"encoding/json"
	"fmt"
)

// Envelope is the generic wire DTO for a live subscription: a named event plus
// a JSON payload. The name is the event type for dispatched domain events, or
// one of the stream-only names (INIT, HEARTBEAT).
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope wraps a domain event for transmission.
func NewEnvelope(e Event) (Envelope, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal event: %w", err)
	}
	return Envelope{Event: string(e.Type), Data: data}, nil
}

// InitEnvelope is sent once, immediately after a subscription is accepted.
func InitEnvelope(subscriptionID string) Envelope {
	data, _ := json.Marshal(map[string]string{"subscriptionId": subscriptionID})
	return Envelope{Event: StreamInit, Data: data}
}

// HeartbeatEnvelope is the periodic keep-alive with a fixed payload.
func HeartbeatEnvelope() Envelope {
	return Envelope{Event: StreamHeartbeat, Data: json.RawMessage(`"ping"`)}
}
