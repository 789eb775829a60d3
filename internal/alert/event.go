// Package alert delivers pipeline events to external sinks. Delivery is
// fire-and-forget: the pipeline never waits for a sink and failed deliveries
// are logged, not retried.
package alert

import (
	"context"
	"encoding/json"
	"time"
)

// Kind identifies what happened.
type Kind string

const (
	// KindIdentityChanged fires when a different registered face is accepted.
	KindIdentityChanged Kind = "identity_changed"
	// KindUnmasked fires the first time a registered face is seen without a mask.
	KindUnmasked Kind = "unmasked"
)

// Event is one alert.
type Event struct {
	Kind          Kind      `json:"kind"`
	Label         string    `json:"label"`
	PreviousLabel string    `json:"previous_label,omitempty"`
	Contact       string    `json:"contact,omitempty"`
	At            time.Time `json:"at"`
}

// JSON returns the wire payload shared by the network sinks.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Sink delivers events somewhere.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}
