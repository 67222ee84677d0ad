// ABOUTME: The remote service boundary the client core calls into.
// ABOUTME: Production dispatchers are websocket connections; tests supply fakes.

package fdc3

import (
	"context"
	"encoding/json"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// Dispatcher performs one request/response round trip against the provider.
// Every channel operation maps to exactly one Dispatch call. Implementations
// must decode the response payload into result when result is non-nil.
type Dispatcher interface {
	Dispatch(ctx context.Context, topic protocol.Topic, payload any, result any) error
}

// EventSource is implemented by dispatchers that can deliver service pushes.
// A dispatcher without it leaves the client's listener machinery inert:
// listeners still register locally and remotely, but nothing is ever
// delivered to them.
type EventSource interface {
	OnEvent(topic protocol.Topic, handler func(payload json.RawMessage))
}
