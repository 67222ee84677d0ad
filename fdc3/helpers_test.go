// ABOUTME: Fake dispatchers for exercising the client core without a provider.
// ABOUTME: Records every dispatched call and plays back canned responses per topic.

package fdc3

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// fakeDispatcher implements Dispatcher only: no events, so a client built on
// it runs in the inert-delivery mode.
type fakeDispatcher struct {
	mu      sync.Mutex
	respond map[protocol.Topic]func(payload []byte) (any, error)
	calls   map[protocol.Topic][][]byte
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		respond: make(map[protocol.Topic]func(payload []byte) (any, error)),
		calls:   make(map[protocol.Topic][][]byte),
	}
}

// respondWith installs a canned responder for a topic. Topics without one
// acknowledge with an empty payload.
func (d *fakeDispatcher) respondWith(topic protocol.Topic, fn func(payload []byte) (any, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.respond[topic] = fn
}

// count returns how many calls were dispatched for a topic.
func (d *fakeDispatcher) count(topic protocol.Topic) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls[topic])
}

// lastCall returns the most recent payload dispatched for a topic.
func (d *fakeDispatcher) lastCall(t *testing.T, topic protocol.Topic) []byte {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.calls[topic], "no calls dispatched for %s", topic)
	return d.calls[topic][len(d.calls[topic])-1]
}

func (d *fakeDispatcher) Dispatch(_ context.Context, topic protocol.Topic, payload any, result any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.calls[topic] = append(d.calls[topic], raw)
	fn := d.respond[topic]
	d.mu.Unlock()

	if fn == nil {
		return nil
	}
	value, err := fn(raw)
	if err != nil {
		return err
	}
	if result != nil && value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, result)
	}
	return nil
}

// fakeEventDispatcher adds the EventSource side, letting tests push frames
// into the client's dispatch hook.
type fakeEventDispatcher struct {
	*fakeDispatcher

	handlersMu sync.Mutex
	handlers   map[protocol.Topic][]func(json.RawMessage)
}

func newFakeEventDispatcher() *fakeEventDispatcher {
	return &fakeEventDispatcher{
		fakeDispatcher: newFakeDispatcher(),
		handlers:       make(map[protocol.Topic][]func(json.RawMessage)),
	}
}

func (d *fakeEventDispatcher) OnEvent(topic protocol.Topic, handler func(payload json.RawMessage)) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers[topic] = append(d.handlers[topic], handler)
}

// push delivers a payload to every handler registered for the topic, the way
// the transport's event loop would.
func (d *fakeEventDispatcher) push(t *testing.T, topic protocol.Topic, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	d.handlersMu.Lock()
	handlers := d.handlers[topic]
	d.handlersMu.Unlock()

	for _, handler := range handlers {
		handler(raw)
	}
}

// desktopTransport is a shorthand for a desktop channel descriptor.
func desktopTransport(id protocol.ChannelID, name string, color uint32) protocol.ChannelTransport {
	return protocol.ChannelTransport{ID: id, Type: protocol.ChannelTypeDesktop, Name: name, Color: color}
}
