// ABOUTME: Channel membership change events and their handler bookkeeping.
// ABOUTME: Events arrive as service pushes; handles are resolved through the cache.

package fdc3

import (
	"log/slog"
	"sync"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// ChannelChangedEvent reports that a window moved between channels. Channel
// is nil if the window closed; PreviousChannel is nil if the window was newly
// created. Under normal operation at least one side is populated.
type ChannelChangedEvent struct {
	Identity        protocol.Identity
	Channel         Channel
	PreviousChannel Channel
}

// ChannelChangedHandler receives membership change events.
type ChannelChangedHandler func(event ChannelChangedEvent)

// changedListeners holds the session's channel-changed handlers in
// registration order.
type changedListeners struct {
	mu       sync.Mutex
	handlers []ChannelChangedHandler
	logger   *slog.Logger
}

func newChangedListeners(logger *slog.Logger) *changedListeners {
	return &changedListeners{logger: logger.With("component", "channel-changed")}
}

func (c *changedListeners) add(handler ChannelChangedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

func (c *changedListeners) notify(event ChannelChangedEvent) {
	c.mu.Lock()
	handlers := make([]ChannelChangedHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	for _, handler := range handlers {
		c.invoke(handler, event)
	}
}

func (c *changedListeners) invoke(handler ChannelChangedHandler, event ChannelChangedEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("channel-changed handler panicked", "panic", rec)
		}
	}()
	handler(event)
}
