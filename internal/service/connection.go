// ABOUTME: Represents a single connected window and manages its websocket writes.
// ABOUTME: Tracks the connection's per-channel context subscriptions.

package service

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// frameWriter is the socket surface a Connection writes through. Satisfied by
// *websocket.Conn; tests substitute a recorder.
type frameWriter interface {
	WriteJSON(v any) error
	Close() error
}

// Connection represents one connected window. The service sees at most one
// context subscription per channel id per connection: the client collapses
// its local listeners before the subscription reaches us.
type Connection struct {
	Identity protocol.Identity

	ws      frameWriter
	writeMu sync.Mutex

	mu            sync.RWMutex
	subscriptions map[protocol.ChannelID]bool
}

// NewConnection wraps an upgraded websocket for a window.
func NewConnection(identity protocol.Identity, ws frameWriter) *Connection {
	return &Connection{
		Identity:      identity,
		ws:            ws,
		subscriptions: make(map[protocol.ChannelID]bool),
	}
}

// Subscribe marks the connection as listening for contexts on a channel.
func (c *Connection) Subscribe(channelID protocol.ChannelID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[channelID] = true
}

// Unsubscribe drops the connection's context subscription for a channel.
func (c *Connection) Unsubscribe(channelID protocol.ChannelID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, channelID)
}

// IsSubscribed reports whether the connection listens on a channel.
func (c *Connection) IsSubscribed(channelID protocol.ChannelID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[channelID]
}

// Push sends an unsolicited event frame to the window.
func (c *Connection) Push(topic protocol.Topic, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s push: %w", topic, err)
	}
	return c.writeFrame(&protocol.Frame{Topic: topic, Payload: raw})
}

// Respond answers a request frame with a payload.
func (c *Connection) Respond(requestID string, topic protocol.Topic, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s response: %w", topic, err)
		}
		raw = data
	}
	return c.writeFrame(&protocol.Frame{ID: requestID, Topic: topic, Payload: raw})
}

// RespondError answers a request frame with a service error.
func (c *Connection) RespondError(requestID string, topic protocol.Topic, svcErr *protocol.ServiceError) error {
	return c.writeFrame(&protocol.Frame{ID: requestID, Topic: topic, Error: svcErr})
}

// writeFrame serializes websocket writes; gorilla connections allow only one
// concurrent writer.
func (c *Connection) writeFrame(frame *protocol.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(frame)
}

// Close closes the underlying websocket.
func (c *Connection) Close() error {
	return c.ws.Close()
}
