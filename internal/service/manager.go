// ABOUTME: Manages connected windows and routes context broadcasts between them.
// ABOUTME: Central coordinator for membership changes and push fanout.

package service

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/bryangaleOF/fdc3-service/protocol"
)

// ErrWindowAlreadyConnected indicates a window with the same identity is
// already connected.
var ErrWindowAlreadyConnected = errors.New("window already connected")

// Manager coordinates all connected windows. It owns the broadcast fanout and
// keeps the registry's membership in step with connection lifecycle.
type Manager struct {
	registry *Registry

	mu          sync.RWMutex
	connections map[string]*Connection
	logger      *slog.Logger
}

// NewManager creates a Manager over the given registry.
func NewManager(registry *Registry, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:    registry,
		connections: make(map[string]*Connection),
		logger:      logger.With("component", "manager"),
	}
}

// Register adds a newly connected window, placing it on the default channel
// and announcing the membership change. Returns ErrWindowAlreadyConnected if
// the identity is already in use.
func (m *Manager) Register(conn *Connection) error {
	key := windowKey(conn.Identity)

	m.mu.Lock()
	if _, exists := m.connections[key]; exists {
		m.mu.Unlock()
		return ErrWindowAlreadyConnected
	}
	m.connections[key] = conn
	total := len(m.connections)
	m.mu.Unlock()

	m.registry.AddWindow(conn.Identity)
	m.logger.Info("window connected",
		"uuid", conn.Identity.UUID,
		"name", conn.Identity.Name,
		"total_windows", total,
	)

	defaultTransport, _ := m.registry.Get(protocol.DefaultChannelID)
	m.notifyChannelChanged(protocol.ChannelChangedPayload{
		Identity: conn.Identity,
		Channel:  &defaultTransport,
	})
	return nil
}

// Unregister removes a disconnected window and announces that it left its
// channel. Its channel's context clears if the window was the last member.
func (m *Manager) Unregister(identity protocol.Identity) {
	key := windowKey(identity)

	m.mu.Lock()
	_, exists := m.connections[key]
	if exists {
		delete(m.connections, key)
	}
	total := len(m.connections)
	m.mu.Unlock()

	if !exists {
		return
	}

	previous, ok := m.registry.RemoveWindow(identity)
	m.logger.Info("window disconnected",
		"uuid", identity.UUID,
		"name", identity.Name,
		"total_windows", total,
	)

	if ok {
		m.notifyChannelChanged(protocol.ChannelChangedPayload{
			Identity:        identity,
			PreviousChannel: &previous,
		})
	}
}

// Get retrieves the connection for a window identity.
func (m *Manager) Get(identity protocol.Identity) (*Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[windowKey(identity)]
	return conn, ok
}

// Join moves a window onto a channel, announces the change, and delivers the
// channel's current context to the window's subscription if it has one.
func (m *Manager) Join(identity protocol.Identity, channelID protocol.ChannelID) error {
	previous, err := m.registry.Join(identity, channelID)
	if err != nil {
		return err
	}

	channel, _ := m.registry.Get(channelID)
	m.logger.Debug("window joined channel",
		"uuid", identity.UUID,
		"name", identity.Name,
		"channel", channelID,
		"previous", previous.ID,
	)

	if previous.ID != channelID {
		m.notifyChannelChanged(protocol.ChannelChangedPayload{
			Identity:        identity,
			Channel:         &channel,
			PreviousChannel: &previous,
		})
	}

	// A joining window immediately receives the channel's current context.
	if context := m.registry.Context(channelID); context != nil {
		if conn, ok := m.Get(identity); ok && conn.IsSubscribed(channelID) {
			if err := conn.Push(protocol.TopicChannelContext, protocol.ChannelContextPayload{
				Channel: channelID,
				Context: *context,
			}); err != nil {
				m.logger.Warn("failed to deliver context on join",
					"uuid", identity.UUID,
					"channel", channelID,
					"error", err)
			}
		}
	}

	return nil
}

// Broadcast records the context on the channel and pushes it to every
// subscribed member except the broadcasting window itself. Membership of the
// sender is not required.
func (m *Manager) Broadcast(sender protocol.Identity, channelID protocol.ChannelID, context protocol.Context) {
	m.registry.SetContext(channelID, context)

	senderKey := windowKey(sender)
	payload := protocol.ChannelContextPayload{Channel: channelID, Context: context}

	for _, member := range m.registry.Members(channelID) {
		key := windowKey(member)
		if key == senderKey {
			continue
		}

		m.mu.RLock()
		conn, ok := m.connections[key]
		m.mu.RUnlock()
		if !ok || !conn.IsSubscribed(channelID) {
			continue
		}

		if err := conn.Push(protocol.TopicChannelContext, payload); err != nil {
			m.logger.Warn("failed to push context",
				"uuid", member.UUID,
				"channel", channelID,
				"error", err)
		}
	}
}

// notifyChannelChanged pushes a membership change to every connected window.
func (m *Manager) notifyChannelChanged(payload protocol.ChannelChangedPayload) {
	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		targets = append(targets, conn)
	}
	m.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Push(protocol.TopicChannelChanged, payload); err != nil {
			m.logger.Warn("failed to push channel change",
				"uuid", conn.Identity.UUID,
				"error", err)
		}
	}
}
