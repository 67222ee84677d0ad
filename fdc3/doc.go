// Package fdc3 is the client library for the fdc3 context-channel service.
//
// # Overview
//
// Windows of desktop applications connect to a central provider, join named
// channels, broadcast typed context payloads on them, and listen for contexts
// broadcast by other windows. Every window is on exactly one channel at all
// times; it starts on the default channel and moves by joining another.
//
// # Client
//
// The Client owns all per-session state: the canonical channel handle cache,
// the context listener registry, and the inbound dispatch hook. Construct one
// with Connect (dials the provider over websocket) or New (wraps any
// Dispatcher, e.g. a fake in tests):
//
//	client, err := fdc3.Connect(ctx, "ws://localhost:4560/fdc3", protocol.Identity{UUID: "my-app"}, logger)
//	if err != nil { ... }
//	defer client.Close()
//
//	red, err := client.GetChannelByID(ctx, "red")
//	if err != nil { ... }
//	listener, err := red.AddContextListener(ctx, func(context protocol.Context) { ... })
//
// # Channels
//
// Channel is the handle contract shared by both variants: the stateless
// default channel and the service-configured desktop channels with display
// metadata. Handles are canonical: resolving the same channel id twice on one
// client yields the same instance.
//
// # Listeners
//
// Many listeners may exist per channel; the client collapses them into at
// most one service-level subscription per channel id. The first listener for
// an id subscribes remotely, the removal of the last one unsubscribes.
package fdc3
