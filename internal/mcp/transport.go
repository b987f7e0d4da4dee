package mcp

import (
	"context"
	"encoding/json"
)

// Transport defines the interface for an MCP server connection. relay
// only implements the stdio transport; the interface stays separate from
// StdioTransport so client.go can be unit-tested against a fake.
type Transport interface {
	// Connect establishes the transport connection.
	Connect(ctx context.Context) error

	// Close closes the transport connection.
	Close() error

	// Call sends a request and waits for a response.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Notify sends a notification (no response expected).
	Notify(ctx context.Context, method string, params any) error

	// Events returns a channel for receiving notifications from the server.
	Events() <-chan *JSONRPCNotification

	// Connected returns whether the transport is connected.
	Connected() bool
}

// NewTransport creates the stdio transport for cfg.
func NewTransport(cfg *ServerConfig) Transport {
	return NewStdioTransport(cfg)
}
