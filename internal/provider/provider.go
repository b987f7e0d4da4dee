// Package provider declares the narrow seam the agent loop talks to the
// outside world for inference through: one method to open a streamed
// turn, plus a name tag. internal/providers/anthropic is the only
// implementation; the interface exists so the agent loop never imports a
// concrete wire dialect.
package provider

import (
	"context"

	"github.com/kilnhq/relay/pkg/models"
)

// EventStream yields StreamEvents one at a time until Next returns io.EOF.
type EventStream interface {
	Next(ctx context.Context) (models.StreamEvent, error)
	Close() error
}

// Provider turns a request into a streamed turn.
type Provider interface {
	Name() string
	CreateMessageStream(ctx context.Context, request models.CreateMessageRequest) (EventStream, error)
}
