// Package anthropic implements the single supported Provider facade: it
// turns a models.CreateMessageRequest into a stream of models.StreamEvent
// by pairing internal/transport's retrying HTTP client with internal/sse's
// incremental decoder. This is the only dialect spoken; there is no
// multi-provider abstraction.
package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/kilnhq/relay/internal/apierr"
	"github.com/kilnhq/relay/internal/provider"
	"github.com/kilnhq/relay/internal/sse"
	"github.com/kilnhq/relay/internal/transport"
	"github.com/kilnhq/relay/pkg/models"
)

const defaultBaseURL = "https://api.anthropic.com"

// Provider implements the agent's provider facade against the Anthropic
// Messages API.
type Provider struct {
	client *transport.Client
	logger *slog.Logger
}

// NewProvider creates a Provider authenticating with apiKey.
func NewProvider(apiKey string, opts ...transport.Option) *Provider {
	client := transport.NewClient(defaultBaseURL, apiKey, opts...)
	return &Provider{client: client, logger: slog.Default()}
}

// NewProviderWithClient wraps an already-constructed transport.Client,
// useful for injecting a client pointed at a test server.
func NewProviderWithClient(client *transport.Client) *Provider {
	return &Provider{client: client, logger: slog.Default()}
}

// Name identifies this provider implementation.
func (p *Provider) Name() string { return "anthropic" }

// CreateMessageStream sends request (forced into streaming mode) and
// returns an EventStream over the response body.
func (p *Provider) CreateMessageStream(ctx context.Context, request models.CreateMessageRequest) (provider.EventStream, error) {
	request.Stream = true
	body, err := json.Marshal(request)
	if err != nil {
		return nil, &apierr.BadRequestError{Message: err.Error()}
	}

	respBody, err := p.client.StreamMessage(ctx, body)
	if err != nil {
		return nil, err
	}

	return &httpEventStream{
		body:    respBody,
		reader:  bufio.NewReaderSize(respBody, 64*1024),
		decoder: sse.NewDecoder(p.logger),
	}, nil
}

// httpEventStream pulls chunks off the response body, feeds them to the
// SSE decoder, and serves decoded events one at a time from an internal
// buffer so Next can return a single event per call even though Feed
// returns a batch.
type httpEventStream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	decoder *sse.Decoder
	pending []models.StreamEvent
	readErr error
}

func (s *httpEventStream) Next(ctx context.Context) (models.StreamEvent, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}
		if s.readErr != nil {
			return models.StreamEvent{}, s.readErr
		}
		if err := ctx.Err(); err != nil {
			return models.StreamEvent{}, err
		}

		chunk := make([]byte, 32*1024)
		n, err := s.reader.Read(chunk)
		if n > 0 {
			events, decodeErr := s.decoder.Feed(chunk[:n])
			if decodeErr != nil {
				s.readErr = decodeErr
			}
			s.pending = append(s.pending, events...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if s.readErr == nil {
					s.readErr = io.EOF
				}
			} else {
				s.readErr = &apierr.NetworkError{Message: err.Error()}
			}
		}
	}
}

func (s *httpEventStream) Close() error {
	return s.body.Close()
}
