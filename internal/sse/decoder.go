package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/kilnhq/relay/internal/apierr"
	"github.com/kilnhq/relay/pkg/models"
)

// Decoder wraps a Parser and maps each complete SSE record onto a typed
// models.StreamEvent, logging and dropping unrecognised event types.
type Decoder struct {
	parser *Parser
	logger *slog.Logger
}

// NewDecoder creates a decoder. A nil logger falls back to slog.Default().
func NewDecoder(logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{parser: NewParser(), logger: logger}
}

// Feed appends chunk and returns any StreamEvents it completes. A JSON
// parse failure on a recognised event type returns the events decoded
// before it together with a non-retryable *apierr.StreamParseError;
// callers should stop consuming the stream on that error.
func (d *Decoder) Feed(chunk []byte) ([]models.StreamEvent, error) {
	records := d.parser.Feed(chunk)
	events := make([]models.StreamEvent, 0, len(records))
	for _, rec := range records {
		ev, ok, err := decodeRecord(rec, d.logger)
		if err != nil {
			return events, err
		}
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func decodeRecord(rec Event, logger *slog.Logger) (models.StreamEvent, bool, error) {
	if rec.EventType == "" {
		return models.StreamEvent{}, false, nil
	}

	parseErr := func(err error) error {
		return &apierr.StreamParseError{Message: fmt.Sprintf("%s: %v", rec.EventType, err)}
	}

	switch models.StreamEventType(rec.EventType) {
	case models.EventMessageStart:
		var w struct {
			Message models.CreateMessageResponse `json:"message"`
		}
		if err := json.Unmarshal([]byte(rec.Data), &w); err != nil {
			return models.StreamEvent{}, false, parseErr(err)
		}
		return models.StreamEvent{Type: models.EventMessageStart, Message: &w.Message}, true, nil

	case models.EventContentBlockStart:
		var w struct {
			Index        int                 `json:"index"`
			ContentBlock models.ContentBlock `json:"content_block"`
		}
		if err := json.Unmarshal([]byte(rec.Data), &w); err != nil {
			return models.StreamEvent{}, false, parseErr(err)
		}
		return models.StreamEvent{Type: models.EventContentBlockStart, Index: w.Index, ContentBlock: &w.ContentBlock}, true, nil

	case models.EventContentBlockDelta:
		var w struct {
			Index int                  `json:"index"`
			Delta models.ContentDelta `json:"delta"`
		}
		if err := json.Unmarshal([]byte(rec.Data), &w); err != nil {
			return models.StreamEvent{}, false, parseErr(err)
		}
		return models.StreamEvent{Type: models.EventContentBlockDelta, Index: w.Index, Delta: &w.Delta}, true, nil

	case models.EventContentBlockStop:
		var w struct {
			Index int `json:"index"`
		}
		if err := json.Unmarshal([]byte(rec.Data), &w); err != nil {
			return models.StreamEvent{}, false, parseErr(err)
		}
		return models.StreamEvent{Type: models.EventContentBlockStop, Index: w.Index}, true, nil

	case models.EventMessageDelta:
		var w struct {
			Delta models.MessageDelta `json:"delta"`
			Usage *models.Usage       `json:"usage"`
		}
		if err := json.Unmarshal([]byte(rec.Data), &w); err != nil {
			return models.StreamEvent{}, false, parseErr(err)
		}
		return models.StreamEvent{Type: models.EventMessageDelta, MessageDelta: &w.Delta, Usage: w.Usage}, true, nil

	case models.EventMessageStop:
		return models.StreamEvent{Type: models.EventMessageStop}, true, nil

	case models.EventPing:
		return models.StreamEvent{Type: models.EventPing}, true, nil

	case models.EventError:
		var w struct {
			Error models.APIErrorResponse `json:"error"`
		}
		if err := json.Unmarshal([]byte(rec.Data), &w); err != nil {
			return models.StreamEvent{}, false, parseErr(err)
		}
		return models.StreamEvent{Type: models.EventError, Error: &w.Error}, true, nil

	default:
		logger.Debug("unknown SSE event type, dropping", "event_type", rec.EventType)
		return models.StreamEvent{}, false, nil
	}
}
