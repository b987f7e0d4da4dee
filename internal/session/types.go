// Package session implements persistent conversation sessions: the
// file-per-session JSON store, context/token estimation, and
// auto-labelling shown in the CLI's session list.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilnhq/relay/internal/format"
	"github.com/kilnhq/relay/internal/stringutil"
	"github.com/kilnhq/relay/pkg/models"
)

// Metadata is stored alongside a session's conversation transcript.
type Metadata struct {
	Model string `json:"model"`
	Cwd   string `json:"cwd"`
	Label string `json:"label,omitempty"`
}

// Session is a persistent conversation: an ordered message transcript plus
// accounting metadata. It is the unit of persistence for the session store.
type Session struct {
	ID               uuid.UUID        `json:"id"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Messages         []models.Message `json:"messages"`
	TotalUsage       models.Usage     `json:"total_usage"`
	Metadata         Metadata         `json:"metadata"`
	CompactionCount  uint32           `json:"compaction_count"`
}

// New creates a new, empty session for the given model and working directory.
func New(model, cwd string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  Metadata{Model: model, Cwd: cwd},
	}
}

// ShortID returns the first 8 hex characters of the session's ID, as shown
// in session listings.
func (s *Session) ShortID() string {
	return s.ID.String()[:8]
}

// Preview returns a one-line excerpt of the first user text message,
// truncated to 80 bytes on a UTF-8 boundary with a trailing ellipsis.
func (s *Session) Preview() string {
	for _, msg := range s.Messages {
		if msg.Role != models.RoleUser {
			continue
		}
		for _, block := range msg.Content {
			if block.Type != models.BlockText {
				continue
			}
			trimmed := strings.TrimSpace(block.Text)
			if trimmed == "" {
				continue
			}
			return stringutil.TruncateWithEllipsis(trimmed, 77)
		}
	}
	return ""
}

// AutoLabel sets Metadata.Label from the first non-empty user text message,
// truncated to 60 bytes. No-op if a label is already set.
func (s *Session) AutoLabel() {
	if s.Metadata.Label != "" {
		return
	}
	for _, msg := range s.Messages {
		if msg.Role != models.RoleUser {
			continue
		}
		for _, block := range msg.Content {
			if block.Type != models.BlockText {
				continue
			}
			trimmed := strings.TrimSpace(block.Text)
			if trimmed == "" {
				continue
			}
			s.Metadata.Label = stringutil.Truncate(trimmed, 60)
			return
		}
	}
}

// Summary builds a lightweight Summary for listing.
func (s *Session) Summary() Summary {
	return Summary{
		ID:                s.ID,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		Model:             s.Metadata.Model,
		Cwd:               s.Metadata.Cwd,
		MessageCount:      len(s.Messages),
		TotalInputTokens:  s.TotalUsage.InputTokens,
		TotalOutputTokens: s.TotalUsage.OutputTokens,
		Label:             s.Metadata.Label,
		Preview:           s.Preview(),
	}
}

// Summary is a lightweight view of a Session used for listing. Store.List
// still reads and parses each full session file to build it.
type Summary struct {
	ID                uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Model             string
	Cwd               string
	MessageCount      int
	TotalInputTokens  uint64
	TotalOutputTokens uint64
	Label             string
	Preview           string
}

// ShortID returns the first 8 hex characters of the summary's ID.
func (s Summary) ShortID() string {
	return s.ID.String()[:8]
}

// Age renders a human-readable age string such as "2h ago" or "3d ago".
func (s Summary) Age() string {
	d := time.Since(s.UpdatedAt)
	minutes := int64(d.Minutes())
	switch {
	case minutes < 1:
		return format.FormatDurationMsInt(d.Milliseconds()) + " ago"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 1440:
		return fmt.Sprintf("%dh ago", minutes/60)
	default:
		return fmt.Sprintf("%dd ago", minutes/1440)
	}
}
