package session

import (
	"strings"
	"testing"

	"github.com/kilnhq/relay/pkg/models"
)

func textMsg(role models.Role, text string) models.Message {
	return models.Message{Role: role, Content: []models.ContentBlock{models.TextBlock(text)}}
}

func TestAutoLabelSetsFromFirstUserMessage(t *testing.T) {
	s := New("test", "/tmp")
	s.Messages = append(s.Messages, textMsg(models.RoleUser, "Fix the auth bug"))
	s.Messages = append(s.Messages, textMsg(models.RoleAssistant, "OK"))
	s.AutoLabel()
	if s.Metadata.Label != "Fix the auth bug" {
		t.Fatalf("got %q", s.Metadata.Label)
	}
}

func TestAutoLabelTruncatesLongMessages(t *testing.T) {
	s := New("test", "/tmp")
	s.Messages = append(s.Messages, textMsg(models.RoleUser, strings.Repeat("a", 100)))
	s.AutoLabel()
	if len(s.Metadata.Label) > 60 {
		t.Fatalf("expected truncated label, got %d bytes", len(s.Metadata.Label))
	}
}

func TestAutoLabelNoopIfAlreadySet(t *testing.T) {
	s := New("test", "/tmp")
	s.Metadata.Label = "Existing label"
	s.Messages = append(s.Messages, textMsg(models.RoleUser, "New message"))
	s.AutoLabel()
	if s.Metadata.Label != "Existing label" {
		t.Fatalf("got %q", s.Metadata.Label)
	}
}

func TestAutoLabelNoopIfNoUserMessages(t *testing.T) {
	s := New("test", "/tmp")
	s.AutoLabel()
	if s.Metadata.Label != "" {
		t.Fatalf("expected no label, got %q", s.Metadata.Label)
	}
}

func TestPreviewTruncatesWithUnicodeSafety(t *testing.T) {
	s := New("test", "/tmp")
	emojis := strings.Repeat("\U0001F600", 82)
	s.Messages = append(s.Messages, textMsg(models.RoleUser, emojis))
	preview := s.Preview()
	if !strings.HasSuffix(preview, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", preview)
	}
}
