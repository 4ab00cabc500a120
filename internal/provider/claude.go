package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/norwick/ekko/internal/models"
)

// NewClaude returns an adapter for Claude-style linear exports
// (conversations.json with a flat chat_messages array and ISO-8601
// timestamps).
func NewClaude() *Adapter {
	return &Adapter{n: claudeNormalizer{}}
}

type claudeNormalizer struct{}

func (claudeNormalizer) Name() string { return "claude" }

// Raw shapes of a Claude export record.
type clConversation struct {
	UUID         string      `json:"uuid"`
	Name         string      `json:"name"`
	CreatedAt    string      `json:"created_at"`
	UpdatedAt    string      `json:"updated_at"`
	ChatMessages []clMessage `json:"chat_messages"`
}

type clMessage struct {
	UUID      string    `json:"uuid"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	CreatedAt string    `json:"created_at"`
	Content   []clBlock `json:"content"`
}

// clBlock is one typed content block. Only text blocks carry
// searchable content; tool_use and tool_result blocks are skipped.
type clBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var claudeRoles = map[string]models.Role{
	"human":     models.RoleUser,
	"user":      models.RoleUser,
	"assistant": models.RoleAssistant,
	"system":    models.RoleSystem,
}

func (claudeNormalizer) Normalize(raw json.RawMessage, index int) (models.Conversation, error) {
	var rec clConversation
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Conversation{}, fmt.Errorf("undecodable record shape: %v", err)
	}
	if rec.UUID == "" {
		return models.Conversation{}, fmt.Errorf("missing conversation uuid")
	}
	if len(rec.ChatMessages) == 0 {
		return models.Conversation{}, fmt.Errorf("no chat_messages")
	}

	createdAt, ok := parseISO(rec.CreatedAt)
	if !ok {
		return models.Conversation{}, fmt.Errorf("unparsable created_at %q", rec.CreatedAt)
	}
	updatedAt, _ := parseISO(rec.UpdatedAt)
	if !updatedAt.IsZero() && updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	msgs := make([]models.Message, 0, len(rec.ChatMessages))
	for _, cm := range rec.ChatMessages {
		if cm.UUID == "" {
			return models.Conversation{}, fmt.Errorf("message without uuid")
		}
		ts, ok := parseISO(cm.CreatedAt)
		if !ok {
			// Unparsable message timestamps degrade to the conversation
			// created_at; the record itself is kept.
			ts = createdAt
			slog.Warn("message timestamp unparsable, using conversation created_at",
				slog.String("conversation", rec.UUID),
				slog.String("message", cm.UUID),
				slog.String("value", cm.CreatedAt))
		}
		msgs = append(msgs, models.Message{
			ID:        cm.UUID,
			Role:      mapRole(rec.UUID, cm.UUID, cm.Sender, claudeRoles),
			Content:   clExtractContent(cm),
			Timestamp: ts,
			// Linear export: no branching, no parents.
		})
	}

	// Claude exports routinely carry empty names; listings and slugs
	// need something to show. Other adapters keep empty titles as-is.
	title := rec.Name
	if title == "" {
		title = "Untitled"
	}

	return models.Conversation{
		ID:        rec.UUID,
		Title:     title,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Messages:  msgs,
		Metadata:  map[string]string{"provider": "claude"},
	}, nil
}

// clExtractContent concatenates text blocks with newlines, skipping
// tool blocks. When no text block exists the flat text field is the
// fallback; failing that, content is empty and the message is kept for
// thread integrity.
func clExtractContent(cm clMessage) string {
	var parts []string
	for _, b := range cm.Content {
		if b.Type != "text" || b.Text == "" {
			continue
		}
		parts = append(parts, b.Text)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	return cm.Text
}

// isoFormats are tried in order; Claude exports vary between
// nanosecond-precision RFC3339 and second-precision without a zone.
var isoFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseISO(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
