package provider

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/norwick/ekko/internal/models"
)

// NewOpenAI returns an adapter for OpenAI-style tree exports
// (conversations.json with a node mapping and epoch-seconds timestamps).
func NewOpenAI() *Adapter {
	return &Adapter{n: openaiNormalizer{}}
}

type openaiNormalizer struct{}

func (openaiNormalizer) Name() string { return "openai" }

// Raw shapes of an OpenAI export record. The message graph lives in
// Mapping: node ids point at optional messages plus parent/children
// edges; root nodes usually carry no message at all.
type oaConversation struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Title          string            `json:"title"`
	CreateTime     float64           `json:"create_time"`
	UpdateTime     float64           `json:"update_time"`
	CurrentNode    string            `json:"current_node"`
	Mapping        map[string]oaNode `json:"mapping"`
}

type oaNode struct {
	ID       string     `json:"id"`
	Message  *oaMessage `json:"message"`
	Parent   string     `json:"parent"`
	Children []string   `json:"children"`
}

type oaMessage struct {
	ID         string    `json:"id"`
	Author     oaAuthor  `json:"author"`
	CreateTime *float64  `json:"create_time"`
	Content    oaContent `json:"content"`
}

type oaAuthor struct {
	Role string `json:"role"`
}

// oaContent carries either string parts (text, multimodal) or a plain
// text field (code and tool payloads). Parts are raw because multimodal
// exports mix strings with attachment objects.
type oaContent struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
	Text        string            `json:"text"`
}

func (openaiNormalizer) Normalize(raw json.RawMessage, index int) (models.Conversation, error) {
	var rec oaConversation
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Conversation{}, fmt.Errorf("undecodable record shape: %v", err)
	}

	id := rec.ConversationID
	if id == "" {
		id = rec.ID
	}
	if id == "" {
		return models.Conversation{}, fmt.Errorf("missing conversation id")
	}

	// Node id -> message id, for translating parent edges. Root and
	// system-placeholder nodes without a message translate to "no
	// parent".
	nodeMsg := make(map[string]string, len(rec.Mapping))
	for nodeID, node := range rec.Mapping {
		if node.Message != nil && node.Message.ID != "" {
			nodeMsg[nodeID] = node.Message.ID
		}
	}

	createdAt := epochToUTC(rec.CreateTime)

	var msgs []models.Message
	for _, node := range rec.Mapping {
		if node.Message == nil || node.Message.ID == "" {
			continue
		}
		m := node.Message

		ts, ok := oaTimestamp(m.CreateTime)
		if !ok {
			ts = createdAt
			slog.Warn("message timestamp missing, using conversation created_at",
				slog.String("conversation", id),
				slog.String("message", m.ID))
		}

		msgs = append(msgs, models.Message{
			ID:        m.ID,
			Role:      mapRole(id, m.ID, m.Author.Role, map[string]models.Role{
				"user":      models.RoleUser,
				"assistant": models.RoleAssistant,
				"system":    models.RoleSystem,
			}),
			Content:   oaExtractContent(m.Content),
			Timestamp: ts,
			ParentID:  nodeMsg[node.Parent],
		})
	}
	if len(msgs) == 0 {
		return models.Conversation{}, fmt.Errorf("no messages in mapping")
	}

	// Map iteration order is not stable; order by timestamp with id as
	// the tie-break so identical input yields identical output.
	sort.Slice(msgs, func(i, j int) bool {
		if !msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Timestamp.Before(msgs[j].Timestamp)
		}
		return msgs[i].ID < msgs[j].ID
	})

	if createdAt.IsZero() {
		// Some tree exports omit create_time; fall back to the earliest
		// message rather than dropping the record.
		createdAt = msgs[0].Timestamp
	}

	updatedAt := epochToUTC(rec.UpdateTime)
	if !updatedAt.IsZero() && updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	meta := map[string]string{"provider": "openai"}
	if rec.CurrentNode != "" {
		meta["current_node"] = rec.CurrentNode
	}

	return models.Conversation{
		ID:        id,
		Title:     rec.Title,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Messages:  msgs,
		Metadata:  meta,
	}, nil
}

// oaExtractContent joins text-bearing parts with newlines. Non-string
// parts (attachments) and tool payloads are skipped; the plain text
// field is the fallback when no parts exist.
func oaExtractContent(c oaContent) string {
	switch c.ContentType {
	case "tool_use", "tool_result", "execution_output":
		return ""
	}
	var parts []string
	for _, raw := range c.Parts {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	return c.Text
}

// oaTimestamp converts an epoch-seconds float to a UTC instant.
func oaTimestamp(v *float64) (time.Time, bool) {
	if v == nil || *v <= 0 {
		return time.Time{}, false
	}
	return epochToUTC(*v), true
}

func epochToUTC(v float64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}

// mapRole maps a provider sender label onto the closed role set.
// Unrecognized labels default to assistant and are logged, never
// dropped.
func mapRole(convID, msgID, label string, table map[string]models.Role) models.Role {
	if r, ok := table[strings.ToLower(label)]; ok {
		return r
	}
	slog.Warn("unrecognized role, defaulting to assistant",
		slog.String("conversation", convID),
		slog.String("message", msgID),
		slog.String("role", label))
	return models.RoleAssistant
}
