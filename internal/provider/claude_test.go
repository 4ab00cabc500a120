package provider

import (
	"testing"
	"time"

	"github.com/norwick/ekko/internal/models"
	"github.com/norwick/ekko/internal/testutil"
)

const claudeFixture = `[
  {
    "uuid": "f47ac10b-58cc-4372-a567-000000000001",
    "name": "Go generics help",
    "created_at": "2024-03-01T10:00:00Z",
    "updated_at": "2024-03-01T11:00:00.123456Z",
    "chat_messages": [
      {"uuid": "msg-aaaa-0001", "sender": "human", "created_at": "2024-03-01T10:00:00Z", "text": "", "content": [{"type": "text", "text": "Explain Go generics"}]},
      {"uuid": "msg-aaaa-0002", "sender": "assistant", "created_at": "2024-03-01T10:00:30+01:00", "text": "", "content": [{"type": "text", "text": "Generics add type parameters."}, {"type": "text", "text": "They arrived in 1.18."}]},
      {"uuid": "msg-aaaa-0003", "sender": "assistant", "created_at": "2024-03-01T10:01:00Z", "text": "", "content": [{"type": "tool_use", "text": ""}, {"type": "tool_result", "text": "raw tool payload"}]}
    ]
  }
]`

func TestClaude_NormalizeRoundTrip(t *testing.T) {
	path := testutil.WriteExport(t, "conversations.json", claudeFixture)
	conv := streamOne(t, NewClaude(), path)

	if conv.ID != "f47ac10b-58cc-4372-a567-000000000001" {
		t.Errorf("ID = %q", conv.ID)
	}
	if conv.Title != "Go generics help" {
		t.Errorf("Title = %q", conv.Title)
	}
	if !conv.CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", conv.CreatedAt)
	}
	if len(conv.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(conv.Messages))
	}

	m1, m2, m3 := conv.Messages[0], conv.Messages[1], conv.Messages[2]

	if m1.Role != models.RoleUser {
		t.Errorf("m1.Role = %q, want user (human maps to user)", m1.Role)
	}
	if m1.Content != "Explain Go generics" {
		t.Errorf("m1.Content = %q", m1.Content)
	}
	if m1.ParentID != "" {
		t.Errorf("m1.ParentID = %q, want empty for linear provider", m1.ParentID)
	}

	// Offset timestamps normalize to UTC.
	want := time.Date(2024, 3, 1, 9, 0, 30, 0, time.UTC)
	if !m2.Timestamp.Equal(want) || m2.Timestamp.Location() != time.UTC {
		t.Errorf("m2.Timestamp = %v, want %v", m2.Timestamp, want)
	}
	if m2.Content != "Generics add type parameters.\nThey arrived in 1.18." {
		t.Errorf("m2.Content = %q", m2.Content)
	}

	// Tool-only message: kept, with empty content.
	if m3.Content != "" {
		t.Errorf("m3.Content = %q, want empty", m3.Content)
	}
}

func TestClaude_UnparsableTimestampFallsBack(t *testing.T) {
	fixture := `[
	  {
	    "uuid": "f47ac10b-58cc-4372-a567-000000000002",
	    "name": "Clock trouble",
	    "created_at": "2024-06-01T08:00:00Z",
	    "chat_messages": [
	      {"uuid": "m-1", "sender": "human", "created_at": "2024-06-01T08:00:00Z", "text": "first", "content": []},
	      {"uuid": "m-2", "sender": "assistant", "created_at": "not-a-date", "text": "second", "content": []}
	    ]
	  }
	]`
	path := testutil.WriteExport(t, "conversations.json", fixture)
	conv := streamOne(t, NewClaude(), path)

	if len(conv.Messages) != 2 {
		t.Fatalf("conversation must keep all messages, got %d", len(conv.Messages))
	}
	if !conv.Messages[1].Timestamp.Equal(conv.CreatedAt) {
		t.Errorf("fallback Timestamp = %v, want conversation CreatedAt %v",
			conv.Messages[1].Timestamp, conv.CreatedAt)
	}
	// Flat text field is the fallback when no text blocks exist.
	if conv.Messages[0].Content != "first" {
		t.Errorf("Content = %q", conv.Messages[0].Content)
	}
}

func TestClaude_EmptyNameGetsPlaceholder(t *testing.T) {
	fixture := `[
	  {
	    "uuid": "f47ac10b-58cc-4372-a567-000000000003",
	    "name": "",
	    "created_at": "2024-06-01T08:00:00Z",
	    "chat_messages": [
	      {"uuid": "m-1", "sender": "human", "created_at": "2024-06-01T08:00:00Z", "text": "hello", "content": []}
	    ]
	  }
	]`
	path := testutil.WriteExport(t, "conversations.json", fixture)
	conv := streamOne(t, NewClaude(), path)

	if conv.Title != "Untitled" {
		t.Errorf("Title = %q, want placeholder", conv.Title)
	}
}

func TestClaude_UpdatedBeforeCreatedClamps(t *testing.T) {
	fixture := `[
	  {
	    "uuid": "f47ac10b-58cc-4372-a567-000000000004",
	    "name": "Time warp",
	    "created_at": "2024-06-01T08:00:00Z",
	    "updated_at": "2024-05-01T08:00:00Z",
	    "chat_messages": [
	      {"uuid": "m-1", "sender": "human", "created_at": "2024-06-01T08:00:00Z", "text": "hello", "content": []}
	    ]
	  }
	]`
	path := testutil.WriteExport(t, "conversations.json", fixture)
	conv := streamOne(t, NewClaude(), path)

	if !conv.UpdatedAt.Equal(conv.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want clamped to CreatedAt", conv.UpdatedAt)
	}
}
