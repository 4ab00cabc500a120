package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/norwick/ekko/internal/models"
)

func sampleResults() []models.SearchResult {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []models.SearchResult{
		{
			Conversation: models.Conversation{
				ID:        "f47ac10b-58cc-4372-a567-000000000001",
				Title:     "Go generics help",
				CreatedAt: created,
				Messages: []models.Message{
					{ID: "m1", Role: models.RoleUser, Content: "Explain generics", Timestamp: created},
					{ID: "m2", Role: models.RoleAssistant, Content: "Type parameters.", Timestamp: created},
				},
			},
			Score:             0.7321,
			MatchedMessageIDs: []string{"m1"},
			Snippet:           "Explain generics",
		},
		{
			Conversation: models.Conversation{
				ID:        "f47ac10b-58cc-4372-a567-000000000002",
				Title:     "",
				CreatedAt: created.Add(time.Hour),
			},
			Score: 0.25,
		},
	}
}

func TestByFormat(t *testing.T) {
	for _, f := range []string{FormatMarkdown, FormatCSV, FormatJSON} {
		if _, err := ByFormat(f); err != nil {
			t.Errorf("ByFormat(%q): %v", f, err)
		}
	}
	if _, err := ByFormat("xml"); err == nil {
		t.Error("ByFormat(xml) should fail")
	}
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown(&buf, sampleResults()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"## 1. Go generics help",
		"- Score: 0.7321",
		"> Explain generics",
		"## 2. (untitled)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}

	// Deterministic across runs.
	var again bytes.Buffer
	if err := Markdown(&again, sampleResults()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if again.String() != out {
		t.Error("markdown output not deterministic")
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, sampleResults()); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows", len(lines))
	}
	if lines[0] != "id,title,score,created_at,messages,matched,snippet" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "f47ac10b-58cc-4372-a567-000000000001,Go generics help,0.7321,") {
		t.Errorf("row = %q", lines[1])
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleResults()); err != nil {
		t.Fatalf("render: %v", err)
	}
	var decoded []models.SearchResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Conversation.ID != "f47ac10b-58cc-4372-a567-000000000001" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestConversationMarkdown(t *testing.T) {
	c := sampleResults()[0].Conversation
	c.Messages = append(c.Messages, models.Message{
		ID: "m3", Role: models.RoleAssistant, Content: "", Timestamp: c.CreatedAt,
	})

	var buf bytes.Buffer
	if err := ConversationMarkdown(&buf, c); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# Go generics help",
		"## user (2024-03-01T10:00:00Z)",
		"Type parameters.",
		"_(no text content)_",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
}

func TestWriteConversations(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	convs := []models.Conversation{
		sampleResults()[0].Conversation,
		sampleResults()[1].Conversation,
	}

	paths, err := WriteConversations(context.Background(), dir, convs)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v", paths)
	}
	if base := filepath.Base(paths[0]); base != "go-generics-help-f47ac10b.md" {
		t.Errorf("file name = %q", base)
	}
	if base := filepath.Base(paths[1]); base != "untitled-f47ac10b.md" {
		t.Errorf("file name = %q", base)
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "# Go generics help") {
		t.Error("written transcript lacks title")
	}
}

func TestWriteConversations_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := WriteConversations(ctx, t.TempDir(), []models.Conversation{{ID: "abcd1234", Title: "x"}}); err == nil {
		t.Error("expected context error")
	}
}
