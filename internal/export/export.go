// Package export renders search results and conversations to
// Markdown, CSV, and JSON. Output is deterministic for identical
// input; the renderers hold no state.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/norwick/ekko/internal/models"
)

// Formats accepted by ByFormat and the export config.
const (
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// Renderer writes a result set to w.
type Renderer func(w io.Writer, results []models.SearchResult) error

// ByFormat returns the renderer for a format name.
func ByFormat(format string) (Renderer, error) {
	switch format {
	case FormatMarkdown:
		return Markdown, nil
	case FormatCSV:
		return CSV, nil
	case FormatJSON:
		return JSON, nil
	default:
		return nil, fmt.Errorf("export: unknown format %q", format)
	}
}

// Markdown renders results as a ranked list with scores and snippets.
func Markdown(w io.Writer, results []models.SearchResult) error {
	var sb strings.Builder
	sb.WriteString("# Search results\n\n")
	for i, r := range results {
		c := r.Conversation
		fmt.Fprintf(&sb, "## %d. %s\n\n", i+1, mdTitle(c.Title))
		fmt.Fprintf(&sb, "- ID: `%s`\n", c.ID)
		fmt.Fprintf(&sb, "- Score: %.4f\n", r.Score)
		fmt.Fprintf(&sb, "- Created: %s\n", c.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "- Messages: %d (matched: %d)\n", c.MessageCount(), len(r.MatchedMessageIDs))
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "\n> %s\n", strings.ReplaceAll(r.Snippet, "\n", " "))
		}
		sb.WriteString("\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// CSV renders one row per result with a fixed header.
func CSV(w io.Writer, results []models.SearchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "title", "score", "created_at", "messages", "matched", "snippet"}); err != nil {
		return fmt.Errorf("export: csv header: %w", err)
	}
	for _, r := range results {
		c := r.Conversation
		row := []string{
			c.ID,
			c.Title,
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			c.CreatedAt.Format(time.RFC3339),
			strconv.Itoa(c.MessageCount()),
			strconv.Itoa(len(r.MatchedMessageIDs)),
			r.Snippet,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON renders the full result set, conversations included, as an
// indented array.
func JSON(w io.Writer, results []models.SearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// ConversationMarkdown renders one full conversation as a transcript.
func ConversationMarkdown(w io.Writer, c models.Conversation) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", mdTitle(c.Title))
	fmt.Fprintf(&sb, "- ID: `%s`\n", c.ID)
	fmt.Fprintf(&sb, "- Created: %s\n", c.CreatedAt.Format(time.RFC3339))
	if !c.UpdatedAt.IsZero() {
		fmt.Fprintf(&sb, "- Updated: %s\n", c.UpdatedAt.Format(time.RFC3339))
	}
	sb.WriteString("\n")
	for _, m := range c.Messages {
		fmt.Fprintf(&sb, "## %s (%s)\n\n", m.Role, m.Timestamp.Format(time.RFC3339))
		if m.Content == "" {
			sb.WriteString("_(no text content)_\n\n")
			continue
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func mdTitle(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}
