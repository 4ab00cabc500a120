// Package provider translates provider-specific export schemas into the
// canonical model behind a single operational contract.
//
// Every variant (OpenAI-style tree exports, Claude-style linear
// exports) shares the same four operations via Adapter; only the
// normalization of one raw record differs per variant. Adapters are
// stateless: each call re-scans the source, holds O(1) memory, and a
// cursor returned by one call must be consumed by a single goroutine.
package provider

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/norwick/ekko/internal/apperr"
	"github.com/norwick/ekko/internal/decode"
	"github.com/norwick/ekko/internal/models"
	"github.com/norwick/ekko/internal/search"
)

// normalizer converts one raw export record into a canonical
// conversation. Returning an error marks the record as skippable; it
// never aborts the stream.
type normalizer interface {
	// Name identifies the variant ("openai", "claude").
	Name() string
	// Normalize converts the raw record at the given positional index.
	Normalize(raw json.RawMessage, index int) (models.Conversation, error)
}

// Adapter exposes the shared operational contract over one normalizer
// variant. The zero value is unusable; construct via NewOpenAI,
// NewClaude, or Detect.
type Adapter struct {
	n normalizer
}

// Name returns the provider variant name.
func (a *Adapter) Name() string { return a.n.Name() }

// openSource opens the export file, mapping OS-level failures onto the
// error taxonomy. Other I/O errors pass through unmodified.
func openSource(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("provider: %s: %w", path, apperr.ErrNotFound)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("provider: %s: %w", path, apperr.ErrAccessDenied)
		default:
			return nil, err
		}
	}
	return f, nil
}

// Cursor is a lazy, single-use stream of canonical conversations. It
// owns the underlying file handle and releases it when the stream
// ends, fails, or is closed, whichever comes first.
type Cursor struct {
	file   *os.File
	dec    *decode.Cursor
	n      normalizer
	obs    *Observer
	prog   *progressTracker
	cur    models.Conversation
	err    error
	closed bool
}

// Next advances to the next conversation that survives normalization.
// Records that fail normalization are reported through the skip
// observer and do not end the stream.
func (c *Cursor) Next() bool {
	if c.closed {
		return false
	}
	for {
		raw, ok := c.dec.Next()
		if !ok {
			c.err = c.dec.Err()
			c.Close()
			return false
		}
		index := c.dec.Index() - 1
		c.prog.tick()

		conv, err := c.n.Normalize(raw, index)
		if err != nil {
			c.obs.skip(recordID(raw, index), err.Error())
			continue
		}
		c.cur = conv
		return true
	}
}

// Conversation returns the conversation produced by the last
// successful Next.
func (c *Cursor) Conversation() models.Conversation { return c.cur }

// Err returns the structural error that terminated the stream, if any.
func (c *Cursor) Err() error { return c.err }

// Close releases the underlying file. It is idempotent and safe to
// defer alongside early termination.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

// recordID extracts a best-effort identifier from a raw record for
// skip reporting, falling back to the positional index.
func recordID(raw json.RawMessage, index int) string {
	var probe struct {
		ID             string `json:"id"`
		UUID           string `json:"uuid"`
		ConversationID string `json:"conversation_id"`
	}
	_ = json.Unmarshal(raw, &probe)
	switch {
	case probe.ConversationID != "":
		return probe.ConversationID
	case probe.ID != "":
		return probe.ID
	case probe.UUID != "":
		return probe.UUID
	default:
		return fmt.Sprintf("record[%d]", index)
	}
}

// StreamConversations opens the export at path and returns a lazy
// cursor over its normalized conversations. The caller must Close the
// cursor (draining it also closes it).
func (a *Adapter) StreamConversations(path string, obs *Observer) (*Cursor, error) {
	f, err := openSource(path)
	if err != nil {
		return nil, err
	}
	dec, err := decode.New(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Cursor{
		file: f,
		dec:  dec,
		n:    a.n,
		obs:  obs,
		prog: newProgressTracker(obs),
	}, nil
}

// Search streams the export through the ranking engine and returns the
// ordered, limit-bounded result set. Ranking is global over the
// filtered matches, so results materialize only after the full scan.
func (a *Adapter) Search(path string, query models.SearchQuery, obs *Observer) ([]models.SearchResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	cur, err := a.StreamConversations(path, obs)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	return search.NewEngine().Search(cur, query)
}

// minPrefixLen is the shortest id prefix accepted by the Get*ByID
// lookups, besides an exact match.
const minPrefixLen = 4

// idMatches reports whether query identifies id: either an exact match
// or a case-insensitive prefix of at least minPrefixLen characters.
func idMatches(id, query string) bool {
	if id == query {
		return true
	}
	if len(query) < minPrefixLen {
		return false
	}
	return strings.HasPrefix(strings.ToLower(id), strings.ToLower(query))
}

// GetConversationByID re-scans the source for the conversation whose id
// matches the given id or case-insensitive prefix (>= 4 chars). When
// several ids share the prefix, the first in stream order wins.
func (a *Adapter) GetConversationByID(path, id string, obs *Observer) (models.Conversation, error) {
	cur, err := a.StreamConversations(path, obs)
	if err != nil {
		return models.Conversation{}, err
	}
	defer cur.Close()

	for cur.Next() {
		if conv := cur.Conversation(); idMatches(conv.ID, id) {
			return conv, nil
		}
	}
	if err := cur.Err(); err != nil {
		return models.Conversation{}, err
	}
	return models.Conversation{}, fmt.Errorf("provider: conversation %q: %w", id, apperr.ErrNotFound)
}

// GetMessageByID re-scans the source for a message whose id matches the
// given id or prefix, returning the message together with its parent
// conversation. A non-empty conversationHint narrows the scan to
// conversations matching that hint (same matching rule as ids).
func (a *Adapter) GetMessageByID(path, messageID, conversationHint string, obs *Observer) (models.Message, models.Conversation, error) {
	cur, err := a.StreamConversations(path, obs)
	if err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	defer cur.Close()

	for cur.Next() {
		conv := cur.Conversation()
		if conversationHint != "" && !idMatches(conv.ID, conversationHint) {
			continue
		}
		for _, m := range conv.Messages {
			if idMatches(m.ID, messageID) {
				return m, conv, nil
			}
		}
	}
	if err := cur.Err(); err != nil {
		return models.Message{}, models.Conversation{}, err
	}
	return models.Message{}, models.Conversation{},
		fmt.Errorf("provider: message %q: %w", messageID, apperr.ErrNotFound)
}
