// Package thread reconstructs branch structure from a conversation's
// parent references: roots, children, ancestor chains, and every
// root-to-leaf path.
//
// Reconstruction is a pure view over an already-materialized
// conversation; it never mutates the conversation and is deterministic
// for identical input. Parent references are validated here, lazily,
// rather than at construction time: a message whose parent_id points
// outside the conversation is treated as a root.
package thread

import (
	"fmt"

	"github.com/norwick/ekko/internal/apperr"
	"github.com/norwick/ekko/internal/models"
)

// Tree indexes one conversation's messages by parent/child structure.
// Children are kept in message-list order, which fixes traversal order
// across runs.
type Tree struct {
	byID     map[string]models.Message
	parent   map[string]string
	children map[string][]string
	roots    []string
}

// New builds the structural index for c.
func New(c models.Conversation) *Tree {
	t := &Tree{
		byID:     make(map[string]models.Message, len(c.Messages)),
		parent:   make(map[string]string, len(c.Messages)),
		children: make(map[string][]string),
	}
	for _, m := range c.Messages {
		t.byID[m.ID] = m
	}
	for _, m := range c.Messages {
		if _, ok := t.byID[m.ParentID]; m.ParentID == "" || !ok {
			// No parent, or a dangling reference: both are roots.
			t.roots = append(t.roots, m.ID)
			continue
		}
		t.parent[m.ID] = m.ParentID
		t.children[m.ParentID] = append(t.children[m.ParentID], m.ID)
	}
	return t
}

// Roots returns the messages with no (resolvable) parent, in
// message-list order.
func (t *Tree) Roots() []models.Message {
	return t.resolve(t.roots)
}

// Children returns the direct descendants of the given message, in
// message-list order.
func (t *Tree) Children(id string) []models.Message {
	return t.resolve(t.children[id])
}

// ThreadTo returns the ordered chain from a root down to the given
// message, inclusive.
func (t *Tree) ThreadTo(id string) ([]models.Message, error) {
	if _, ok := t.byID[id]; !ok {
		return nil, fmt.Errorf("thread: message %q: %w", id, apperr.ErrNotFound)
	}
	var chain []string
	seen := make(map[string]bool)
	for cur := id; cur != ""; cur = t.parent[cur] {
		if seen[cur] {
			// Cycle in parent references; stop rather than loop.
			break
		}
		seen[cur] = true
		chain = append(chain, cur)
	}
	// Reverse into root-first order.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return t.resolve(chain), nil
}

// AllThreads returns every root-to-leaf path, one per leaf, via
// depth-first traversal from each root. A node with multiple children
// contributes one path per branch.
func (t *Tree) AllThreads() [][]models.Message {
	var out [][]models.Message
	for _, root := range t.roots {
		t.walk(root, nil, make(map[string]bool), &out)
	}
	return out
}

func (t *Tree) walk(id string, trail []string, seen map[string]bool, out *[][]models.Message) {
	if seen[id] {
		return
	}
	seen[id] = true
	trail = append(trail, id)

	kids := t.children[id]
	if len(kids) == 0 {
		*out = append(*out, t.resolve(trail))
	}
	for _, kid := range kids {
		t.walk(kid, trail, seen, out)
	}
	seen[id] = false
}

func (t *Tree) resolve(ids []string) []models.Message {
	if len(ids) == 0 {
		return nil
	}
	out := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.byID[id])
	}
	return out
}
