package thread

import (
	"errors"
	"testing"

	"github.com/norwick/ekko/internal/apperr"
	"github.com/norwick/ekko/internal/models"
)

func conv(msgs ...models.Message) models.Conversation {
	return models.Conversation{ID: "c1", Messages: msgs}
}

func msg(id, parent string) models.Message {
	return models.Message{ID: id, ParentID: parent}
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRoots(t *testing.T) {
	tree := New(conv(msg("r1", ""), msg("a", "r1"), msg("r2", ""), msg("b", "r2")))
	if got := ids(tree.Roots()); !equal(got, []string{"r1", "r2"}) {
		t.Errorf("Roots = %v", got)
	}
}

func TestChildren_MessageListOrder(t *testing.T) {
	tree := New(conv(msg("r", ""), msg("b", "r"), msg("a", "r"), msg("c", "b")))
	if got := ids(tree.Children("r")); !equal(got, []string{"b", "a"}) {
		t.Errorf("Children(r) = %v, want message-list order [b a]", got)
	}
	if got := tree.Children("c"); got != nil {
		t.Errorf("Children(c) = %v, want none", got)
	}
}

func TestThreadTo(t *testing.T) {
	tree := New(conv(msg("r", ""), msg("a", "r"), msg("b", "a"), msg("side", "r")))

	got, err := tree.ThreadTo("b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equal(ids(got), []string{"r", "a", "b"}) {
		t.Errorf("ThreadTo(b) = %v", ids(got))
	}

	got, err = tree.ThreadTo("r")
	if err != nil || !equal(ids(got), []string{"r"}) {
		t.Errorf("ThreadTo(r) = %v, %v", ids(got), err)
	}

	if _, err := tree.ThreadTo("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ThreadTo(ghost) err = %v, want ErrNotFound", err)
	}
}

func TestAllThreads_OneRootTwoChildren(t *testing.T) {
	// One root with two children: exactly two root-to-leaf paths, both
	// starting at the root.
	tree := New(conv(msg("r", ""), msg("a", "r"), msg("b", "r")))

	threads := tree.AllThreads()
	if len(threads) != 2 {
		t.Fatalf("len(threads) = %d, want 2", len(threads))
	}
	if !equal(ids(threads[0]), []string{"r", "a"}) || !equal(ids(threads[1]), []string{"r", "b"}) {
		t.Errorf("threads = %v, %v", ids(threads[0]), ids(threads[1]))
	}
}

func TestAllThreads_DeepBranch(t *testing.T) {
	// r -> a -> (b, c -> d); plus a second root r2.
	tree := New(conv(
		msg("r", ""), msg("a", "r"), msg("b", "a"), msg("c", "a"), msg("d", "c"),
		msg("r2", ""),
	))

	threads := tree.AllThreads()
	want := [][]string{
		{"r", "a", "b"},
		{"r", "a", "c", "d"},
		{"r2"},
	}
	if len(threads) != len(want) {
		t.Fatalf("len(threads) = %d, want %d", len(threads), len(want))
	}
	for i := range want {
		if !equal(ids(threads[i]), want[i]) {
			t.Errorf("thread %d = %v, want %v", i, ids(threads[i]), want[i])
		}
	}
}

func TestAllThreads_Deterministic(t *testing.T) {
	c := conv(msg("r", ""), msg("a", "r"), msg("b", "r"), msg("c", "b"))
	first := New(c).AllThreads()
	for i := 0; i < 10; i++ {
		again := New(c).AllThreads()
		if len(again) != len(first) {
			t.Fatal("thread count changed between runs")
		}
		for j := range first {
			if !equal(ids(first[j]), ids(again[j])) {
				t.Fatalf("run %d thread %d = %v, want %v", i, j, ids(again[j]), ids(first[j]))
			}
		}
	}
}

func TestDanglingParentBecomesRoot(t *testing.T) {
	tree := New(conv(msg("r", ""), msg("orphan", "never-existed")))
	if got := ids(tree.Roots()); !equal(got, []string{"r", "orphan"}) {
		t.Errorf("Roots = %v, want dangling parent treated as root", got)
	}
}

func TestLinearConversationIsOneThread(t *testing.T) {
	// Linear providers set no parents: every message is a root, so each
	// is its own single-message thread.
	tree := New(conv(msg("a", ""), msg("b", ""), msg("c", "")))
	threads := tree.AllThreads()
	if len(threads) != 3 {
		t.Fatalf("len(threads) = %d", len(threads))
	}
}
