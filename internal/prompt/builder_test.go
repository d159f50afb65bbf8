package prompt

import "testing"

func TestBuilderOrdersByPriority(t *testing.T) {
	b := NewBuilder()
	b.Add(Block{ID: "low", Priority: 1, Content: "last"})
	b.Add(Block{ID: "high", Priority: 10, Content: "first"})
	b.Add(Block{ID: "mid", Priority: 5, Content: "middle"})

	if got := b.Build(); got != "first\n\nmiddle\n\nlast" {
		t.Fatalf("unexpected build: %q", got)
	}
}

func TestBuilderSkipsEmptyBlocks(t *testing.T) {
	b := NewBuilder()
	b.Add(Block{ID: "empty", Priority: 10, Content: "   \n  "})
	b.Add(Block{ID: "real", Priority: 1, Content: "content"})

	if got := b.Build(); got != "content" {
		t.Fatalf("unexpected build: %q", got)
	}
}

func TestBuilderStableTieBreakByID(t *testing.T) {
	b := NewBuilder()
	b.Add(Block{ID: "b", Priority: 5, Content: "second"})
	b.Add(Block{ID: "a", Priority: 5, Content: "first"})

	if got := b.Build(); got != "first\n\nsecond" {
		t.Fatalf("unexpected tie-break: %q", got)
	}
}

func TestBuilderEmpty(t *testing.T) {
	if got := NewBuilder().Build(); got != "" {
		t.Fatalf("expected empty prompt, got %q", got)
	}
}
