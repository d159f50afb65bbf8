package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(db)
	// Deterministic, strictly increasing clock so insertion order and
	// timestamp order agree.
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	step := 0
	store.nowFn = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	return store
}

func TestAppendAndListMessages(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendMessage(ctx, "ws:a", "user", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendMessage(ctx, "ws:a", "assistant", "hi there"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendMessage(ctx, "ws:b", "user", "other"); err != nil {
		t.Fatalf("append: %v", err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	// Most recently updated first.
	if sessions[0].Name != "ws:b" || sessions[1].Name != "ws:a" {
		t.Fatalf("unexpected order: %+v", sessions)
	}
	if sessions[1].Messages != 2 {
		t.Fatalf("expected 2 messages in ws:a, got %d", sessions[1].Messages)
	}

	messages, err := store.RecentMessages(ctx, "ws:a", 10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "user" || messages[0].Content != "hello" {
		t.Fatalf("oldest first expected: %+v", messages[0])
	}
	if messages[1].Role != "assistant" || messages[1].Content != "hi there" {
		t.Fatalf("unexpected second message: %+v", messages[1])
	}
}

func TestRecentMessagesWindow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three", "four"} {
		if err := store.AppendMessage(ctx, "s", "user", content); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	messages, err := store.RecentMessages(ctx, "s", 2)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected window of 2, got %d", len(messages))
	}
	// The newest two, still oldest first.
	if messages[0].Content != "three" || messages[1].Content != "four" {
		t.Fatalf("unexpected window: %+v", messages)
	}
}

func TestAppendMessageRequiresSession(t *testing.T) {
	store := openTestStore(t)
	if err := store.AppendMessage(context.Background(), "  ", "user", "x"); err == nil {
		t.Fatal("expected error for blank session")
	}
}

func TestDeleteSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AppendMessage(ctx, "gone", "user", "bye"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.DeleteSession(ctx, "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("session not deleted: %+v", sessions)
	}
	messages, err := store.RecentMessages(ctx, "gone", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("messages not deleted: %+v", messages)
	}

	if err := store.DeleteSession(ctx, "missing"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestRetrieveRanksByKeywordOverlap(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	passages := []string{
		"The deploy pipeline for the website runs nightly.",
		"Ada prefers green tea in the morning.",
		"The website deploy requires the staging checklist.",
		"Completely unrelated note about birds.",
	}
	for _, p := range passages {
		if _, err := store.AddPassage(ctx, p); err != nil {
			t.Fatalf("add passage: %v", err)
		}
	}

	results, err := store.Retrieve(ctx, "website deploy checklist", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 hits, got %d: %v", len(results), results)
	}
	// Higher keyword overlap ranks first.
	if results[0] != "The website deploy requires the staging checklist." {
		t.Fatalf("unexpected ranking: %v", results)
	}
	if results[1] != "The deploy pipeline for the website runs nightly." {
		t.Fatalf("unexpected second hit: %v", results)
	}
}

func TestRetrieveNoTermsNoResults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.AddPassage(ctx, "anything at all"); err != nil {
		t.Fatalf("add passage: %v", err)
	}

	// Tokens of length <= 2 are ignored, leaving nothing to match on.
	results, err := store.Retrieve(ctx, "a of to", 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestAddPassageRejectsEmpty(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.AddPassage(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty passage")
	}
}
