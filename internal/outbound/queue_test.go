package outbound

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Push(Message{Channel: "feishu", ChatID: "chat", Content: fmt.Sprintf("msg-%d", i)})
	}
	if q.Len() != 5 {
		t.Fatalf("expected 5 queued, got %d", q.Len())
	}
	for i := 0; i < 5; i++ {
		m, err := q.Pop(context.Background())
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if want := fmt.Sprintf("msg-%d", i); m.Content != want {
			t.Fatalf("pop %d: got %q, want %q", i, m.Content, want)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}

func TestQueuePopWaitsForPush(t *testing.T) {
	q := NewQueue()
	got := make(chan Message, 1)
	go func() {
		m, err := q.Pop(context.Background())
		if err != nil {
			return
		}
		got <- m
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(Message{Content: "late"})

	select {
	case m := <-got:
		if m.Content != "late" {
			t.Fatalf("unexpected message: %+v", m)
		}
	case <-time.After(time.Second):
		t.Fatal("pop never woke up")
	}
}

func TestQueuePopHonorsContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Pop(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
