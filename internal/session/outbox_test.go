package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestOutbox_deliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var delivered []string
	done := make(chan struct{})

	ob := NewOutbox(8, func(_ context.Context, it Item) error {
		mu.Lock()
		delivered = append(delivered, it.WorkflowID)
		if len(delivered) == 3 {
			close(done)
		}
		mu.Unlock()
		return nil
	}, zap.NewNop(), testMetrics())

	ob.Start(context.Background())
	for i := 0; i < 3; i++ {
		ob.Enqueue(Item{WorkflowID: fmt.Sprintf("chat-session-%d", i), Signal: SignalReceiveMessage})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	ob.Close()

	mu.Lock()
	defer mu.Unlock()
	for i, id := range delivered {
		want := fmt.Sprintf("chat-session-%d", i)
		if id != want {
			t.Errorf("delivered[%d] = %q, want %q", i, id, want)
		}
	}
}

func TestOutbox_overflowDropsOldest(t *testing.T) {
	// No drainer running: the queue fills and the oldest items give way.
	ob := NewOutbox(2, func(context.Context, Item) error { return nil }, zap.NewNop(), testMetrics())

	ob.Enqueue(Item{WorkflowID: "a", Signal: SignalReceiveMessage})
	ob.Enqueue(Item{WorkflowID: "b", Signal: SignalReceiveMessage})
	ob.Enqueue(Item{WorkflowID: "c", Signal: SignalReceiveMessage})

	first := <-ob.ch
	second := <-ob.ch
	if first.WorkflowID != "b" || second.WorkflowID != "c" {
		t.Errorf("queue = [%s %s], want [b c]", first.WorkflowID, second.WorkflowID)
	}
}

func TestOutbox_retriesFailedDelivery(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	ob := NewOutbox(4, func(context.Context, Item) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return fmt.Errorf("transient signal failure")
		}
		close(done)
		return nil
	}, zap.NewNop(), testMetrics())

	ob.Start(context.Background())
	ob.Enqueue(Item{WorkflowID: "chat-session-1", Signal: SignalReceiveMessage})

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for retry")
	}
	ob.Close()

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestOutbox_closeFlushesQueued(t *testing.T) {
	var mu sync.Mutex
	var delivered int

	ob := NewOutbox(8, func(context.Context, Item) error {
		mu.Lock()
		delivered++
		mu.Unlock()
		return nil
	}, zap.NewNop(), testMetrics())

	for i := 0; i < 5; i++ {
		ob.Enqueue(Item{WorkflowID: "chat-session-1", Signal: SignalReceiveMessage})
	}
	ob.Start(context.Background())
	ob.Close()

	mu.Lock()
	defer mu.Unlock()
	if delivered != 5 {
		t.Errorf("delivered = %d, want 5", delivered)
	}
}
