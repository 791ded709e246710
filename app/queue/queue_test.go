package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/lysyi3m/newsgram/app/feed"
)

func delivery(guid string) Delivery {
	return Delivery{
		Article: feed.Article{GUID: guid, Hash: feed.HashGUID(guid)},
		Source:  "test-feed",
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		q.Enqueue(delivery(fmt.Sprintf("g%d", i)))
	}

	for i := 0; i < 5; i++ {
		d, ok := q.Dequeue(context.Background())
		if !ok {
			t.Fatal("Expected dequeue to succeed")
		}
		if d.Article.GUID != fmt.Sprintf("g%d", i) {
			t.Errorf("Expected g%d, got %s", i, d.Article.GUID)
		}
		q.Done()
	}

	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

func TestQueueLenCountsInflight(t *testing.T) {
	q := New()
	q.Enqueue(delivery("a"))
	q.Enqueue(delivery("b"))

	if q.Len() != 2 {
		t.Errorf("Expected length 2, got %d", q.Len())
	}

	if _, ok := q.Dequeue(context.Background()); !ok {
		t.Fatal("Expected dequeue to succeed")
	}

	// Dequeued but not acknowledged: still counts as outstanding
	if q.Len() != 2 {
		t.Errorf("Expected length 2 with one in flight, got %d", q.Len())
	}

	q.Done()
	if q.Len() != 1 {
		t.Errorf("Expected length 1 after ack, got %d", q.Len())
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	got := make(chan Delivery, 1)

	go func() {
		d, ok := q.Dequeue(context.Background())
		if ok {
			got <- d
		}
	}()

	select {
	case <-got:
		t.Fatal("Dequeue returned before any enqueue")
	case <-time.After(20 * time.Millisecond):
	}

	q.Enqueue(delivery("late"))

	select {
	case d := <-got:
		if d.Article.GUID != "late" {
			t.Errorf("Expected 'late', got %s", d.Article.GUID)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake up after enqueue")
	}
}

func TestDequeueRespectsCancellation(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Dequeue(ctx)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("Expected dequeue to report cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after cancellation")
	}
}

func TestSessionBeginFinish(t *testing.T) {
	s := NewSession()
	hash := feed.HashGUID("article-1")

	if !s.Begin(hash) {
		t.Error("Expected first Begin to succeed")
	}
	if s.Begin(hash) {
		t.Error("Expected second Begin to fail while in flight")
	}
	if s.Size() != 1 {
		t.Errorf("Expected size 1, got %d", s.Size())
	}

	s.Finish(hash)

	if !s.Begin(hash) {
		t.Error("Expected Begin to succeed after Finish")
	}
}

func TestSessionIndependentHashes(t *testing.T) {
	s := NewSession()

	if !s.Begin("h1") || !s.Begin("h2") {
		t.Error("Expected distinct hashes to both begin")
	}
	s.Finish("h1")
	if s.Begin("h2") {
		t.Error("Expected h2 to still be in flight")
	}
	if !s.Begin("h1") {
		t.Error("Expected h1 to be released")
	}
}
