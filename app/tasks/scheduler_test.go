package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/newsgram/app/feed"
	"github.com/lysyi3m/newsgram/app/queue"
)

type failingTask struct {
	Task
	executions atomic.Int32
}

func (t *failingTask) Execute(ctx context.Context) error {
	t.executions.Add(1)
	return errors.New("task failed")
}

func newTestScheduler() *Scheduler {
	return newScheduler(feed.NewConfigCache(""), nil, queue.NewSession(), queue.New(),
		time.Hour, 1)
}

func TestSchedulerStopWithPendingRetry(t *testing.T) {
	s := newTestScheduler()
	s.Start()

	task := &failingTask{Task: NewTask(TaskTypeScanFeed, "test-feed")}
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("Failed to enqueue task: %v", err)
	}

	// Let the task fail and schedule its first retry, then stop while the
	// retry is still waiting out its delay.
	deadline := time.Now().Add(2 * time.Second)
	for task.executions.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if task.executions.Load() == 0 {
		t.Fatal("Task was never executed")
	}

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Scheduler did not stop with a retry pending")
	}
}

func TestSchedulerEnqueueAfterStop(t *testing.T) {
	s := newTestScheduler()
	s.Start()
	s.Stop()

	task := &failingTask{Task: NewTask(TaskTypeScanFeed, "test-feed")}
	if err := s.EnqueueTask(task); err == nil {
		t.Error("Expected error when enqueueing after stop")
	}
}

func TestSchedulerRetriesFailedTask(t *testing.T) {
	s := newTestScheduler()
	s.Start()
	defer s.Stop()

	task := &failingTask{Task: NewTask(TaskTypeScanFeed, "test-feed")}
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("Failed to enqueue task: %v", err)
	}

	// First retry is re-enqueued after a 1 second delay.
	deadline := time.Now().Add(5 * time.Second)
	for task.executions.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if got := task.executions.Load(); got < 2 {
		t.Errorf("Expected at least 2 executions via retry, got %d", got)
	}
}
