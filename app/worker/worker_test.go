package worker

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/newsgram/app/database"
	"github.com/lysyi3m/newsgram/app/feed"
	"github.com/lysyi3m/newsgram/app/queue"
	"github.com/lysyi3m/newsgram/app/telegram"
)

type fakeRepo struct {
	mu       sync.Mutex
	sent     []database.SentRecord
	failures map[string]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{failures: make(map[string]int)}
}

func (r *fakeRepo) HasBeenSent(hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.sent {
		if rec.Hash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) HasTitleBeenSent(title string) (bool, error) { return false, nil }

func (r *fakeRepo) RecordSent(rec database.SentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, rec)
	return nil
}

func (r *fakeRepo) RecordFailure(hash string, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[hash]++
	return nil
}

func (r *fakeRepo) GetFailure(hash string) (*database.FailureRecord, error) { return nil, nil }
func (r *fakeRepo) GetStats() (database.Stats, error)                      { return database.Stats{}, nil }

func (r *fakeRepo) sentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *fakeRepo) failureCount(hash string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[hash]
}

type sendCall struct {
	chatID string
	button *telegram.Button
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sendCall
	errs  []error // popped per call, nil afterwards
}

func (s *fakeSender) SendPhoto(ctx context.Context, chatID string, photo []byte, button *telegram.Button) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sendCall{chatID: chatID, button: button})
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return "", err
		}
	}
	return "42", nil
}

func (s *fakeSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeSender) lastCall() sendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

type fakeRenderer struct {
	mu        sync.Mutex
	lastImage []byte
}

func (r *fakeRenderer) Render(title, description, publishedLabel string, imageData []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastImage = imageData
	return []byte("png-bytes"), nil
}

type fakeShortener struct {
	mu   sync.Mutex
	seen []string
}

func (s *fakeShortener) Shorten(ctx context.Context, longURL string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, longURL)
	return "https://sho.rt/abc"
}

type fakeImages struct {
	data []byte
}

func (f *fakeImages) FetchURL(ctx context.Context, url string, timeout time.Duration) []byte {
	return f.data
}

func testDelivery(hash string) queue.Delivery {
	return queue.Delivery{
		Article: feed.Article{
			Title:       "Test headline",
			Description: "Test description.",
			Link:        "https://example.com/article",
			PublishedAt: time.Now(),
			GUID:        hash,
			Hash:        hash,
		},
		Source: "test-feed",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met within timeout")
}

type fixture struct {
	q         *queue.Queue
	session   *queue.Session
	repo      *fakeRepo
	sender    *fakeSender
	renderer  *fakeRenderer
	shortener *fakeShortener
	images    *fakeImages
	worker    *Worker
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	if opts.ChannelID == "" {
		opts.ChannelID = "@testchannel"
	}
	if opts.MinSendInterval == 0 {
		opts.MinSendInterval = 1
	}

	f := &fixture{
		q:         queue.New(),
		session:   queue.NewSession(),
		repo:      newFakeRepo(),
		sender:    &fakeSender{},
		renderer:  &fakeRenderer{},
		shortener: &fakeShortener{},
		images:    &fakeImages{},
	}
	f.worker = New(f.q, f.session, f.repo, f.sender, f.renderer, f.shortener, f.images, opts)

	return f
}

func (f *fixture) enqueue(hash string) {
	d := testDelivery(hash)
	f.session.Begin(d.Article.Hash)
	f.q.Enqueue(d)
}

func TestWorkerDeliversArticle(t *testing.T) {
	f := newFixture(t, Options{})
	f.enqueue("hash-1")

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool { return f.repo.sentCount() == 1 })

	call := f.sender.lastCall()
	if call.chatID != "@testchannel" {
		t.Errorf("Expected send to @testchannel, got %s", call.chatID)
	}
	if call.button == nil || call.button.URL != "https://sho.rt/abc" {
		t.Errorf("Expected shortened button URL, got %+v", call.button)
	}

	f.repo.mu.Lock()
	rec := f.repo.sent[0]
	f.repo.mu.Unlock()
	if rec.MessageID != "42" {
		t.Errorf("Expected message id 42, got %s", rec.MessageID)
	}
	if rec.FeedSource != "test-feed" {
		t.Errorf("Expected feed source recorded, got %s", rec.FeedSource)
	}

	waitFor(t, time.Second, func() bool { return f.session.Size() == 0 && f.q.Len() == 0 })
}

func TestWorkerBuildsInstantViewLink(t *testing.T) {
	f := newFixture(t, Options{IVRHash: "ab12cd34"})
	f.enqueue("hash-iv")

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool { return f.repo.sentCount() == 1 })

	f.shortener.mu.Lock()
	seen := f.shortener.seen[0]
	f.shortener.mu.Unlock()

	if !strings.HasPrefix(seen, "https://t.me/iv?url=") {
		t.Errorf("Expected instant-view link, got %s", seen)
	}
	if !strings.Contains(seen, "rhash=ab12cd34") {
		t.Errorf("Expected rhash in link, got %s", seen)
	}
	if !strings.Contains(seen, "https%3A%2F%2Fexample.com%2Farticle") {
		t.Errorf("Expected escaped article link, got %s", seen)
	}
}

func TestWorkerFetchesLeadImage(t *testing.T) {
	f := newFixture(t, Options{})
	f.images.data = []byte("jpeg-bytes")

	d := testDelivery("hash-img")
	d.Article.ImageURL = "https://example.com/lead.jpg"
	f.session.Begin(d.Article.Hash)
	f.q.Enqueue(d)

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool { return f.repo.sentCount() == 1 })

	f.renderer.mu.Lock()
	got := string(f.renderer.lastImage)
	f.renderer.mu.Unlock()
	if got != "jpeg-bytes" {
		t.Errorf("Expected fetched image passed to renderer, got %q", got)
	}
}

func TestWorkerRecordsFailureOnAPIError(t *testing.T) {
	f := newFixture(t, Options{})
	f.sender.errs = []error{&telegram.APIError{Code: 400, Description: "Bad Request: chat not found"}}
	f.enqueue("hash-fail")

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 5*time.Second, func() bool { return f.repo.failureCount("hash-fail") == 1 })

	if f.repo.sentCount() != 0 {
		t.Error("Expected no sent record after delivery failure")
	}
	if f.sender.callCount() != 1 {
		t.Errorf("Expected exactly 1 send attempt, got %d", f.sender.callCount())
	}

	waitFor(t, time.Second, func() bool { return f.session.Size() == 0 })
}

func TestWorkerFloodDropsArticle(t *testing.T) {
	f := newFixture(t, Options{FloodFallbackWait: 0})
	f.sender.errs = []error{&telegram.FloodError{RetryAfter: 0, Description: "Too Many Requests"}}
	f.enqueue("hash-flood")

	f.worker.Start()
	defer f.worker.Stop()

	// Backoff is retry-after + 1 second before the article is dropped.
	waitFor(t, 5*time.Second, func() bool { return f.session.Size() == 0 && f.q.Len() == 0 })

	if f.repo.sentCount() != 0 {
		t.Error("Expected flooded article to be dropped, not sent")
	}
	if f.repo.failureCount("hash-flood") != 0 {
		t.Errorf("Expected no failure record for a flood-dropped article, got %d", f.repo.failureCount("hash-flood"))
	}
	if f.sender.callCount() != 1 {
		t.Errorf("Expected no retry after flood drop, got %d attempts", f.sender.callCount())
	}
}

func TestWorkerFloodBackoffDuration(t *testing.T) {
	f := newFixture(t, Options{FloodFallbackWait: 0})
	f.sender.errs = []error{&telegram.FloodError{RetryAfter: 1, Description: "Too Many Requests: retry after 1"}}
	f.enqueue("hash-backoff")

	start := time.Now()
	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 10*time.Second, func() bool { return f.session.Size() == 0 && f.q.Len() == 0 })

	// The worker sleeps retry-after + 1 second before dropping.
	if elapsed := time.Since(start); elapsed < 2*time.Second {
		t.Errorf("Expected at least 2s flood backoff, article dropped after %s", elapsed)
	}
	if f.sender.callCount() != 1 {
		t.Errorf("Expected a single send attempt, got %d", f.sender.callCount())
	}
	if f.repo.failureCount("hash-backoff") != 0 {
		t.Errorf("Expected no failure record after flood backoff, got %d", f.repo.failureCount("hash-backoff"))
	}
}

func TestWorkerFloodRequeues(t *testing.T) {
	f := newFixture(t, Options{FloodFallbackWait: 0, RequeueOnFlood: true})
	f.sender.errs = []error{&telegram.FloodError{RetryAfter: 0, Description: "Too Many Requests"}}
	f.enqueue("hash-retry")

	f.worker.Start()
	defer f.worker.Stop()

	waitFor(t, 10*time.Second, func() bool { return f.repo.sentCount() == 1 })

	if f.sender.callCount() != 2 {
		t.Errorf("Expected 2 send attempts, got %d", f.sender.callCount())
	}
	if f.repo.failureCount("hash-retry") != 0 {
		t.Errorf("Expected no failure record on requeue, got %d", f.repo.failureCount("hash-retry"))
	}

	waitFor(t, time.Second, func() bool { return f.session.Size() == 0 && f.q.Len() == 0 })
}

func TestWorkerStops(t *testing.T) {
	f := newFixture(t, Options{})

	f.worker.Start()

	done := make(chan struct{})
	go func() {
		f.worker.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Worker did not stop")
	}
}
