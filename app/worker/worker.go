package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/newsgram/app/database"
	"github.com/lysyi3m/newsgram/app/queue"
	"github.com/lysyi3m/newsgram/app/render"
	"github.com/lysyi3m/newsgram/app/telegram"
)

// Sender delivers a rendered card to a chat and returns the message id.
type Sender interface {
	SendPhoto(ctx context.Context, chatID string, photo []byte, button *telegram.Button) (string, error)
}

// URLShortener shortens a link best-effort, returning the original on failure.
type URLShortener interface {
	Shorten(ctx context.Context, longURL string) string
}

// ImageFetcher retrieves a lead image, returning nil when it cannot.
type ImageFetcher interface {
	FetchURL(ctx context.Context, url string, timeout time.Duration) []byte
}

type Options struct {
	ChannelID         string
	IVRHash           string
	MinSendInterval   int // seconds between sends
	FloodFallbackWait int // seconds to wait when the flood error carries no retry hint
	RequeueOnFlood    bool
}

// Worker is the single consumer of the delivery queue. One worker per channel
// keeps sends strictly sequential, which is what the flood limits require.
type Worker struct {
	queue     *queue.Queue
	session   *queue.Session
	repo      database.ArticleRepository
	sender    Sender
	renderer  render.Renderer
	shortener URLShortener
	images    ImageFetcher
	limiter   *rate.Limiter
	opts      Options

	cancel context.CancelFunc
	done   chan struct{}
}

func New(q *queue.Queue, session *queue.Session, repo database.ArticleRepository,
	sender Sender, renderer render.Renderer, shortener URLShortener,
	images ImageFetcher, opts Options) *Worker {

	interval := time.Duration(opts.MinSendInterval) * time.Second
	if interval <= 0 {
		interval = time.Second
	}

	return &Worker{
		queue:     q,
		session:   session,
		repo:      repo,
		sender:    sender,
		renderer:  renderer,
		shortener: shortener,
		images:    images,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		opts:      opts,
	}
}

func (w *Worker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx)

	slog.Debug("Delivery worker started")
}

// Stop cancels the worker and waits for the in-flight delivery to finish,
// bounded so a stuck send cannot hang shutdown.
func (w *Worker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()

	select {
	case <-w.done:
	case <-time.After(30 * time.Second):
		slog.Warn("Delivery worker did not stop in time")
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	for {
		delivery, ok := w.queue.Dequeue(ctx)
		if !ok {
			return
		}
		w.process(ctx, delivery)
	}
}

func (w *Worker) process(ctx context.Context, d queue.Delivery) {
	requeued := false

	defer w.queue.Done()
	defer func() {
		// A requeued article stays in the session so the next scan cannot
		// enqueue it a second time.
		if !requeued {
			w.session.Finish(d.Article.Hash)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while delivering article", "title", d.Article.Title, "panic", r)
		}
	}()

	if err := w.limiter.Wait(ctx); err != nil {
		return
	}

	card, err := w.renderCard(ctx, d)
	if err != nil {
		slog.Error("Failed to render article card", "title", d.Article.Title, "error", err)
		w.recordFailure(d, err)
		return
	}

	button := &telegram.Button{
		Text: "Read Full Story",
		URL:  w.buttonURL(ctx, d.Article.Link),
	}

	messageID, err := w.sender.SendPhoto(ctx, w.opts.ChannelID, card, button)
	if err != nil {
		requeued = w.handleSendError(ctx, d, err)
		return
	}

	if err := w.repo.RecordSent(database.SentRecord{
		Hash:       d.Article.Hash,
		GUID:       d.Article.GUID,
		Title:      d.Article.Title,
		Link:       d.Article.Link,
		MessageID:  messageID,
		FeedSource: d.Source,
	}); err != nil {
		slog.Error("Failed to record sent article", "title", d.Article.Title, "error", err)
	}

	slog.Info("Article delivered", "title", d.Article.Title, "source", d.Source, "message_id", messageID)
}

func (w *Worker) renderCard(ctx context.Context, d queue.Delivery) ([]byte, error) {
	var imageData []byte
	if d.Article.ImageURL != "" {
		imageData = w.images.FetchURL(ctx, d.Article.ImageURL, 30*time.Second)
	}

	label := d.Article.PublishedAt.In(time.Local).Format("2 Jan 2006, 15:04")

	return w.renderer.Render(d.Article.Title, d.Article.Description, label, imageData)
}

// buttonURL builds the link behind the card button: the instant-view wrapper
// when an rhash is configured, shortened best-effort either way.
func (w *Worker) buttonURL(ctx context.Context, link string) string {
	target := link
	if w.opts.IVRHash != "" {
		target = fmt.Sprintf("https://t.me/iv?url=%s&rhash=%s", url.QueryEscape(link), w.opts.IVRHash)
	}
	return w.shortener.Shorten(ctx, target)
}

func (w *Worker) handleSendError(ctx context.Context, d queue.Delivery, err error) (requeued bool) {
	var flood *telegram.FloodError
	if errors.As(err, &flood) {
		return w.handleFlood(ctx, d, flood)
	}

	slog.Error("Failed to deliver article", "title", d.Article.Title, "error", err)
	w.recordFailure(d, err)
	return false
}

// handleFlood sleeps past the announced window, then either drops the article
// or puts it back at the end of the queue. Dropping is the default: by the
// time the window passes the next scan has fresher news anyway.
func (w *Worker) handleFlood(ctx context.Context, d queue.Delivery, flood *telegram.FloodError) (requeued bool) {
	wait := flood.RetryAfter
	if wait <= 0 {
		wait = w.opts.FloodFallbackWait
	}

	slog.Warn("Flood control hit, backing off", "title", d.Article.Title, "wait_seconds", wait+1)

	select {
	case <-time.After(time.Duration(wait+1) * time.Second):
	case <-ctx.Done():
		return false
	}

	if w.opts.RequeueOnFlood {
		w.queue.Enqueue(d)
		return true
	}

	// A rate limit is not a delivery failure; no failure record is written.
	slog.Warn("Article dropped after flood backoff", "title", d.Article.Title, "source", d.Source)
	return false
}

func (w *Worker) recordFailure(d queue.Delivery, cause error) {
	if err := w.repo.RecordFailure(d.Article.Hash, cause.Error()); err != nil {
		slog.Error("Failed to record delivery failure", "title", d.Article.Title, "error", err)
	}
}
