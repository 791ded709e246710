package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/newsgram/app/feed"
	"github.com/lysyi3m/newsgram/app/queue"
)

// ScanFeedTask fetches one feed and hands its fresh articles to the delivery
// queue. Articles already queued or mid-delivery are skipped via the session.
type ScanFeedTask struct {
	Task
	FeedConfig *feed.Config
	fetcher    *feed.Fetcher
	session    *queue.Session
	deliveries *queue.Queue
}

func NewScanFeedTask(feedName string, feedConfig *feed.Config, fetcher *feed.Fetcher,
	session *queue.Session, deliveries *queue.Queue) *ScanFeedTask {
	return &ScanFeedTask{
		Task:       NewTask(TaskTypeScanFeed, feedName),
		FeedConfig: feedConfig,
		fetcher:    fetcher,
		session:    session,
		deliveries: deliveries,
	}
}

func (t *ScanFeedTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !t.FeedConfig.Settings.Enabled {
		slog.Debug("Feed disabled, skipping", "feed", t.FeedName)
		return nil
	}

	articles, err := t.fetcher.Run(ctx, t.FeedConfig)
	if err != nil {
		return fmt.Errorf("failed to scan feed: %w", err)
	}

	queued := 0
	for _, article := range articles {
		if !t.session.Begin(article.Hash) {
			slog.Debug("Article already queued, skipping", "feed", t.FeedName, "title", article.Title)
			continue
		}

		t.deliveries.Enqueue(queue.Delivery{Article: article, Source: t.FeedName})
		queued++
	}

	slog.Info("Feed scanned", "feed", t.FeedName, "fresh", len(articles), "queued", queued,
		"duration", t.GetDuration().Round(time.Millisecond).String())

	return nil
}
