package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/lysyi3m/newsgram/app/database"
	"github.com/lysyi3m/newsgram/app/textutil"
)

// Fetcher retrieves one feed and turns it into deliverable articles: fetch
// with retry, parse, keep only entries published today, drop everything the
// store has already seen, normalize and summarize what is left.
type Fetcher struct {
	httpClient    *http.Client
	parser        *Parser
	extractor     *ContentExtractor
	repo          database.ArticleRepository
	userAgent     string
	maxRetries    int
	baseDelay     time.Duration
	summaryBudget int
}

func NewFetcher(httpClient *http.Client, parser *Parser, extractor *ContentExtractor,
	repo database.ArticleRepository, userAgent string, maxRetries int,
	baseDelay time.Duration, summaryBudget int) *Fetcher {
	return &Fetcher{
		httpClient:    httpClient,
		parser:        parser,
		extractor:     extractor,
		repo:          repo,
		userAgent:     userAgent,
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		summaryBudget: summaryBudget,
	}
}

// Run fetches and filters one feed. A feed that cannot be fetched or parsed
// yields an empty list, not an error: the cycle moves on and the next tick
// tries again. Errors are reserved for store failures.
func (f *Fetcher) Run(ctx context.Context, feedConfig *Config) ([]Article, error) {
	timeout := time.Duration(feedConfig.Settings.Timeout) * time.Second

	data := f.FetchURL(ctx, feedConfig.URL, timeout)
	if data == nil {
		return nil, nil
	}

	parsed, err := f.parser.Run(data)
	if err != nil {
		slog.Warn("Feed parse failed, skipping cycle", "feed", feedConfig.Name, "error", err)
		return nil, nil
	}

	seenHashes := make(map[string]bool)
	seenTitles := make(map[string]bool)
	now := time.Now()

	articles := make([]Article, 0, len(parsed))
	for _, article := range parsed {
		if !sameDay(article.PublishedAt, now) {
			continue
		}

		if seenHashes[article.Hash] {
			continue
		}
		sent, err := f.repo.HasBeenSent(article.Hash)
		if err != nil {
			return nil, fmt.Errorf("failed to check sent hash: %w", err)
		}
		if sent {
			continue
		}

		title := textutil.NormalizeTitle(article.Title)
		if seenTitles[title] {
			continue
		}
		titleSent, err := f.repo.HasTitleBeenSent(title)
		if err != nil {
			return nil, fmt.Errorf("failed to check sent title: %w", err)
		}
		if titleSent {
			continue
		}

		article.Title = title
		article.Description = f.buildDescription(ctx, article, feedConfig, timeout)

		seenHashes[article.Hash] = true
		seenTitles[title] = true
		articles = append(articles, article)
	}

	// Oldest first, so a burst of stories reads chronologically in the channel
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].PublishedAt.Before(articles[j].PublishedAt)
	})

	if max := feedConfig.Settings.MaxArticles; max > 0 && len(articles) > max {
		articles = articles[:max]
	}

	return articles, nil
}

func (f *Fetcher) buildDescription(ctx context.Context, article Article, feedConfig *Config, timeout time.Duration) string {
	description := article.Description

	if description == "" && feedConfig.Settings.ExtractContent && f.extractor != nil {
		if page := f.FetchURL(ctx, article.Link, timeout); page != nil {
			extracted, err := f.extractor.Run(page)
			if err != nil {
				slog.Debug("Content extraction failed", "feed", feedConfig.Name, "link", article.Link, "error", err)
			} else {
				description = extracted
			}
		}
	}

	if description == "" {
		return ""
	}

	description = textutil.NormalizeCurrency(textutil.CleanHTML(description))
	return textutil.Summarize(description, f.summaryBudget)
}

// FetchURL retrieves url with exponential backoff. Connection errors,
// timeouts, and non-200 responses are retried; after the final attempt the
// caller gets nil and skips the URL for this cycle.
func (f *Fetcher) FetchURL(ctx context.Context, url string, timeout time.Duration) []byte {
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		data, err := f.fetchOnce(ctx, url, timeout)
		if err == nil {
			return data
		}

		slog.Warn("Fetch attempt failed", "url", url, "attempt", attempt+1, "max_attempts", f.maxRetries, "error", err)

		if attempt < f.maxRetries-1 {
			delay := f.baseDelay * (1 << attempt)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
		}
	}

	slog.Error("Fetch failed after all attempts", "url", url, "attempts", f.maxRetries)
	return nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func sameDay(t time.Time, now time.Time) bool {
	y1, m1, d1 := t.In(time.Local).Date()
	y2, m2, d2 := now.In(time.Local).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
