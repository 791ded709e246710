package database

import (
	"database/sql"
	"fmt"
)

var _ ArticleRepository = (*ArticleRepositoryImpl)(nil)

type ArticleRepositoryImpl struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepositoryImpl {
	return &ArticleRepositoryImpl{db: db}
}

func (r *ArticleRepositoryImpl) HasBeenSent(hash string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM sent_articles WHERE article_hash = ? LIMIT 1`, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check sent hash: %w", err)
	}
	return true, nil
}

// HasTitleBeenSent guards against feeds republishing the same story under a
// new guid. Exact match on the normalized title.
func (r *ArticleRepositoryImpl) HasTitleBeenSent(title string) (bool, error) {
	var one int
	err := r.db.QueryRow(`SELECT 1 FROM sent_articles WHERE title = ? LIMIT 1`, title).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check sent title: %w", err)
	}
	return true, nil
}

func (r *ArticleRepositoryImpl) RecordSent(rec SentRecord) error {
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO sent_articles (article_hash, guid, title, link, message_id, feed_source)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Hash, rec.GUID, rec.Title, rec.Link, rec.MessageID, rec.FeedSource)

	if err != nil {
		return fmt.Errorf("failed to record sent article: %w", err)
	}

	return nil
}

func (r *ArticleRepositoryImpl) RecordFailure(hash string, errorMessage string) error {
	_, err := r.db.Exec(`
		INSERT INTO failed_sends (article_hash, error_message, retry_count)
		VALUES (?, ?, 1)
		ON CONFLICT(article_hash) DO UPDATE SET
			retry_count = retry_count + 1,
			last_retry = CURRENT_TIMESTAMP,
			error_message = excluded.error_message
	`, hash, errorMessage)

	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}

	return nil
}

func (r *ArticleRepositoryImpl) GetFailure(hash string) (*FailureRecord, error) {
	var rec FailureRecord
	err := r.db.QueryRow(`
		SELECT id, article_hash, COALESCE(error_message, ''), retry_count, last_retry, resolved
		FROM failed_sends
		WHERE article_hash = ?
	`, hash).Scan(&rec.ID, &rec.Hash, &rec.ErrorMessage, &rec.RetryCount, &rec.LastRetry, &rec.Resolved)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failure record: %w", err)
	}

	return &rec, nil
}

func (r *ArticleRepositoryImpl) GetStats() (Stats, error) {
	var stats Stats

	err := r.db.QueryRow(`SELECT COUNT(*) FROM sent_articles`).Scan(&stats.TotalSent)
	if err != nil {
		return stats, fmt.Errorf("failed to count sent articles: %w", err)
	}

	err = r.db.QueryRow(`SELECT COUNT(*) FROM failed_sends WHERE resolved = FALSE`).Scan(&stats.PendingFailures)
	if err != nil {
		return stats, fmt.Errorf("failed to count pending failures: %w", err)
	}

	err = r.db.QueryRow(`SELECT COUNT(*) FROM sent_articles WHERE sent_at > datetime('now', '-1 hour')`).Scan(&stats.SentLastHour)
	if err != nil {
		return stats, fmt.Errorf("failed to count recent sends: %w", err)
	}

	return stats, nil
}
