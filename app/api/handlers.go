package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/newsgram/app/database"
	"github.com/lysyi3m/newsgram/app/feed"
	"github.com/lysyi3m/newsgram/app/queue"
)

type Handler struct {
	repo        database.ArticleRepository
	configCache *feed.ConfigCache
	deliveries  *queue.Queue
	session     *queue.Session
}

func NewHandler(repo database.ArticleRepository, configCache *feed.ConfigCache,
	deliveries *queue.Queue, session *queue.Session) *Handler {
	return &Handler{
		repo:        repo,
		configCache: configCache,
		deliveries:  deliveries,
		session:     session,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
		"queue_length":          h.deliveries.Len(),
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.repo.GetStats()
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_sent":       stats.TotalSent,
		"pending_failures": stats.PendingFailures,
		"sent_last_hour":   stats.SentLastHour,
		"queue_length":     h.deliveries.Len(),
		"in_flight":        h.session.Size(),
	})
}
