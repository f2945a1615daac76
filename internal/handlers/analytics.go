package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/analytics"
)

const defaultRecentEvents = 50

func (h *Handler) GetAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Analytics.Summary(c.Request.Context()))
}

// GetRecentEvents retourne les derniers événements bruts (?limit=, 50 par défaut)
func (h *Handler) GetRecentEvents(c *gin.Context) {
	limit := defaultRecentEvents
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit invalide"})
			return
		}
		limit = n
	}
	events := h.Analytics.RecentEvents(c.Request.Context(), limit)
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// GetTimeline regroupe par heure ; ?event_type= restreint à un type
func (h *Handler) GetTimeline(c *gin.Context) {
	ctx := c.Request.Context()
	eventType := c.Query("event_type")

	var buckets []analytics.Bucket
	if eventType != "" {
		buckets = h.Analytics.TypeTimeline(ctx, eventType)
	} else {
		buckets = h.Analytics.Timeline(ctx)
	}
	c.JSON(http.StatusOK, gin.H{"event_type": eventType, "buckets": buckets})
}
