package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TrackEvent reçoit la télémétrie du client ; répond toujours 202
func (h *Handler) TrackEvent(c *gin.Context) {
	var input struct {
		EventType string         `json:"event_type"`
		EventData map[string]any `json:"event_data"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.EventType == "" {
		log.Printf("⚠️ Événement client ignoré: %v", err)
		c.Status(http.StatusAccepted)
		return
	}

	h.Recorder.Track(input.EventType, input.EventData)
	c.Status(http.StatusAccepted)
}
