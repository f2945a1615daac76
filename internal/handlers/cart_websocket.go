package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const wsPingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Les origines sont déjà filtrées par le middleware CORS
		return true
	},
}

// CartWebSocket pousse un instantané du panier à chaque changement
func (h *Handler) CartWebSocket(c *gin.Context) {
	s := h.session(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	notifications, unsubscribe := h.Bus.Subscribe(ctx, s.ID)
	defer unsubscribe()

	// Lecture pour détecter la fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{
		"type":    "connected",
		"message": "Synchronisation panier activée",
	}); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case kind, ok := <-notifications:
			if !ok {
				return
			}
			items, total, count := s.Snapshot()
			response := cartResponse(items, total, count)
			response["type"] = "cart_" + kind
			if err := conn.WriteJSON(response); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
