package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/analytics"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/middleware"
	"storefront_back_end/internal/session"
)

// CartSubscriber fournit les notifications de changement d'un panier
type CartSubscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan string, func())
}

// Handler regroupe les dépendances des routes HTTP
type Handler struct {
	Catalog   *catalog.Service
	Sessions  *session.Registry
	Recorder  *analytics.Recorder
	Analytics *analytics.Aggregator
	Bus       CartSubscriber
}

func (h *Handler) session(c *gin.Context) *session.Session {
	return h.Sessions.Get(c.GetString(middleware.SessionIDKey))
}
