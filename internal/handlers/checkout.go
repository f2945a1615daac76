package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/currency"
	"storefront_back_end/internal/services"
)

// SubmitCheckout soumet la commande simulée de la session courante
func (h *Handler) SubmitCheckout(c *gin.Context) {
	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Formulaire invalide"})
		return
	}

	s := h.session(c)
	items, _, _ := s.Snapshot()

	order, err := s.Checkout().Submit(c.Request.Context(), form, items)
	if err != nil {
		var partial *checkout.PartialFailureError
		switch {
		case errors.Is(err, checkout.ErrMissingField), errors.Is(err, checkout.ErrEmptyCart):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, checkout.ErrInProgress),
			errors.Is(err, checkout.ErrAlreadyComplete),
			errors.Is(err, checkout.ErrClosed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &partial):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":    "Erreur lors de la commande. Veuillez réessayer.",
				"order_id": partial.OrderID,
			})
		default:
			log.Printf("❌ Checkout session %s: %v", s.ID, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Erreur lors de la commande. Veuillez réessayer."})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order":            order,
		"formatted_total":  currency.FormatPrice(order.TotalAmount),
		"reset_in_seconds": int(checkout.ResetDelay.Seconds()),
	})
}

// GetCheckout retourne l'état de l'orchestrateur et la dernière commande
func (h *Handler) GetCheckout(c *gin.Context) {
	orchestrator := h.session(c).Checkout()
	c.JSON(http.StatusOK, gin.H{
		"state":      orchestrator.State(),
		"last_order": orchestrator.LastOrder(),
	})
}

// GetReceiptQR retourne le QR code PNG de la dernière commande
func (h *Handler) GetReceiptQR(c *gin.Context) {
	order := h.session(c).Checkout().LastOrder()
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Aucune commande terminée"})
		return
	}

	png, err := services.ReceiptQR(order.ID)
	if err != nil {
		log.Printf("❌ QR code commande %s: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération du reçu"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
