package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/currency"
	"storefront_back_end/internal/models"
)

func cartResponse(items []models.CartItem, total float64, count int) gin.H {
	return gin.H{
		"items":           items,
		"total":           total,
		"count":           count,
		"formatted_total": currency.FormatCartTotal(total),
	}
}

func (h *Handler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, cartResponse(h.session(c).Snapshot()))
}

// AddToCart ajoute un produit ; quantité 1 par défaut
func (h *Handler) AddToCart(c *gin.Context) {
	var input struct {
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id requis"})
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if input.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	product, err := h.Catalog.Get(c.Request.Context(), input.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Erreur lecture produit %s: %v", input.ProductID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produit"})
		return
	}
	if product.Stock == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Produit en rupture de stock"})
		return
	}

	s := h.session(c)
	s.WithCart(func(store *cart.Store) { store.Add(product, input.Quantity) })

	h.Recorder.Track(models.EventAddToCart, map[string]any{
		"product_id":   product.ID,
		"product_name": product.Name,
	})

	c.JSON(http.StatusOK, cartResponse(s.Snapshot()))
}

// UpdateCartItem fixe la quantité d'une ligne ; 0 ou moins la supprime
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var input struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity requis"})
		return
	}

	productID := c.Param("productId")
	overStock := false
	s := h.session(c)
	s.WithCart(func(store *cart.Store) {
		for _, item := range store.Items() {
			if item.Product.ID == productID && *input.Quantity > item.Product.Stock {
				overStock = true
				return
			}
		}
		store.UpdateQuantity(productID, *input.Quantity)
	})

	if overStock {
		c.JSON(http.StatusConflict, gin.H{"error": "Quantité supérieure au stock disponible"})
		return
	}
	c.JSON(http.StatusOK, cartResponse(s.Snapshot()))
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	s := h.session(c)
	s.WithCart(func(store *cart.Store) { store.Remove(c.Param("productId")) })
	c.JSON(http.StatusOK, cartResponse(s.Snapshot()))
}

func (h *Handler) ClearCart(c *gin.Context) {
	s := h.session(c)
	s.WithCart(func(store *cart.Store) { store.Clear() })
	c.JSON(http.StatusOK, cartResponse(s.Snapshot()))
}

// ProceedToCheckout enregistre checkout_initiated et retourne le récapitulatif
func (h *Handler) ProceedToCheckout(c *gin.Context) {
	items, total, count := h.session(c).Snapshot()
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	h.Recorder.Track(models.EventCheckoutInitiated, map[string]any{"total": total})

	summary := cartResponse(items, total, count)
	summary["formatted_total_usd"] = currency.FormatUSD(total)
	c.JSON(http.StatusOK, summary)
}
