package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront_back_end/internal/catalog"
	"storefront_back_end/internal/currency"
	"storefront_back_end/internal/models"
)

type productView struct {
	models.Product
	FormattedPrice string `json:"formatted_price"`
}

func viewProduct(p models.Product) productView {
	return productView{Product: p, FormattedPrice: currency.FormatPrice(p.Price)}
}

// GetProducts liste le catalogue, les plus récents d'abord
func (h *Handler) GetProducts(c *gin.Context) {
	products := h.Catalog.List(c.Request.Context())

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, viewProduct(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": views, "count": len(views)})
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.Catalog.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err != nil {
		log.Printf("❌ Erreur lecture produit %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produit"})
		return
	}
	c.JSON(http.StatusOK, viewProduct(p))
}
