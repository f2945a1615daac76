package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/models"
)

const (
	ProductCacheTTL = 10 * time.Minute
	productsKey     = "products:all"
)

// ProductCache garde le catalogue complet dans Redis.
// Un client nil désactive le cache : toutes les lectures sont des miss.
type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = ProductCacheTTL
	}
	return &ProductCache{client: client, ttl: ttl}
}

// Get retourne le catalogue en cache et true, ou false si absent
func (c *ProductCache) Get(ctx context.Context) ([]models.Product, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, productsKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ Lecture cache produits: %v", err)
		}
		return nil, false
	}

	var products []models.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		log.Printf("⚠️ Cache produits illisible, invalidation: %v", err)
		c.Invalidate(ctx)
		return nil, false
	}
	return products, true
}

// Set met le catalogue en cache ; les erreurs sont seulement loguées
func (c *ProductCache) Set(ctx context.Context, products []models.Product) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		log.Printf("⚠️ Encodage cache produits: %v", err)
		return
	}
	if err := c.client.Set(ctx, productsKey, data, c.ttl).Err(); err != nil {
		log.Printf("⚠️ Écriture cache produits: %v", err)
	}
}

// Invalidate supprime le catalogue du cache (après un seed par exemple)
func (c *ProductCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, productsKey).Err(); err != nil {
		log.Printf("⚠️ Invalidation cache produits: %v", err)
	}
}
