package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	// Limites par minute
	EventsMaxRequests  = 120
	CartAddMaxRequests = 60

	RateLimitWindow = 1 * time.Minute
)

// RateLimit limite les requêtes par clé (session si présente, IP sinon) sur
// une fenêtre fixe stockée dans Redis. Sans Redis, le middleware laisse passer.
func RateLimit(client *redis.Client, prefix string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil {
			c.Next()
			return
		}

		who := c.GetString(SessionIDKey)
		if who == "" {
			who = c.ClientIP()
		}
		key := prefix + ":" + who

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		count, err := countRequest(ctx, client, key, window)
		if err != nil {
			log.Printf("⚠️ Rate limit %s indisponible: %v", prefix, err)
			c.Next()
			return
		}

		requests := int(count)
		if requests > max {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez dans 1 minute",
				"retry_after": int(window.Seconds()),
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max-requests))
		c.Next()
	}
}

// countRequest incrémente le compteur de la fenêtre. Le TTL est posé dès
// que la clé n'en a pas (INCR + TTL + EXPIRE, compatibles Redis < 7).
func countRequest(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, error) {
	pipe := client.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	if ttl.Val() < 0 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return incr.Val(), nil
}
