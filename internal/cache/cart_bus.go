package cache

import (
	"context"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// CartBus diffuse les changements de panier sur le canal "cart:<session>".
// Sans Redis, la diffusion reste locale au processus.
type CartBus struct {
	client *redis.Client

	mu    sync.Mutex
	local map[string]map[chan string]struct{}
}

func NewCartBus(client *redis.Client) *CartBus {
	return &CartBus{client: client, local: map[string]map[chan string]struct{}{}}
}

func channelName(sessionID string) string {
	return "cart:" + sessionID
}

// Publish envoie "updated" ou "cleared" aux abonnés de la session
func (b *CartBus) Publish(ctx context.Context, sessionID, kind string) {
	if b == nil {
		return
	}
	if b.client != nil {
		if err := b.client.Publish(ctx, channelName(sessionID), kind).Err(); err != nil {
			log.Printf("⚠️ Publication panier %s: %v", sessionID, err)
		}
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.local[sessionID] {
		select {
		case ch <- kind:
		default:
		}
	}
}

// Subscribe retourne un canal de notifications et une fonction de fermeture
func (b *CartBus) Subscribe(ctx context.Context, sessionID string) (<-chan string, func()) {
	out := make(chan string, 8)

	if b.client != nil {
		pubsub := b.client.Subscribe(ctx, channelName(sessionID))
		done := make(chan struct{})
		go func() {
			defer close(out)
			ch := pubsub.Channel()
			for {
				select {
				case msg, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- msg.Payload:
					default:
					}
				case <-done:
					return
				}
			}
		}()
		var once sync.Once
		return out, func() {
			once.Do(func() {
				close(done)
				_ = pubsub.Close()
			})
		}
	}

	b.mu.Lock()
	if b.local[sessionID] == nil {
		b.local[sessionID] = map[chan string]struct{}{}
	}
	b.local[sessionID][out] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return out, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.local[sessionID], out)
			if len(b.local[sessionID]) == 0 {
				delete(b.local, sessionID)
			}
			b.mu.Unlock()
			close(out)
		})
	}
}
