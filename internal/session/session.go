// Package session associe à chaque session navigateur son panier et son
// orchestrateur de commande. Les sessions ne partagent aucun état.
package session

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"storefront_back_end/internal/cart"
	"storefront_back_end/internal/checkout"
	"storefront_back_end/internal/models"
)

const DefaultIdleTTL = 24 * time.Hour

// Publisher diffuse les changements de panier (pub/sub Redis)
type Publisher interface {
	Publish(ctx context.Context, sessionID, kind string)
}

type Dependencies struct {
	Orders   checkout.OrderWriter
	Tracker  checkout.Tracker
	Notifier checkout.Notifier
	Bus      Publisher
}

// Session regroupe le panier et l'orchestrateur d'un visiteur.
// mu sérialise toutes les mutations du panier.
type Session struct {
	ID string

	mu       sync.Mutex
	cart     *cart.Store
	checkout *checkout.Orchestrator
	pending  []string
	bus      Publisher

	lastSeen atomic.Int64
}

// WithCart exécute fn avec le panier verrouillé ; les changements sont
// publiés une fois le verrou relâché
func (s *Session) WithCart(fn func(c *cart.Store)) {
	for _, change := range s.mutate(fn) {
		s.bus.Publish(context.Background(), s.ID, change)
	}
}

func (s *Session) mutate(fn func(c *cart.Store)) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cart)
	changes := s.pending
	s.pending = nil
	return changes
}

// Snapshot retourne une copie des lignes et le total
func (s *Session) Snapshot() ([]models.CartItem, float64, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Items(), s.cart.Total(), s.cart.ItemCount()
}

func (s *Session) Checkout() *checkout.Orchestrator {
	return s.checkout
}

// Registry crée les sessions à la demande et évince celles inactives
type Registry struct {
	deps    Dependencies
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(deps Dependencies, idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{
		deps:     deps,
		idleTTL:  idleTTL,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Get retourne la session id, créée si besoin, et la marque active
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = r.newSession(id)
		r.sessions[id] = s
		log.Printf("🛒 Nouvelle session %s", id)
	}
	s.lastSeen.Store(r.now().UnixNano())
	return s
}

func (r *Registry) newSession(id string) *Session {
	s := &Session{ID: id, bus: r.deps.Bus}

	// appelé sous s.mu, depuis WithCart
	s.cart = cart.New().WithListener(func(change string) {
		if s.bus != nil {
			s.pending = append(s.pending, change)
		}
	})

	s.checkout = checkout.New(r.deps.Orders, r.deps.Tracker, func() {
		s.WithCart(func(c *cart.Store) { c.Clear() })
	})
	if r.deps.Notifier != nil {
		s.checkout.WithNotifier(r.deps.Notifier)
	}
	return s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep évince les sessions inactives depuis plus que idleTTL et ferme leur
// orchestrateur, ce qui annule tout reset en attente
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL).UnixNano()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Load() < cutoff {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.checkout.Close()
	}
	if len(expired) > 0 {
		log.Printf("🧹 %d session(s) inactive(s) supprimée(s)", len(expired))
	}
	return len(expired)
}

// Run balaie périodiquement jusqu'à l'annulation du contexte
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close ferme toutes les sessions (arrêt du serveur)
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range sessions {
		s.checkout.Close()
	}
}
