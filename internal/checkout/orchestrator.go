// Package checkout orchestre la soumission d'une commande simulée :
// Idle → Submitting → Complete, ou retour à Idle en cas d'échec.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storefront_back_end/internal/models"
)

// ResetDelay est le délai fixe entre la fin de commande et la remise à zéro
const ResetDelay = 3 * time.Second

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateComplete   State = "complete"
)

var (
	ErrInProgress       = errors.New("commande déjà en cours")
	ErrAlreadyComplete  = errors.New("commande déjà terminée")
	ErrEmptyCart        = errors.New("panier vide")
	ErrMissingField     = errors.New("champ obligatoire manquant")
	ErrOrderFailed      = errors.New("échec création commande")
	ErrOrderItemsFailed = errors.New("échec enregistrement des articles")
	ErrClosed           = errors.New("session terminée")
)

// PartialFailureError : la commande existe mais ses articles n'ont pas été écrits.
// Aucune compensation n'est tentée.
type PartialFailureError struct {
	OrderID string
	Err     error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("commande %s créée sans ses articles: %v", e.OrderID, e.Err)
}

func (e *PartialFailureError) Unwrap() []error { return []error{ErrOrderItemsFailed, e.Err} }

var tracer = otel.Tracer("storefront_back_end/internal/checkout")

// OrderWriter regroupe les ressources "orders" et "order_items"
type OrderWriter interface {
	CreateOrder(ctx context.Context, order models.Order) (models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
}

type Tracker interface {
	Track(eventType string, data map[string]any)
}

// Notifier reçoit les commandes terminées (e-mail de confirmation) ; best-effort
type Notifier interface {
	OrderConfirmed(order models.Order, items []models.CartItem)
}

// Form reprend les champs du formulaire de livraison et de paiement
type Form struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	ZipCode    string `json:"zip_code"`
	CardNumber string `json:"card_number"`
	ExpiryDate string `json:"expiry_date"`
	CVV        string `json:"cvv"`
}

// Validate vérifie uniquement la présence des champs requis
func (f Form) Validate() error {
	fields := []struct{ name, value string }{
		{"name", f.Name},
		{"email", f.Email},
		{"address", f.Address},
		{"city", f.City},
		{"zip_code", f.ZipCode},
		{"card_number", f.CardNumber},
		{"expiry_date", f.ExpiryDate},
		{"cvv", f.CVV},
	}
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, field.name)
		}
	}
	return nil
}

// CustomerAddress compose "adresse, ville, code postal"
func (f Form) CustomerAddress() string {
	return fmt.Sprintf("%s, %s, %s", f.Address, f.City, f.ZipCode)
}

type Orchestrator struct {
	orders   OrderWriter
	tracker  Tracker
	notifier Notifier
	onReset  func()

	resetDelay time.Duration

	mu         sync.Mutex
	state      State
	lastOrder  *models.Order
	generation uint64
	timer      *time.Timer
	closed     bool
}

// New crée un orchestrateur ; onReset est appelé quand le délai après une
// commande réussie expire (vider le panier, revenir au catalogue).
func New(orders OrderWriter, tracker Tracker, onReset func()) *Orchestrator {
	return &Orchestrator{
		orders:     orders,
		tracker:    tracker,
		onReset:    onReset,
		resetDelay: ResetDelay,
		state:      StateIdle,
	}
}

func (o *Orchestrator) WithNotifier(n Notifier) *Orchestrator {
	o.notifier = n
	return o
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastOrder retourne la dernière commande réussie, nil sinon
func (o *Orchestrator) LastOrder() *models.Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastOrder == nil {
		return nil
	}
	order := *o.lastOrder
	return &order
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.closed:
		return ErrClosed
	case o.state == StateSubmitting:
		return ErrInProgress
	case o.state == StateComplete:
		return ErrAlreadyComplete
	}
	o.state = StateSubmitting
	return nil
}

func (o *Orchestrator) fail() {
	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()
}

// Submit écrit la commande puis ses articles, en deux étapes non atomiques
func (o *Orchestrator) Submit(ctx context.Context, form Form, items []models.CartItem) (models.Order, error) {
	if err := form.Validate(); err != nil {
		return models.Order{}, err
	}
	if len(items) == 0 {
		return models.Order{}, ErrEmptyCart
	}
	if err := o.begin(); err != nil {
		return models.Order{}, err
	}

	ctx, span := tracer.Start(ctx, "checkout.Submit")
	defer span.End()
	span.SetAttributes(attribute.Int("checkout.lines", len(items)))

	total := 0.0
	for _, item := range items {
		total += item.LineTotal()
	}

	order, err := o.orders.CreateOrder(ctx, models.Order{
		CustomerName:    form.Name,
		CustomerEmail:   form.Email,
		CustomerAddress: form.CustomerAddress(),
		TotalAmount:     total,
		Status:          models.OrderStatusCompleted,
	})
	if err != nil {
		o.fail()
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
		log.Printf("❌ Erreur création commande: %v", err)
		return models.Order{}, fmt.Errorf("%w: %w", ErrOrderFailed, err)
	}
	span.SetAttributes(attribute.String("checkout.order_id", order.ID))

	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, models.OrderItem{
			OrderID:   order.ID,
			ProductID: item.Product.ID,
			Quantity:  item.Quantity,
			Price:     item.Product.Price,
		})
	}

	if err := o.orders.CreateOrderItems(ctx, orderItems); err != nil {
		o.fail()
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order items")
		log.Printf("❌ Commande %s créée mais articles non enregistrés: %v", order.ID, err)
		return order, &PartialFailureError{OrderID: order.ID, Err: err}
	}

	if o.tracker != nil {
		o.tracker.Track(models.EventOrderCompleted, map[string]any{
			"order_id":    order.ID,
			"total":       total,
			"items_count": len(items),
		})
	}
	if o.notifier != nil {
		o.notifier.OrderConfirmed(order, items)
	}

	o.complete(order)
	log.Printf("💳 Commande %s terminée (%.2f, %d lignes)", order.ID, total, len(items))
	return order, nil
}

func (o *Orchestrator) complete(order models.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = StateComplete
	o.lastOrder = &order
	o.generation++
	gen := o.generation

	if o.closed {
		return
	}
	o.timer = time.AfterFunc(o.resetDelay, func() { o.reset(gen) })
}

// reset ne s'applique que si la session est vivante et qu'aucune autre
// commande n'a remplacé celle qui a armé le timer
func (o *Orchestrator) reset(gen uint64) {
	o.mu.Lock()
	if o.closed || o.generation != gen || o.state != StateComplete {
		o.mu.Unlock()
		return
	}
	o.state = StateIdle
	o.timer = nil
	onReset := o.onReset
	o.mu.Unlock()

	if onReset != nil {
		onReset()
	}
}

// Close annule un éventuel reset en attente ; l'orchestrateur devient inutilisable
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}
