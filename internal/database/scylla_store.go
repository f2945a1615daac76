package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"

	"storefront_back_end/internal/models"
)

// Schéma CQL ; les événements sont partitionnés par type et triés par date
var scyllaSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id text PRIMARY KEY,
		name text,
		description text,
		price double,
		image_url text,
		stock int,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id uuid PRIMARY KEY,
		customer_name text,
		customer_email text,
		customer_address text,
		total_amount double,
		status text,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id uuid,
		product_id text,
		quantity int,
		price double,
		PRIMARY KEY ((order_id), product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS analytics (
		event_type text,
		created_at timestamp,
		id timeuuid,
		event_data text,
		PRIMARY KEY ((event_type), created_at, id)
	) WITH CLUSTERING ORDER BY (created_at ASC, id ASC)`,
}

const (
	cqlSelectProducts   = `SELECT id, name, description, price, image_url, stock, created_at FROM products`
	cqlSelectProduct    = `SELECT id, name, description, price, image_url, stock, created_at FROM products WHERE id = ?`
	cqlInsertProduct    = `INSERT INTO products (id, name, description, price, image_url, stock, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	cqlInsertOrder      = `INSERT INTO orders (id, customer_name, customer_email, customer_address, total_amount, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	cqlInsertOrderItem  = `INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)`
	cqlInsertEvent      = `INSERT INTO analytics (event_type, created_at, id, event_data) VALUES (?, ?, ?, ?)`
	cqlSelectEvents     = `SELECT id, event_type, event_data, created_at FROM analytics`
	cqlSelectEventsType = `SELECT id, event_type, event_data, created_at FROM analytics WHERE event_type = ?`
)

// ScyllaStore implémente les quatre ressources sur ScyllaDB
type ScyllaStore struct {
	session *gocql.Session
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session}
}

func (s *ScyllaStore) Close() error {
	if s != nil && s.session != nil {
		s.session.Close()
	}
	return nil
}

// Migrate crée les tables manquantes dans le keyspace courant
func (s *ScyllaStore) Migrate(ctx context.Context) error {
	for _, stmt := range scyllaSchema {
		if err := s.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("migration scylla: %w", err)
		}
	}
	return nil
}

// ListProducts : CQL ne trie pas une table entière, le tri se fait ici
func (s *ScyllaStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	iter := s.session.Query(cqlSelectProducts).WithContext(ctx).Iter()

	products := []models.Product{}
	var p models.Product
	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Stock, &p.CreatedAt) {
		products = append(products, p)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
	return products, nil
}

func (s *ScyllaStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var p models.Product
	err := s.session.Query(cqlSelectProduct, id).WithContext(ctx).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Stock, &p.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *ScyllaStore) InsertProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == "" {
		p.ID = gocql.TimeUUID().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	err := s.session.Query(cqlInsertProduct, p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Stock, p.CreatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		return p, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *ScyllaStore) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	id := gocql.TimeUUID()
	order.ID = id.String()
	order.CreatedAt = time.Now().UTC()
	if order.Status == "" {
		order.Status = models.OrderStatusCompleted
	}

	err := s.session.Query(cqlInsertOrder, id, order.CustomerName, order.CustomerEmail,
		order.CustomerAddress, order.TotalAmount, order.Status, order.CreatedAt).WithContext(ctx).Exec()
	if err != nil {
		return models.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

// CreateOrderItems écrit les articles dans un batch logged
func (s *ScyllaStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	for _, item := range items {
		orderID, err := gocql.ParseUUID(item.OrderID)
		if err != nil {
			return fmt.Errorf("order_id invalide %q: %w", item.OrderID, err)
		}
		batch.Query(cqlInsertOrderItem, orderID, item.ProductID, item.Quantity, item.Price)
	}
	if err := s.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func (s *ScyllaStore) InsertEvent(ctx context.Context, event models.AnalyticsEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	data := event.EventData
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode event_data: %w", err)
	}
	id := gocql.UUIDFromTime(event.CreatedAt)
	if err := s.session.Query(cqlInsertEvent, event.EventType, event.CreatedAt, id, string(payload)).
		WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents lit une partition si le type est donné, toute la table sinon
func (s *ScyllaStore) ListEvents(ctx context.Context, eventType string) ([]models.AnalyticsEvent, error) {
	query := s.session.Query(cqlSelectEvents)
	if eventType != "" {
		query = s.session.Query(cqlSelectEventsType, eventType)
	}
	iter := query.WithContext(ctx).Iter()

	events := []models.AnalyticsEvent{}
	var (
		id        gocql.UUID
		eType     string
		payload   string
		createdAt time.Time
	)
	for iter.Scan(&id, &eType, &payload, &createdAt) {
		event := models.AnalyticsEvent{ID: id.String(), EventType: eType, CreatedAt: createdAt, EventData: map[string]any{}}
		if payload != "" {
			if err := json.Unmarshal([]byte(payload), &event.EventData); err != nil {
				_ = iter.Close()
				return nil, fmt.Errorf("decode event_data: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}
