package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"storefront_back_end/internal/models"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// timeLayout est de largeur fixe pour que l'ordre lexical suive l'ordre chronologique
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var ErrNotFound = errors.New("enregistrement introuvable")

// SQLStore implémente les ressources products, orders, order_items et analytics
// sur database/sql (Postgres/Supabase ou SQLite)
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// OpenSQL ouvre la base et vérifie la connexion
func OpenSQL(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	driver := dialect
	switch dialect {
	case DialectSQLite:
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DialectPostgres:
	default:
		return nil, fmt.Errorf("dialecte SQL inconnu: %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return NewSQLStore(db, dialect), nil
}

// NewSQLStore enveloppe une connexion existante (sqlmock dans les tests)
func NewSQLStore(db *sql.DB, dialect string) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// rebind remplace les "?" par "$n" pour Postgres
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migrate crée les tables si elles n'existent pas
func (s *SQLStore) Migrate(ctx context.Context) error {
	statements := sqliteSchema
	if s.dialect == DialectPostgres {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
	}
	return nil
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL CHECK (price >= 0),
		image_url TEXT NOT NULL DEFAULT '',
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_address TEXT NOT NULL,
		total_amount REAL NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders(id),
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analytics (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		event_data TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS analytics_type_created ON analytics (event_type, created_at)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(10,2) NOT NULL CHECK (price >= 0),
		image_url TEXT NOT NULL DEFAULT '',
		stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_address TEXT NOT NULL,
		total_amount NUMERIC(10,2) NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders(id),
		product_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price NUMERIC(10,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analytics (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		event_data JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS analytics_type_created ON analytics (event_type, created_at)`,
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("date invalide %q: %w", raw, err)
	}
	return t, nil
}

// --- products ---

const productColumns = `id, name, description, price, image_url, stock, created_at`

// ListProducts retourne le catalogue, les plus récents d'abord
func (s *SQLStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *SQLStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+productColumns+` FROM products WHERE id = ?`), id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrNotFound
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (models.Product, error) {
	var (
		p         models.Product
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL, &p.Stock, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("scan product: %w", err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return p, err
	}
	p.CreatedAt = t
	return p, nil
}

// InsertProduct sert au chargement du catalogue ; un id existant est mis à
// jour, created_at d'origine conservé
func (s *SQLStore) InsertProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, description = excluded.description,
		price = excluded.price, image_url = excluded.image_url, stock = excluded.stock`),
		p.ID, p.Name, p.Description, p.Price, p.ImageURL, p.Stock, formatTime(p.CreatedAt))
	if err != nil {
		return p, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// --- orders ---

// CreateOrder insère la commande et retourne la ligne avec son id
func (s *SQLStore) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	order.ID = uuid.NewString()
	order.CreatedAt = s.now().UTC()
	if order.Status == "" {
		order.Status = models.OrderStatusCompleted
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO orders (id, customer_name, customer_email, customer_address, total_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		order.ID, order.CustomerName, order.CustomerEmail, order.CustomerAddress,
		order.TotalAmount, order.Status, formatTime(order.CreatedAt))
	if err != nil {
		return models.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return order, nil
}

// CreateOrderItems insère toutes les lignes en un seul INSERT
func (s *SQLStore) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*4)
	for _, item := range items {
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		args = append(args, item.OrderID, item.ProductID, item.Quantity, item.Price)
	}
	query := `INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ` + strings.Join(placeholders, ", ")
	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// ListOrderItems retourne les articles d'une commande
func (s *SQLStore) ListOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT order_id, product_id, quantity, price FROM order_items WHERE order_id = ?`), orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.OrderID, &item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CountOrders sert surtout à vérifier les échecs partiels
func (s *SQLStore) CountOrders(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// --- analytics ---

func (s *SQLStore) InsertEvent(ctx context.Context, event models.AnalyticsEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	data := event.EventData
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode event_data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO analytics (id, event_type, event_data, created_at) VALUES (?, ?, ?, ?)`),
		event.ID, event.EventType, string(payload), formatTime(event.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents retourne les événements triés par created_at croissant
func (s *SQLStore) ListEvents(ctx context.Context, eventType string) ([]models.AnalyticsEvent, error) {
	query := `SELECT id, event_type, event_data, created_at FROM analytics`
	var args []any
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []models.AnalyticsEvent{}
	for rows.Next() {
		var (
			e         models.AnalyticsEvent
			payload   []byte
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.EventType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.EventData = map[string]any{}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.EventData); err != nil {
				return nil, fmt.Errorf("decode event_data: %w", err)
			}
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
