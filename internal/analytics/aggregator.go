package analytics

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storefront_back_end/internal/models"
)

var tracer = otel.Tracer("storefront_back_end/internal/analytics")

// EventReader lit la ressource "analytics", triée par created_at croissant.
// Un eventType vide signifie tous les types.
type EventReader interface {
	ListEvents(ctx context.Context, eventType string) ([]models.AnalyticsEvent, error)
}

// Bucket est un compteur horaire, libellé "<date locale> <heure>:00"
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Summary struct {
	Counts      map[string]int    `json:"counts"`
	Labels      map[string]string `json:"labels"`
	TotalEvents int               `json:"total_events"`
}

// Aggregator calcule les agrégats côté client sur tout l'historique
type Aggregator struct {
	reader   EventReader
	location *time.Location
}

func NewAggregator(reader EventReader, location *time.Location) *Aggregator {
	if location == nil {
		location = time.Local
	}
	return &Aggregator{reader: reader, location: location}
}

func (a *Aggregator) load(ctx context.Context, eventType string) []models.AnalyticsEvent {
	ctx, span := tracer.Start(ctx, "analytics.ListEvents")
	defer span.End()
	span.SetAttributes(attribute.String("event_type", eventType))

	events, err := a.reader.ListEvents(ctx, eventType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list events")
		log.Printf("❌ Erreur lecture analytics: %v", err)
		return nil
	}
	span.SetAttributes(attribute.Int("events", len(events)))
	return events
}

// EventCounts retourne le nombre d'événements par type ; map vide si rien
func (a *Aggregator) EventCounts(ctx context.Context) map[string]int {
	counts := make(map[string]int)
	for _, event := range a.load(ctx, "") {
		counts[event.EventType]++
	}
	return counts
}

// Timeline regroupe tous les événements par heure locale
func (a *Aggregator) Timeline(ctx context.Context) []Bucket {
	return a.bucketize(a.load(ctx, ""))
}

// TypeTimeline regroupe par heure les événements d'un seul type
func (a *Aggregator) TypeTimeline(ctx context.Context, eventType string) []Bucket {
	return a.bucketize(a.load(ctx, eventType))
}

// RecentEvents retourne les événements bruts, les plus récents d'abord.
// limit <= 0 retourne tout.
func (a *Aggregator) RecentEvents(ctx context.Context, limit int) []models.AnalyticsEvent {
	events := a.load(ctx, "")
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	if events == nil {
		events = []models.AnalyticsEvent{}
	}
	return events
}

func (a *Aggregator) Summary(ctx context.Context) Summary {
	counts := a.EventCounts(ctx)
	summary := Summary{Counts: counts, Labels: make(map[string]string, len(counts))}
	for eventType, count := range counts {
		summary.Labels[eventType] = Label(eventType)
		summary.TotalEvents += count
	}
	return summary
}

// BucketLabel formate le créneau horaire comme toLocaleDateString() en-US
func BucketLabel(t time.Time, location *time.Location) string {
	local := t.In(location)
	return fmt.Sprintf("%s %d:00", local.Format("1/2/2006"), local.Hour())
}

func (a *Aggregator) bucketize(events []models.AnalyticsEvent) []Bucket {
	buckets := []Bucket{}
	index := make(map[string]int)
	for _, event := range events {
		label := BucketLabel(event.CreatedAt, a.location)
		if i, ok := index[label]; ok {
			buckets[i].Count++
			continue
		}
		index[label] = len(buckets)
		buckets = append(buckets, Bucket{Label: label, Count: 1})
	}
	return buckets
}

// Label transforme "page_view" en "Page View"
func Label(eventType string) string {
	words := strings.Split(eventType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
