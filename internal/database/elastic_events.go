package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"storefront_back_end/internal/models"
)

// eventPageSize est la taille d'une page search_after
const eventPageSize = 1000

// ElasticEvents stocke la ressource analytics dans un index Elasticsearch
type ElasticEvents struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
}

func NewElasticEvents(client *elasticsearch.Client, index string) *ElasticEvents {
	if index == "" {
		index = "analytics"
	}
	return &ElasticEvents{client: client, index: index, pageSize: eventPageSize}
}

// event_id sert de départage au tri, _id n'étant pas triable par défaut
type eventDocument struct {
	EventID   string         `json:"event_id,omitempty"`
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	CreatedAt time.Time      `json:"created_at"`
}

// InsertEvent indexe un événement
func (e *ElasticEvents) InsertEvent(ctx context.Context, event models.AnalyticsEvent) error {
	if e.client == nil {
		return errors.New("client Elasticsearch non initialisé")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	data := event.EventData
	if data == nil {
		data = map[string]any{}
	}

	body, err := json.Marshal(eventDocument{EventID: event.ID, EventType: event.EventType, EventData: data, CreatedAt: event.CreatedAt.UTC()})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: event.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("erreur envoi Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("Elastic a renvoyé une erreur pour %s: %s", event.EventType, res.Status())
	}
	return nil
}

type searchHit struct {
	ID     string        `json:"_id"`
	Source eventDocument `json:"_source"`
	Sort   []any         `json:"sort"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// ListEvents retourne tous les événements triés par created_at croissant,
// page par page via search_after
func (e *ElasticEvents) ListEvents(ctx context.Context, eventType string) ([]models.AnalyticsEvent, error) {
	if e.client == nil {
		return nil, errors.New("client Elasticsearch non initialisé")
	}

	events := make([]models.AnalyticsEvent, 0)
	var after []any
	for {
		hits, err := e.searchPage(ctx, eventType, after)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			data := hit.Source.EventData
			if data == nil {
				data = map[string]any{}
			}
			events = append(events, models.AnalyticsEvent{
				ID:        hit.ID,
				EventType: hit.Source.EventType,
				EventData: data,
				CreatedAt: hit.Source.CreatedAt,
			})
		}
		if len(hits) < e.pageSize {
			return events, nil
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, errors.New("réponse Elastic sans valeurs de tri")
		}
	}
}

func (e *ElasticEvents) searchPage(ctx context.Context, eventType string, after []any) ([]searchHit, error) {
	q := map[string]any{
		"size": e.pageSize,
		"sort": []any{
			map[string]any{"created_at": map[string]any{"order": "asc"}},
			map[string]any{"event_id": map[string]any{"order": "asc", "unmapped_type": "keyword"}},
		},
	}
	if len(after) > 0 {
		q["search_after"] = after
	}
	if eventType != "" {
		q["query"] = map[string]any{
			"term": map[string]any{"event_type": eventType},
		}
	} else {
		q["query"] = map[string]any{"match_all": map[string]any{}}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	ignoreUnavailable := true
	req := esapi.SearchRequest{
		Index:             []string{e.index},
		Body:              &buf,
		IgnoreUnavailable: &ignoreUnavailable,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Printf("❌ Elasticsearch erreur: %s", res.Status())
		return nil, fmt.Errorf("recherche analytics: %s", res.Status())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}
	return r.Hits.Hits, nil
}

// EnsureIndex crée l'index avec event_type en keyword pour le filtre term
func (e *ElasticEvents) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{e.index}}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("vérification index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{"mappings":{"properties":{"event_id":{"type":"keyword"},"event_type":{"type":"keyword"},"event_data":{"type":"object","enabled":false},"created_at":{"type":"date"}}}}`
	res, err = esapi.IndicesCreateRequest{Index: e.index, Body: bytes.NewReader([]byte(mapping))}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("création index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("création index %s: %s", e.index, res.Status())
	}
	log.Printf("✅ Index Elasticsearch '%s' créé", e.index)
	return nil
}
