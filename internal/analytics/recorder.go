// Package analytics enregistre les événements d'interaction et calcule les
// agrégats du tableau de bord à partir de l'historique brut.
package analytics

import (
	"context"
	"log"
	"sync"
	"time"

	"storefront_back_end/internal/models"
)

const DefaultEventTimeout = 5 * time.Second

// EventWriter est la ressource "analytics" du store distant (insertion)
type EventWriter interface {
	InsertEvent(ctx context.Context, event models.AnalyticsEvent) error
}

// Recorder envoie les événements en mode "fire-and-forget" : une erreur est
// loggée puis ignorée, jamais remontée à l'appelant, jamais rejouée.
type Recorder struct {
	writer  EventWriter
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRecorder(writer EventWriter, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	return &Recorder{writer: writer, timeout: timeout}
}

// Track soumet un événement sans attendre le résultat
func (r *Recorder) Track(eventType string, data map[string]any) {
	if r == nil {
		return
	}
	if r.writer == nil {
		log.Printf("⚠️ Analytics non configuré, événement ignoré: %s", eventType)
		return
	}
	if data == nil {
		data = map[string]any{}
	}

	event := models.AnalyticsEvent{EventType: eventType, EventData: data}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.writer.InsertEvent(ctx, event); err != nil {
			log.Printf("❌ Échec enregistrement événement %s: %v", eventType, err)
		}
	}()
}

// Wait attend la fin des envois en cours (arrêt du serveur, tests)
func (r *Recorder) Wait() {
	if r == nil {
		return
	}
	r.wg.Wait()
}
