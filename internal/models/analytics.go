package models

import "time"

// Types d'événements connus (la liste reste ouverte)
const (
	EventPageView          = "page_view"
	EventAddToCart         = "add_to_cart"
	EventCheckoutInitiated = "checkout_initiated"
	EventOrderCompleted    = "order_completed"
	EventBlogCTAClick      = "blog_cta_click"
)

type AnalyticsEvent struct {
	ID        string         `json:"id,omitempty"`
	EventType string         `json:"event_type"`
	EventData map[string]any `json:"event_data"`
	CreatedAt time.Time      `json:"created_at"`
}
