package handlers

import (
	"net/http"

	"github.com/awsford/deeplens-maze-solver/common/httputil"
	"github.com/awsford/deeplens-maze-solver/common/messaging"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/feed"
)

// SubscriptionState reports whether the feed is subscribed to the topic.
type SubscriptionState interface {
	Active() bool
	Subject() string
}

// HealthHandler reports service, broker and subscription health.
type HealthHandler struct {
	client     messaging.Client
	subscriber SubscriptionState
	store      *feed.Store
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status     string                 `json:"status"`
	Service    string                 `json:"service"`
	NATS       messaging.HealthStatus `json:"nats"`
	Subscribed bool                   `json:"subscribed"`
	Subject    string                 `json:"subject,omitempty"`
	Feed       HealthFeed             `json:"feed"`
}

// HealthFeed summarizes the in-memory feed.
type HealthFeed struct {
	Records   int `json:"records"`
	Listeners int `json:"listeners"`
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(client messaging.Client, subscriber SubscriptionState, store *feed.Store) *HealthHandler {
	return &HealthHandler{client: client, subscriber: subscriber, store: store}
}

// Check handles GET /api/health. It answers 503 when the broker connection
// or the subscription is down.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Service: "mazefeed",
		NATS:    messaging.CheckClientHealth(r.Context(), h.client),
		Feed: HealthFeed{
			Records:   h.store.Len(),
			Listeners: h.store.Listeners(),
		},
	}
	if h.subscriber != nil {
		resp.Subscribed = h.subscriber.Active()
		resp.Subject = h.subscriber.Subject()
	}

	status := http.StatusOK
	if !resp.NATS.Connected || !resp.Subscribed {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	httputil.WriteJSON(w, status, resp)
}
