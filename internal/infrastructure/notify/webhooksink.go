package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
)

// WebhookSink POSTs each notification as a JSON payload to a configured URL,
// standing in for the reference bot's Telegram/Discord listeners without
// depending on a chat-specific SDK: no such client exists anywhere in the
// retrieved pack to ground a richer implementation on.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhookSink creates a WebhookSink posting to url.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Kind                string `json:"kind"`
	Planet              string `json:"planet,omitempty"`
	Arrival             int64  `json:"arrival,omitempty"`
	PreviousArrival     *int64 `json:"previousArrival,omitempty"`
	Origin              string `json:"origin,omitempty"`
	Destination         string `json:"destination,omitempty"`
	Error               string `json:"error,omitempty"`
	Expedition          string `json:"expedition,omitempty"`
	Cancellation        bool   `json:"cancellation,omitempty"`
	FleetReturned       bool   `json:"fleetReturned,omitempty"`
	DebrisDestination   string `json:"debrisDestination,omitempty"`
	Debris              int    `json:"debris,omitempty"`
}

// Notify posts n to the configured URL. A delivery failure is swallowed:
// the bus already recovers a panicking sink, and a webhook outage must
// never affect the decision loop.
func (s *WebhookSink) Notify(n notify.Notification) {
	payload := webhookPayload{
		Kind:              string(n.Kind),
		Planet:            n.Planet.String(),
		Arrival:           n.Arrival,
		PreviousArrival:   n.PreviousArrival,
		Origin:            n.Origin.String(),
		Destination:       n.Destination.String(),
		Expedition:        n.Expedition,
		Cancellation:      n.Cancellation,
		FleetReturned:     n.FleetReturned,
		DebrisDestination: n.DebrisDestination.String(),
		Debris:            n.Debris,
	}
	if n.Error != nil {
		payload.Error = n.Error.Error()
	}
	if n.Err != nil {
		payload.Error = errorChain(n.Err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return
	}
	resp.Body.Close()
}
