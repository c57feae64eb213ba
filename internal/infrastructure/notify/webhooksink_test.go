package notify_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	infnotify "github.com/ogsentinel/fleetwatch/internal/infrastructure/notify"
)

func TestWebhookSinkPostsJSONPayload(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := infnotify.NewWebhookSink(srv.URL)
	sink.Notify(notify.NewDebrisHarvest(coordinates.New(2, 3, 4, coordinates.Planet), 500, nil))

	payload := <-received
	assert.Equal(t, "debris_harvest", payload["kind"])
	assert.Equal(t, float64(500), payload["debris"])
}

func TestWebhookSinkSwallowsDeliveryFailure(t *testing.T) {
	sink := infnotify.NewWebhookSink("http://127.0.0.1:0/unreachable")
	assert.NotPanics(t, func() {
		sink.Notify(notify.NewWakeUp())
	})
}
