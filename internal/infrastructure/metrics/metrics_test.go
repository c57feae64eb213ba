package metrics_test

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogsentinel/fleetwatch/internal/infrastructure/metrics"
)

func gatherByName(t *testing.T, c *metrics.Collector, name string) *dto.MetricFamily {
	t.Helper()
	families, err := c.Registry.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %q not found", name)
	return nil
}

func TestCollectorRecordsWakesByOutcome(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordWake("ok")
	c.RecordWake("ok")
	c.RecordWake("error")

	family := gatherByName(t, c, "ogame_bot_wakes_total")
	byLabel := map[string]float64{}
	for _, m := range family.GetMetric() {
		byLabel[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	assert.Equal(t, float64(2), byLabel["ok"])
	assert.Equal(t, float64(1), byLabel["error"])
}

func TestCollectorGaugesReflectLastSetValue(t *testing.T) {
	c := metrics.NewCollector()
	c.SetSchedulerQueueLength(7)
	c.SetExpeditionsActive(2)
	c.SetErrorCount(1)

	queue := gatherByName(t, c, "ogame_bot_scheduler_queue_length")
	assert.Equal(t, float64(7), queue.GetMetric()[0].GetGauge().GetValue())

	active := gatherByName(t, c, "ogame_bot_expeditions_active")
	assert.Equal(t, float64(2), active.GetMetric()[0].GetGauge().GetValue())

	errs := gatherByName(t, c, "ogame_bot_consecutive_error_count")
	assert.Equal(t, float64(1), errs.GetMetric()[0].GetGauge().GetValue())
}
