package metrics_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/infrastructure/metrics"
)

var coordZero = coordinates.New(1, 1, 1, coordinates.Planet)

func TestSinkRecordsWakeUpAsOkOutcome(t *testing.T) {
	c := metrics.NewCollector()
	sink := metrics.NewSink(c)

	sink.Notify(notify.NewWakeUp())

	family := gatherByName(t, c, "ogame_bot_wakes_total")
	assert.Equal(t, "ok", family.GetMetric()[0].GetLabel()[0].GetValue())
}

func TestSinkRecordsFleetSaveFailureOutcome(t *testing.T) {
	c := metrics.NewCollector()
	sink := metrics.NewSink(c)

	sink.Notify(notify.NewFleetSaved(coordZero, 0, nil, errors.New("boom")))

	family := gatherByName(t, c, "ogame_bot_fleets_saved_total")
	assert.Equal(t, "failed", family.GetMetric()[0].GetLabel()[0].GetValue())
}
