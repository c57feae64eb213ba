package metrics

import "github.com/ogsentinel/fleetwatch/internal/domain/notify"

// Sink adapts the notification bus into metric updates, the same way
// LogSink and WebhookSink adapt it into log lines and HTTP POSTs.
type Sink struct {
	collector *Collector
}

// NewSink wraps collector as a notify.Sink.
func NewSink(collector *Collector) *Sink {
	return &Sink{collector: collector}
}

func (s *Sink) Notify(n notify.Notification) {
	switch n.Kind {
	case notify.WakeUp:
		s.collector.RecordWake("ok")
	case notify.Fatal:
		s.collector.RecordWake("error")
	case notify.FleetSaved:
		if n.Error != nil {
			s.collector.RecordFleetSaved("failed")
		} else {
			s.collector.RecordFleetSaved("saved")
		}
	}
}
