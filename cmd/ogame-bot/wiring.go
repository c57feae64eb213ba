package main

import (
	"fmt"
	"log"

	"github.com/ogsentinel/fleetwatch/internal/application/defence"
	"github.com/ogsentinel/fleetwatch/internal/application/expeditionsvc"
	"github.com/ogsentinel/fleetwatch/internal/domain/coordinates"
	"github.com/ogsentinel/fleetwatch/internal/domain/engine"
	"github.com/ogsentinel/fleetwatch/internal/domain/expedition"
	"github.com/ogsentinel/fleetwatch/internal/domain/fleet"
	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
	"github.com/ogsentinel/fleetwatch/internal/infrastructure/config"
	"github.com/ogsentinel/fleetwatch/internal/infrastructure/metrics"
	infnotify "github.com/ogsentinel/fleetwatch/internal/infrastructure/notify"
)

// intentFromConfig converts one seeded expedition entry from configuration
// into a domain expedition.Intent, freshly idle (no fleet id, no pending
// cancel).
func intentFromConfig(c config.ExpeditionConfig) *expedition.Intent {
	ships := make(engine.Fleet, len(c.Ships))
	for kind, count := range c.Ships {
		ships[engine.ShipKind(kind)] = count
	}

	return &expedition.Intent{
		ID:             c.Name,
		Origin:         coordinates.New(c.OriginGalaxy, c.OriginSystem, c.OriginPosition, coordinates.BodyType(c.OriginType)),
		OriginType:     coordinates.BodyType(c.OriginType),
		Destination:    coordinates.New(c.DestGalaxy, c.DestSystem, c.DestPosition, coordinates.Planet),
		Ships:          ships,
		Speed:          c.Speed,
		HoldingSeconds: c.HoldingTime,
		Cargo: fleet.Resources{
			Metal:     c.Cargo.Metal,
			Crystal:   c.Cargo.Crystal,
			Deuterium: c.Cargo.Deuterium,
		},
		Repeat: expedition.Repeat{
			Forever: c.Repeat.Forever,
			Count:   c.Repeat.Count,
		},
	}
}

// intentsFromConfig converts every seeded expedition in cfg.
func intentsFromConfig(cfgs []config.ExpeditionConfig) []*expedition.Intent {
	intents := make([]*expedition.Intent, 0, len(cfgs))
	for _, c := range cfgs {
		intents = append(intents, intentFromConfig(c))
	}
	return intents
}

// sinkFromConfig builds the concrete notify.Sink a listener entry names.
func sinkFromConfig(l config.ListenerConfig, logger *log.Logger) (notify.Sink, error) {
	switch l.Type {
	case "log":
		return infnotify.NewLogSink(logger), nil
	case "webhook":
		return infnotify.NewWebhookSink(l.WebhookURL), nil
	default:
		return nil, fmt.Errorf("unknown listener type %q for %q", l.Type, l.Name)
	}
}

// sinksFromConfig builds every listener sink plus, when enabled, a metrics
// sink piggybacking on the same notification stream.
func sinksFromConfig(cfg *config.Config, logger *log.Logger, collector *metrics.Collector) ([]notify.Sink, error) {
	sinks := make([]notify.Sink, 0, len(cfg.Listeners)+1)
	for _, l := range cfg.Listeners {
		sink, err := sinkFromConfig(l, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Enabled && collector != nil {
		sinks = append(sinks, metrics.NewSink(collector))
	}
	return sinks, nil
}

// defenceOptions converts bot configuration into defence.Options.
func defenceOptions(cfg config.BotConfig) defence.Options {
	return defence.Options{
		MinLeadTime:            cfg.MinTimeBeforeAttackToAct,
		MaxLeadTime:            cfg.MaxTimeBeforeAttackToAct,
		TryRecallingSavedFleet: cfg.TryRecallingSavedFleet,
		MaxReturnFlightTime:    cfg.MaxReturnFlightTime,
	}
}

// expeditionOptions converts bot configuration into expeditionsvc.Options.
// harvest-speed is a 1-10 dial; the subsystem wants the equivalent 10-100
// percentage the send-fleet endpoint expects.
func expeditionOptions(cfg config.BotConfig) expeditionsvc.Options {
	return expeditionsvc.Options{
		HarvestExpeditionDebris: cfg.HarvestExpeditionDebris,
		HarvestSpeedPercentage:  cfg.HarvestSpeed * 10,
	}
}
