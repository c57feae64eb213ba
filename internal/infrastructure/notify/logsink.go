// Package notify provides concrete notify.Sink implementations: a stdlib
// log sink and a webhook sink, standing in for the reference bot's
// Telegram/Discord listeners without depending on a chat-specific SDK.
package notify

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/ogsentinel/fleetwatch/internal/domain/notify"
)

// LogSink writes every notification as one structured line via the stdlib
// logger, the teacher's ambient logging idiom.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink writing through logger.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(n notify.Notification) {
	s.logger.Printf("[%s] %s", n.Kind, describe(n))
}

func describe(n notify.Notification) string {
	switch n.Kind {
	case notify.Started, notify.Stopped, notify.WakeUp, notify.PlanetsSafe:
		return ""
	case notify.HostileEvent:
		if n.PreviousArrival != nil {
			return "planet=" + n.Planet.String() + " arrival=" + strconv.FormatInt(n.Arrival, 10) + " previous=" + strconv.FormatInt(*n.PreviousArrival, 10)
		}
		return "planet=" + n.Planet.String() + " arrival=" + strconv.FormatInt(n.Arrival, 10)
	case notify.HostileRecalled:
		return "planet=" + n.Planet.String() + " arrival=" + strconv.FormatInt(n.Arrival, 10)
	case notify.FleetSaved:
		msg := "origin=" + n.Origin.String() + " arrival=" + strconv.FormatInt(n.Arrival, 10)
		if n.Error != nil {
			msg += " error=" + n.Error.Error()
		} else {
			msg += " destination=" + n.Destination.String()
		}
		return msg
	case notify.FleetRecalled:
		msg := "origin=" + n.Origin.String() + " destination=" + n.Destination.String() + " arrival=" + strconv.FormatInt(n.Arrival, 10)
		if n.Error != nil {
			msg += " error=" + n.Error.Error()
		}
		return msg
	case notify.SavedFleetRecalled:
		msg := "origin=" + n.Origin.String()
		if n.Error != nil {
			msg += " error=" + n.Error.Error()
		}
		return msg
	case notify.ExpeditionFinished:
		msg := "expedition=" + n.Expedition
		if n.Error != nil {
			msg += " error=" + n.Error.Error()
		}
		return msg
	case notify.ExpeditionCancelled:
		return "expedition=" + n.Expedition + " fleet_returned=" + boolStr(n.FleetReturned)
	case notify.DebrisHarvest:
		msg := "destination=" + n.DebrisDestination.String() + " debris=" + strconv.Itoa(n.Debris)
		if n.Error != nil {
			msg += " error=" + n.Error.Error()
		}
		return msg
	case notify.Fatal:
		return "error=" + errorChain(n.Err)
	default:
		return ""
	}
}

// errorChain renders the full unwrap chain, matching the reference bot's
// exception listener forwarding a full traceback rather than a flat message.
func errorChain(err error) string {
	var parts []string
	for err != nil {
		parts = append(parts, err.Error())
		err = errors.Unwrap(err)
	}
	return strings.Join(parts, " <- ")
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
