// Package wake defines the scheduler payload variants the decision loop
// pattern-matches on: a tagged union of {Wake, SendExpedition,
// CancelExpedition}.
package wake

import (
	"github.com/google/uuid"

	"github.com/ogsentinel/fleetwatch/internal/domain/expedition"
)

// RetrySentinelID is the fixed id carried by every retry wake; during
// retry, every non-sentinel wake is dropped.
var RetrySentinelID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Payload drives one decision-loop pass. ID distinguishes the periodic
// main-cadence wake, a defensive check-up (the defence subsystem's own
// id, stored alongside its scheduler handle) and the retry sentinel.
type Payload struct {
	ID uuid.UUID
}

// SendExpeditionPayload is an external command to register a new
// expedition intent outside of config seeding.
type SendExpeditionPayload struct {
	Intent *expedition.Intent
}

// CancelExpeditionPayload is an external command to cancel a running
// expedition intent.
type CancelExpeditionPayload struct {
	IntentID    string
	ReturnFleet bool
}
