// Package dispatch turns scores and observations into alert mutations and
// guards the alert lifecycle.
package dispatch

import (
	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
)

// MutationKind classifies what the evaluator wants done to the alert store.
type MutationKind string

const (
	// MutationCreate opens a new alert for a condition with no open alert.
	MutationCreate MutationKind = "create"
	// MutationEscalate raises an existing open alert to a higher severity.
	MutationEscalate MutationKind = "escalate"
	// MutationAutoResolve closes an open alert whose condition cleared.
	MutationAutoResolve MutationKind = "auto_resolve"
)

// Mutation is one intended change to the alert store. The evaluator emits
// mutations without touching the store; the caller applies them, which keeps
// evaluation deterministic and testable.
type Mutation struct {
	Kind MutationKind
	// Rule names the threshold rule behind the mutation, for logging.
	// Empty for auto-resolves.
	Rule string

	// Insert is set for MutationCreate.
	Insert *entities.AlertInsert

	// AlertID, Expected and Patch are set for escalates and auto-resolves.
	// Expected carries the statuses the alert must still be in when the
	// patch lands; a concurrent transition voids the mutation.
	AlertID  string
	Expected []control.AlertStatus
	Patch    entities.AlertPatch
}
