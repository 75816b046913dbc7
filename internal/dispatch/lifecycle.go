package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore/entities"
	"github.com/site360/site360-go/internal/datastore/repository"
)

// ErrInvalidTransition is returned when a lifecycle operation is applied to
// an alert whose current status does not allow it. The alert is unchanged.
var ErrInvalidTransition = errors.New("invalid alert status transition")

// Lifecycle applies user-initiated alert status transitions. The allowed
// moves are: active → acknowledged, and active or acknowledged → resolved
// or dismissed. Terminal alerts never change again.
type Lifecycle struct {
	alerts repository.AlertRepository
}

// NewLifecycle creates a Lifecycle over the given alert store.
func NewLifecycle(alerts repository.AlertRepository) *Lifecycle {
	return &Lifecycle{alerts: alerts}
}

// Acknowledge marks an active alert as seen by actor. Acknowledging an
// alert in any other status fails with ErrInvalidTransition.
func (l *Lifecycle) Acknowledge(ctx context.Context, id, actor string) (*entities.Alert, error) {
	now := time.Now()
	status := control.AlertStatusAcknowledged
	patch := entities.AlertPatch{
		Status:         &status,
		AcknowledgedAt: &now,
		AcknowledgedBy: &actor,
	}
	return l.transition(ctx, id, []control.AlertStatus{control.AlertStatusActive}, patch)
}

// Resolve closes an active or acknowledged alert, recording who resolved it
// and what was done.
func (l *Lifecycle) Resolve(ctx context.Context, id, actor, actionTaken string) (*entities.Alert, error) {
	now := time.Now()
	status := control.AlertStatusResolved
	patch := entities.AlertPatch{
		Status:     &status,
		ResolvedAt: &now,
		ResolvedBy: &actor,
	}
	if actionTaken != "" {
		patch.ActionTaken = &actionTaken
	}
	return l.transition(ctx, id, []control.AlertStatus{control.AlertStatusActive, control.AlertStatusAcknowledged}, patch)
}

// Dismiss closes an active or acknowledged alert as not actionable. The
// resolver audit fields record who dismissed it.
func (l *Lifecycle) Dismiss(ctx context.Context, id, actor string) (*entities.Alert, error) {
	now := time.Now()
	status := control.AlertStatusDismissed
	patch := entities.AlertPatch{
		Status:     &status,
		ResolvedAt: &now,
		ResolvedBy: &actor,
	}
	return l.transition(ctx, id, []control.AlertStatus{control.AlertStatusActive, control.AlertStatusAcknowledged}, patch)
}

func (l *Lifecycle) transition(ctx context.Context, id string, expected []control.AlertStatus, patch entities.AlertPatch) (*entities.Alert, error) {
	err := l.alerts.TransitionAlert(ctx, id, expected, patch)
	if errors.Is(err, repository.ErrAlertConflict) {
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition alert %s: %w", id, err)
	}
	return l.alerts.GetAlert(ctx, id)
}
