package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site360/site360-go/internal/conf"
	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore"
	"github.com/site360/site360-go/internal/datastore/entities"
	"github.com/site360/site360-go/internal/datastore/repository"
)

func testLifecycle(t *testing.T) (*Lifecycle, repository.AlertRepository) {
	t.Helper()
	manager, err := datastore.Open(&conf.DatabaseSettings{
		Driver: conf.DatabaseDriverSQLite,
		Path:   ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	alerts := repository.NewAlertRepository(manager.DB())
	return NewLifecycle(alerts), alerts
}

func createActiveAlert(t *testing.T, alerts repository.AlertRepository) *entities.Alert {
	t.Helper()
	alert, err := alerts.CreateAlert(context.Background(), &entities.AlertInsert{
		SiteID:      "site-1",
		Dimension:   control.DimensionSafety,
		Severity:    control.SeverityHigh,
		Title:       "Serious safety incident reported",
		Message:     "A high-severity safety incident was recorded",
		SourceTable: control.TableSafetyIncidents,
		SourceID:    "incident-3",
	})
	require.NoError(t, err)
	require.Equal(t, control.AlertStatusActive, alert.Status)
	return alert
}

func TestAcknowledge(t *testing.T) {
	lc, alerts := testLifecycle(t)
	alert := createActiveAlert(t, alerts)

	updated, err := lc.Acknowledge(context.Background(), alert.ID, "foreman@site-1")
	require.NoError(t, err)
	assert.Equal(t, control.AlertStatusAcknowledged, updated.Status)
	assert.Equal(t, "foreman@site-1", updated.AcknowledgedBy)
	require.NotNil(t, updated.AcknowledgedAt)

	// Acknowledging twice is not a valid move.
	_, err = lc.Acknowledge(context.Background(), alert.ID, "foreman@site-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestResolveFromActiveAndAcknowledged(t *testing.T) {
	lc, alerts := testLifecycle(t)

	// Directly from active.
	alert := createActiveAlert(t, alerts)
	updated, err := lc.Resolve(context.Background(), alert.ID, "manager@site-1", "Area cordoned off, incident report filed")
	require.NoError(t, err)
	assert.Equal(t, control.AlertStatusResolved, updated.Status)
	assert.Equal(t, "manager@site-1", updated.ResolvedBy)
	assert.Equal(t, "Area cordoned off, incident report filed", updated.ActionTaken)
	require.NotNil(t, updated.ResolvedAt)

	// Via acknowledged. A second alert is needed: the dedup key is free
	// again once the first is resolved.
	second, err := alerts.CreateAlert(context.Background(), &entities.AlertInsert{
		SiteID:      "site-1",
		Dimension:   control.DimensionSafety,
		Severity:    control.SeverityHigh,
		Title:       "Serious safety incident reported",
		Message:     "Another incident",
		SourceTable: control.TableSafetyIncidents,
		SourceID:    "incident-4",
	})
	require.NoError(t, err)
	_, err = lc.Acknowledge(context.Background(), second.ID, "foreman@site-1")
	require.NoError(t, err)
	updated, err = lc.Resolve(context.Background(), second.ID, "manager@site-1", "")
	require.NoError(t, err)
	assert.Equal(t, control.AlertStatusResolved, updated.Status)
	assert.Empty(t, updated.ActionTaken)
}

func TestDismiss(t *testing.T) {
	lc, alerts := testLifecycle(t)
	alert := createActiveAlert(t, alerts)

	updated, err := lc.Dismiss(context.Background(), alert.ID, "manager@site-1")
	require.NoError(t, err)
	assert.Equal(t, control.AlertStatusDismissed, updated.Status)
	assert.Equal(t, "manager@site-1", updated.ResolvedBy)
}

func TestTerminalAlertsNeverTransition(t *testing.T) {
	lc, alerts := testLifecycle(t)
	alert := createActiveAlert(t, alerts)

	_, err := lc.Resolve(context.Background(), alert.ID, "manager@site-1", "done")
	require.NoError(t, err)

	_, err = lc.Acknowledge(context.Background(), alert.ID, "foreman@site-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = lc.Resolve(context.Background(), alert.ID, "manager@site-1", "again")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = lc.Dismiss(context.Background(), alert.ID, "manager@site-1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// The failed transitions left the record untouched.
	current, err := alerts.GetAlert(context.Background(), alert.ID)
	require.NoError(t, err)
	assert.Equal(t, control.AlertStatusResolved, current.Status)
	assert.Equal(t, "done", current.ActionTaken)
	assert.Empty(t, current.AcknowledgedBy)
}

func TestTransitionUnknownAlert(t *testing.T) {
	lc, _ := testLifecycle(t)

	_, err := lc.Acknowledge(context.Background(), "no-such-id", "foreman@site-1")
	assert.ErrorIs(t, err, repository.ErrAlertNotFound)
}
