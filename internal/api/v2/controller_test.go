package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site360/site360-go/internal/conf"
	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/datastore"
	"github.com/site360/site360-go/internal/datastore/entities"
	"github.com/site360/site360-go/internal/datastore/repository"
	"github.com/site360/site360-go/internal/dispatch"
	"github.com/site360/site360-go/internal/logger"
	"github.com/site360/site360-go/internal/notification"
	"github.com/site360/site360-go/internal/observability"
)

type apiEnv struct {
	echo   *echo.Echo
	scores repository.ControlScoreRepository
	alerts repository.AlertRepository
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	manager, err := datastore.Open(&conf.DatabaseSettings{
		Driver: conf.DatabaseDriverSQLite,
		Path:   ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	env := &apiEnv{
		echo:   echo.New(),
		scores: repository.NewControlScoreRepository(manager.DB()),
		alerts: repository.NewAlertRepository(manager.DB()),
	}

	notifier := notification.NewService(&notification.ServiceConfig{Capacity: 10})
	New(env.echo, Deps{
		Scores:              env.scores,
		Alerts:              env.alerts,
		Lifecycle:           dispatch.NewLifecycle(env.alerts),
		Notifier:            notifier,
		Metrics:             metrics,
		Rules:               dispatch.DefaultRules(),
		LatestScoreCacheTTL: time.Minute,
		Log:                 log,
	})
	return env
}

func (e *apiEnv) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func seedScore(t *testing.T, env *apiEnv, dim control.Dimension, date string, score float64) {
	t.Helper()
	require.NoError(t, env.scores.UpsertScore(context.Background(), &entities.ControlScore{
		SiteID:       "site-1",
		Dimension:    dim,
		Date:         date,
		Score:        score,
		Factors:      entities.FactorMap{},
		Trend:        control.TrendFlat,
		CalculatedAt: time.Now(),
		CalculatedBy: control.SystemActor,
	}))
}

func seedAlert(t *testing.T, env *apiEnv) *entities.Alert {
	t.Helper()
	alert, err := env.alerts.CreateAlert(context.Background(), &entities.AlertInsert{
		SiteID:      "site-1",
		Dimension:   control.DimensionSafety,
		Severity:    control.SeverityHigh,
		Title:       "Serious safety incident reported",
		Message:     "A high-severity safety incident was recorded",
		SourceTable: control.TableSafetyIncidents,
		SourceID:    "incident-1",
	})
	require.NoError(t, err)
	return alert
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.request(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetSchema(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.request(t, http.MethodGet, "/api/v2/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var schema control.Schema
	decodeJSON(t, rec, &schema)
	assert.Len(t, schema.Dimensions, len(control.Dimensions()))
	assert.NotEmpty(t, schema.Operators)
}

func TestListRules(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.request(t, http.MethodGet, "/api/v2/rules", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	decodeJSON(t, rec, &body)
	assert.Equal(t, len(dispatch.DefaultRules()), body.Count)
}

func TestGetLatestScores(t *testing.T) {
	env := newAPIEnv(t)
	seedScore(t, env, control.DimensionMaterial, "2026-03-10", 85)
	seedScore(t, env, control.DimensionSafety, "2026-03-10", 60)

	rec := env.request(t, http.MethodGet, "/api/v2/sites/site-1/scores/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		SiteID string                  `json:"site_id"`
		Scores []entities.ControlScore `json:"scores"`
		Count  int                     `json:"count"`
	}
	decodeJSON(t, rec, &body)
	assert.Equal(t, "site-1", body.SiteID)
	assert.Equal(t, 2, body.Count)

	// A later write is invisible until the cache expires.
	seedScore(t, env, control.DimensionQuality, "2026-03-10", 70)
	rec = env.request(t, http.MethodGet, "/api/v2/sites/site-1/scores/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &body)
	assert.Equal(t, 2, body.Count)
}

func TestGetScoreHistory(t *testing.T) {
	env := newAPIEnv(t)
	seedScore(t, env, control.DimensionMaterial, "2026-03-09", 90)
	seedScore(t, env, control.DimensionMaterial, "2026-03-10", 85)
	seedScore(t, env, control.DimensionSafety, "2026-03-10", 60)

	rec := env.request(t, http.MethodGet, "/api/v2/sites/site-1/scores/history?dimension=material", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Scores []entities.ControlScore `json:"scores"`
	}
	decodeJSON(t, rec, &body)
	require.Len(t, body.Scores, 2)
	assert.Equal(t, "2026-03-10", body.Scores[0].Date)

	rec = env.request(t, http.MethodGet, "/api/v2/sites/site-1/scores/history?dimension=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAlertsFilters(t *testing.T) {
	env := newAPIEnv(t)
	seedAlert(t, env)

	rec := env.request(t, http.MethodGet, "/api/v2/alerts?site_id=site-1&status=active", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Alerts []entities.Alert `json:"alerts"`
		Total  int64            `json:"total"`
	}
	decodeJSON(t, rec, &body)
	assert.EqualValues(t, 1, body.Total)
	require.Len(t, body.Alerts, 1)
	assert.Equal(t, control.SeverityHigh, body.Alerts[0].Severity)

	rec = env.request(t, http.MethodGet, "/api/v2/alerts?status=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.request(t, http.MethodGet, "/api/v2/alerts?severity=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAlert(t *testing.T) {
	env := newAPIEnv(t)
	alert := seedAlert(t, env)

	rec := env.request(t, http.MethodGet, "/api/v2/alerts/"+alert.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v2/alerts/no-such-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAlertLifecycleEndpoints(t *testing.T) {
	env := newAPIEnv(t)
	alert := seedAlert(t, env)

	// Missing actor is a 400.
	rec := env.request(t, http.MethodPost, "/api/v2/alerts/"+alert.ID+"/acknowledge", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/v2/alerts/"+alert.ID+"/acknowledge", `{"actor":"foreman@site-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated entities.Alert
	decodeJSON(t, rec, &updated)
	assert.Equal(t, control.AlertStatusAcknowledged, updated.Status)

	rec = env.request(t, http.MethodPost, "/api/v2/alerts/"+alert.ID+"/resolve",
		`{"actor":"manager@site-1","action_taken":"Incident report filed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &updated)
	assert.Equal(t, control.AlertStatusResolved, updated.Status)
	assert.Equal(t, "Incident report filed", updated.ActionTaken)

	// Terminal status: further transitions conflict.
	rec = env.request(t, http.MethodPost, "/api/v2/alerts/"+alert.ID+"/dismiss", `{"actor":"manager@site-1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Unknown alert id is a 404.
	rec = env.request(t, http.MethodPost, "/api/v2/alerts/no-such-id/acknowledge", `{"actor":"foreman@site-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListNotifications(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v2/notifications", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	decodeJSON(t, rec, &body)
	assert.Zero(t, body.Count)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newAPIEnv(t)
	rec := env.request(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
