//go:build integration

package notification_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site360/site360-go/internal/control"
	"github.com/site360/site360-go/internal/notification"
	"github.com/site360/site360-go/internal/testutil/containers"
)

func setupNtfy(t *testing.T, enableAuth bool) *containers.NtfyContainer {
	t.Helper()
	ctx := context.Background()
	cfg := containers.DefaultNtfyConfig()
	cfg.EnableAuth = enableAuth
	c, err := containers.NewNtfyContainer(ctx, &cfg)
	require.NoError(t, err, "failed to start ntfy container")
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })
	return c
}

func uniqueTopic(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func TestShoutrrrProviderDelivery(t *testing.T) {
	container := setupNtfy(t, false)
	ctx := context.Background()
	host := container.GetHost(ctx)

	t.Run("delivers_alert_text", func(t *testing.T) {
		topic := uniqueTopic("alert")
		provider := notification.NewShoutrrrProvider(
			"push", true, []string{fmt.Sprintf("ntfy://%s/%s?scheme=http", host, topic)}, nil, 30*time.Second,
		)
		require.NoError(t, provider.ValidateConfig())

		n := notification.NewNotification(
			notification.TypeAlert,
			notification.PriorityCritical,
			"Serious safety incident reported",
			"A high-severity safety incident was recorded at site-1",
		)
		require.NoError(t, provider.Send(ctx, n))

		messages, err := container.PollMessages(ctx, topic)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, n.Message, messages[0].Message)
		assert.Equal(t, n.Title, messages[0].Title)
	})

	t.Run("https_default_fails_against_http_server", func(t *testing.T) {
		topic := uniqueTopic("https")
		provider := notification.NewShoutrrrProvider(
			"push", true, []string{fmt.Sprintf("ntfy://%s/%s", host, topic)}, nil, 10*time.Second,
		)
		require.NoError(t, provider.ValidateConfig())

		n := notification.NewNotification(notification.TypeAlert, notification.PriorityHigh, "", "should not arrive")
		assert.Error(t, provider.Send(ctx, n))
	})
}

func TestShoutrrrProviderBasicAuth(t *testing.T) {
	const (
		user = "siteops"
		pass = "p@ss:w#rd!"
	)
	ctx := context.Background()
	container := setupNtfy(t, true)
	host := container.GetHost(ctx)
	require.NoError(t, container.AddUser(ctx, user, pass))

	authURL := func(topic, password string) string {
		return fmt.Sprintf("ntfy://%s:%s@%s/%s?scheme=http",
			user, url.PathEscape(password), host, topic)
	}

	t.Run("valid_credentials", func(t *testing.T) {
		topic := uniqueTopic("auth-ok")
		require.NoError(t, container.GrantAccess(ctx, user, topic, "rw"))

		provider := notification.NewShoutrrrProvider(
			"push", true, []string{authURL(topic, pass)}, nil, 30*time.Second,
		)
		require.NoError(t, provider.ValidateConfig())

		n := notification.NewNotification(notification.TypeAlert, notification.PriorityHigh, "Permit expired or revoked", "Permit for crane work is expired")
		require.NoError(t, provider.Send(ctx, n))

		messages, err := container.PollMessagesWithAuth(ctx, topic, user, pass)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, n.Message, messages[0].Message)
	})

	t.Run("wrong_password_rejected", func(t *testing.T) {
		topic := uniqueTopic("auth-bad")
		require.NoError(t, container.GrantAccess(ctx, user, topic, "rw"))

		provider := notification.NewShoutrrrProvider(
			"push", true, []string{authURL(topic, "wrong")}, nil, 30*time.Second,
		)
		require.NoError(t, provider.ValidateConfig())

		n := notification.NewNotification(notification.TypeAlert, notification.PriorityHigh, "", "should be denied")
		assert.Error(t, provider.Send(ctx, n))
	})
}

func TestServicePushesQualifyingSeverities(t *testing.T) {
	container := setupNtfy(t, false)
	ctx := context.Background()
	host := container.GetHost(ctx)
	topic := uniqueTopic("service")

	svc := notification.NewService(&notification.ServiceConfig{
		Capacity:        10,
		PushURLs:        []string{fmt.Sprintf("ntfy://%s/%s?scheme=http", host, topic)},
		MinPushSeverity: control.SeverityHigh,
		PushTimeout:     30 * time.Second,
	})

	// Below the push threshold: bell feed only.
	svc.NotifyAlert(ctx, control.SeverityMedium, "site-1", "alert-1", "Material usage exceeds plan", "Variance is 30%")
	// At the threshold: bell feed and push.
	svc.NotifyAlert(ctx, control.SeverityHigh, "site-1", "alert-2", "Milestone more than a week late", "Foundation pour is 9 days late")

	assert.Equal(t, 2, svc.Len())

	messages, err := container.PollMessages(ctx, topic)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Foundation pour is 9 days late", messages[0].Message)
}
