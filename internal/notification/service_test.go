package notification

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/site360/site360-go/internal/control"
)

func TestServiceFeedOrderAndLimit(t *testing.T) {
	svc := NewService(&ServiceConfig{Capacity: 10})

	svc.Create(TypeInfo, PriorityLow, "first", "")
	svc.Create(TypeAlert, PriorityHigh, "second", "")
	svc.Create(TypeError, PriorityCritical, "third", "")

	feed := svc.List(0)
	require.Len(t, feed, 3)
	assert.Equal(t, "third", feed[0].Title)
	assert.Equal(t, "first", feed[2].Title)

	feed = svc.List(2)
	require.Len(t, feed, 2)
	assert.Equal(t, "third", feed[0].Title)
	assert.Equal(t, "second", feed[1].Title)
}

func TestServiceFeedCapacity(t *testing.T) {
	svc := NewService(&ServiceConfig{Capacity: 3})

	for i := 0; i < 5; i++ {
		svc.Create(TypeInfo, PriorityLow, fmt.Sprintf("n-%d", i), "")
	}

	feed := svc.List(0)
	require.Len(t, feed, 3)
	assert.Equal(t, "n-4", feed[0].Title)
	assert.Equal(t, "n-2", feed[2].Title)
}

func TestNotifyAlertRecordsMetadata(t *testing.T) {
	svc := NewService(&ServiceConfig{Capacity: 10, MinPushSeverity: control.SeverityHigh})

	n := svc.NotifyAlert(context.Background(), control.SeverityCritical, "site-1", "alert-9", "Critical safety score", "Score dropped to 12")
	assert.Equal(t, TypeAlert, n.Type)
	assert.Equal(t, PriorityCritical, n.Priority)
	assert.Equal(t, "site-1", n.Metadata["site_id"])
	assert.Equal(t, "alert-9", n.Metadata["alert_id"])
	assert.Equal(t, "critical", n.Metadata["severity"])
	assert.Equal(t, 1, svc.Len())
}

func TestPriorityForSeverity(t *testing.T) {
	assert.Equal(t, PriorityCritical, PriorityForSeverity(control.SeverityCritical))
	assert.Equal(t, PriorityHigh, PriorityForSeverity(control.SeverityHigh))
	assert.Equal(t, PriorityMedium, PriorityForSeverity(control.SeverityMedium))
	assert.Equal(t, PriorityLow, PriorityForSeverity(control.SeverityLow))
	assert.Equal(t, PriorityLow, PriorityForSeverity(control.Severity("bogus")))
}

func TestServiceConcurrentAppends(t *testing.T) {
	svc := NewService(&ServiceConfig{Capacity: 50})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				svc.Create(TypeInfo, PriorityLow, fmt.Sprintf("w%d-%d", i, j), "")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, svc.Len())
}
