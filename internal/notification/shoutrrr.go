package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// ShoutrrrProvider sends notifications to external push targets (ntfy,
// telegram, email, ...) through shoutrrr URLs.
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	params  map[string]string
	timeout time.Duration
	sender  *router.ServiceRouter
}

// NewShoutrrrProvider creates a provider for the given target URLs. Extra
// params are passed to every send (service-specific, may be nil).
func NewShoutrrrProvider(name string, enabled bool, urls []string, params map[string]string, timeout time.Duration) *ShoutrrrProvider {
	return &ShoutrrrProvider{
		name:    name,
		enabled: enabled,
		urls:    urls,
		params:  params,
		timeout: timeout,
	}
}

// Name returns the provider's configured name.
func (p *ShoutrrrProvider) Name() string {
	return p.name
}

// Enabled reports whether the provider should receive notifications.
func (p *ShoutrrrProvider) Enabled() bool {
	return p.enabled && len(p.urls) > 0
}

// ValidateConfig parses the target URLs and builds the sender. Must be
// called before Send.
func (p *ShoutrrrProvider) ValidateConfig() error {
	if len(p.urls) == 0 {
		return errors.New("no shoutrrr URLs configured")
	}
	sender, err := shoutrrr.CreateSender(p.urls...)
	if err != nil {
		return fmt.Errorf("failed to create shoutrrr sender: %w", err)
	}
	p.sender = sender
	return nil
}

// Send delivers the notification to all targets. Partial failures are
// collected into a single error.
func (p *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if !p.Enabled() {
		return nil
	}
	if p.sender == nil {
		if err := p.ValidateConfig(); err != nil {
			return err
		}
	}

	params := types.Params{}
	for k, v := range p.params {
		params[k] = v
	}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}

	done := make(chan []error, 1)
	go func() {
		done <- p.sender.Send(n.Message, &params)
	}()

	timeout := p.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case errs := <-done:
		return errors.Join(errs...)
	case <-time.After(timeout):
		return fmt.Errorf("shoutrrr send timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
