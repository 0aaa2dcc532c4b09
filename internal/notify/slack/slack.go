// Package slack posts support alerts to a Slack incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/supportline/internal/notify"
)

// maxRetries is the max number of retries for rate-limited webhook posts.
const maxRetries = 3

// Notifier implements notify.Notifier for a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// Opts holds parameters for creating a Slack Notifier.
type Opts struct {
	WebhookURL string
	// For testing: point at an httptest server client.
	HTTPClient *http.Client
}

// New creates a Slack Notifier.
func New(opts Opts) (*Notifier, error) {
	if opts.WebhookURL == "" {
		return nil, fmt.Errorf("slack: webhook url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Notifier{webhookURL: opts.WebhookURL, client: client}, nil
}

// Name implements notify.Notifier.
func (n *Notifier) Name() string { return "slack" }

// Notify implements notify.Notifier.
func (n *Notifier) Notify(ctx context.Context, a notify.Alert) error {
	msg := buildWebhookMessage(a)
	err := retryOnRateLimit(ctx, func() error {
		return slackapi.PostWebhookCustomHTTPContext(ctx, n.webhookURL, n.client, msg)
	})
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}

// buildWebhookMessage translates an Alert into a webhook payload with one
// attachment.
func buildWebhookMessage(a notify.Alert) *slackapi.WebhookMessage {
	att := slackapi.Attachment{
		Title:    a.Title,
		Text:     a.Body,
		Color:    a.Color,
		Fallback: a.Title,
	}
	for _, f := range a.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return &slackapi.WebhookMessage{
		Text:        a.Title,
		Attachments: []slackapi.Attachment{att},
	}
}

// retryOnRateLimit calls fn and retries with backoff on Slack rate limit errors.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) || attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
