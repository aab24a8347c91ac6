package notify

import (
	"context"
	"fmt"
	"net/http"

	"panelkeeper/internal/domain"

	"github.com/slack-go/slack"
)

// Slack posts messages to an incoming-webhook URL.
type Slack struct {
	webhookURL string
	client     *http.Client
}

type SlackConfig struct {
	WebhookURL string
	Client     *http.Client // defaults to NewHTTPClient(0)
}

var _ domain.Sink = (*Slack)(nil)

func NewSlack(cfg SlackConfig) *Slack {
	if cfg.Client == nil {
		cfg.Client = NewHTTPClient(0)
	}
	return &Slack{webhookURL: cfg.WebhookURL, client: cfg.Client}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, text string) error {
	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}
