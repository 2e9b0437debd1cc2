// Package bot forwards inbound messages to an external auto-responder over a
// signed webhook. Replying to the user is the responder's job, not ours.
package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AzielCF/az-crm/domains/webhook"
	"github.com/AzielCF/az-crm/pkg/utils"
	"github.com/sirupsen/logrus"
)

type Config struct {
	WebhookURL    string
	WebhookSecret string
	HTTPTimeout   time.Duration
}

type Forwarder struct {
	cfg    Config
	client *http.Client
}

func NewForwarder(cfg Config) *Forwarder {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Forwarder{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type inboundEvent struct {
	OrganizationID string    `json:"organization_id"`
	ConversationID string    `json:"conversation_id"`
	Kind           string    `json:"kind"`
	From           string    `json:"from"`
	SenderName     string    `json:"sender_name,omitempty"`
	Text           string    `json:"text,omitempty"`
	AttachmentURL  string    `json:"attachment_url,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NotifyInbound delivers the message to the configured responder URL, retrying
// with backoff. Delivery is best-effort; failures are logged, never surfaced
// into webhook processing.
func (f *Forwarder) NotifyInbound(ctx context.Context, organizationID, conversationID string, message webhook.InboundMessage) {
	if f.cfg.WebhookURL == "" {
		return
	}

	postBody, err := json.Marshal(inboundEvent{
		OrganizationID: organizationID,
		ConversationID: conversationID,
		Kind:           string(message.Kind),
		From:           message.From,
		SenderName:     message.SenderName,
		Text:           message.Text,
		AttachmentURL:  message.AttachmentURL,
		Timestamp:      message.Timestamp,
	})
	if err != nil {
		logrus.WithError(err).Error("[BOT] failed to marshal inbound event")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.WebhookURL, nil)
	if err != nil {
		logrus.WithError(err).Error("[BOT] failed to build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if f.cfg.WebhookSecret != "" {
		signature, err := utils.GetMessageDigestOrSignature(postBody, []byte(f.cfg.WebhookSecret))
		if err != nil {
			logrus.WithError(err).Error("[BOT] failed to sign inbound event")
			return
		}
		req.Header.Set("X-Hub-Signature-256", fmt.Sprintf("sha256=%s", signature))
	}

	var attempt int
	var maxAttempts = 3
	var sleepDuration = 1 * time.Second

	for attempt = 0; attempt < maxAttempts; attempt++ {
		req.Body = io.NopCloser(bytes.NewBuffer(postBody))
		resp, err := f.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				logrus.WithFields(logrus.Fields{
					"conversation_id": conversationID,
					"attempt":         attempt + 1,
				}).Debug("[BOT] inbound event delivered")
				return
			}
			err = fmt.Errorf("responder returned status %d", resp.StatusCode)
		}
		logrus.Warnf("[BOT] attempt %d to notify responder failed: %v", attempt+1, err)
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(sleepDuration):
			}
			sleepDuration *= 2
		}
	}
}
