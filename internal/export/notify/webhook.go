package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Notifier announces completed export runs.
type Notifier interface {
	Notify(ctx context.Context, report RunReport) error
}

// RunReport summarizes one export run for the completion message.
type RunReport struct {
	Folders  int
	Rows     int
	Images   int
	Failed   []string
	Duration time.Duration
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookNotifier posts run summaries to a webhook endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// WebhookOption configures the notifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		if client != nil {
			n.client = client
		}
	}
}

// NewWebhookNotifier constructs a webhook notifier.
func NewWebhookNotifier(url string, opts ...WebhookOption) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	notifier := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier, nil
}

// Notify posts the run summary using a DingTalk/WeCom-compatible
// payload.
func (n *WebhookNotifier) Notify(ctx context.Context, report RunReport) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: formatMessage(report)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notifier: non-2xx response %d", resp.StatusCode)
	}
	return nil
}

func formatMessage(report RunReport) string {
	msg := fmt.Sprintf("Meter export completed: %d folders, %d rows, %d images in %s",
		report.Folders, report.Rows, report.Images, report.Duration.Round(time.Millisecond))
	if len(report.Failed) > 0 {
		msg += fmt.Sprintf("; failed: %s", strings.Join(report.Failed, ", "))
	}
	return msg
}
