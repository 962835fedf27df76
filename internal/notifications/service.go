package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"coldstakepool/internal/config"
)

const userAgent = "ColdStakePool-Go/0.0.10"

// Service defines the notification surface exposed to the pool engine.
type Service interface {
	NotifyBlockFound(ctx context.Context, height int64, stakerAddress, reward string) error
	NotifyPayoutSent(ctx context.Context, batchID, txid string, recipients int, total string) error
	NotifyPayoutFailed(ctx context.Context, batchID string, sendErr error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBlockFound(ctx context.Context, height int64, stakerAddress, reward string) error {
	stakerAddress = strings.TrimSpace(stakerAddress)
	if stakerAddress == "" {
		stakerAddress = "unknown"
	}
	data := payload{
		title:   "ColdStakePool - Block Found",
		message: fmt.Sprintf("Pool staked block %d (reward %s, staker %s)", height, reward, stakerAddress),
		tags:    []string{"coldstakepool", "block", "found"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPayoutSent(ctx context.Context, batchID, txid string, recipients int, total string) error {
	data := payload{
		title:   "ColdStakePool - Payout Sent",
		message: fmt.Sprintf("Paid %s to %d participants\nBatch: %s\nTxid: %s", total, recipients, batchID, txid),
		tags:    []string{"coldstakepool", "payout", "sent"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPayoutFailed(ctx context.Context, batchID string, sendErr error) error {
	detail := "unknown"
	if sendErr != nil {
		detail = strings.TrimSpace(sendErr.Error())
	}
	data := payload{
		title:    "ColdStakePool - Payout Failed",
		message:  fmt.Sprintf("Payout batch %s failed: %s", batchID, detail),
		tags:     []string{"coldstakepool", "payout", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "ColdStakePool - Error",
		message:  builder.String(),
		tags:     []string{"coldstakepool", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "ColdStakePool - Test",
		message:  "Notification system test",
		tags:     []string{"coldstakepool", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBlockFound(context.Context, int64, string, string) error   { return nil }
func (noopService) NotifyPayoutSent(context.Context, string, string, int, string) error { return nil }
func (noopService) NotifyPayoutFailed(context.Context, string, error) error         { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
