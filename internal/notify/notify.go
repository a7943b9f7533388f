// Package notify delivers discipline events to external channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tradegate/internal/async"
	"tradegate/internal/config"
	"tradegate/internal/stream"
	"tradegate/pkg/utils"
)

// Notification represents a notification message.
type Notification struct {
	Kind      stream.EventKind       `json:"kind"`
	UserID    string                 `json:"user_id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Channel defines the interface for a notification channel.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Dispatcher consumes hub events and fans them out to channels on a
// worker pool, so delivery latency never reaches the gate's hot path.
type Dispatcher struct {
	cfg      config.NotificationConfig
	channels []Channel
	pool     *async.WorkerPool
	logger   zerolog.Logger
}

// NewDispatcher creates a dispatcher with the configured channels.
func NewDispatcher(cfg config.NotificationConfig, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		cfg:    cfg,
		pool:   async.NewWorkerPool(2),
		logger: logger,
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		d.channels = append(d.channels, NewWebhookChannel(cfg.Webhook))
	}
	d.channels = append(d.channels, NewLogChannel(logger))
	return d
}

// Run consumes events until the channel closes. Call on its own goroutine.
func (d *Dispatcher) Run(events <-chan stream.Event) {
	d.pool.Start()
	defer d.pool.Stop()

	for event := range events {
		if !d.cfg.Enabled || !d.wantLevel(event.Kind) {
			continue
		}

		n := buildNotification(event)
		for _, ch := range d.channels {
			if !ch.IsEnabled() {
				continue
			}
			channel := ch
			submitted := d.pool.Submit(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := channel.Send(ctx, n); err != nil {
					d.logger.Warn().Err(err).Str("channel", channel.Name()).Msg("Notification delivery failed")
				}
			})
			if !submitted {
				d.logger.Warn().Str("channel", channel.Name()).Msg("Notification queue full, dropping")
			}
		}
	}
}

// wantLevel applies the configured level filter.
func (d *Dispatcher) wantLevel(kind stream.EventKind) bool {
	switch d.cfg.Level {
	case "violations_only":
		return kind == stream.EventTriggerWarning ||
			kind == stream.EventSessionStarted ||
			kind == stream.EventSessionSkipped
	case "errors_only":
		return false
	default: // "all"
		return true
	}
}

func buildNotification(event stream.Event) Notification {
	n := Notification{
		Kind:      event.Kind,
		UserID:    event.UserID,
		Timestamp: event.Timestamp,
		Data:      map[string]interface{}{},
	}

	switch event.Kind {
	case stream.EventTriggerWarning:
		if event.Trigger != nil {
			n.Title = "Behavioral trigger"
			n.Message = fmt.Sprintf("%s (%s): %s", event.Trigger.Kind, event.Trigger.Severity, event.Trigger.Detail)
			n.Data["suggested_action"] = event.Trigger.SuggestedAction
		}
	case stream.EventSessionStarted:
		n.Title = "Cooldown started"
		if event.Session != nil {
			n.Message = fmt.Sprintf("Cooldown active until exercises are completed (trigger: %s)", event.Session.TriggerReason.Kind)
			n.Data["session_id"] = event.Session.ID
		}
	case stream.EventSessionCompleted:
		n.Title = "Cooldown completed"
		n.Message = "All remediation exercises completed"
	case stream.EventSessionSkipped:
		n.Title = "Cooldown skipped"
		n.Message = "Cooldown skipped; discipline penalty applied"
	case stream.EventApprovalExpired:
		n.Title = "Approval expired"
		n.Message = "A trade approval expired unused"
	case stream.EventScoreAdjusted:
		n.Title = "Discipline score updated"
		if event.Score != nil {
			n.Message = fmt.Sprintf("Score adjusted by %+.1f (%s)", event.Score.Delta, event.Score.Reason)
		}
	default:
		n.Title = string(event.Kind)
	}

	return n
}

// LogChannel writes notifications to the structured log. Always on, so a
// run without a webhook still leaves an audit trail of what would have
// been delivered.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log channel.
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

// Name returns the channel name.
func (l *LogChannel) Name() string { return "log" }

// IsEnabled reports whether the channel is configured.
func (l *LogChannel) IsEnabled() bool { return true }

// Send logs the notification.
func (l *LogChannel) Send(ctx context.Context, n Notification) error {
	l.logger.Info().
		Str("kind", string(n.Kind)).
		Str("user_id", n.UserID).
		Str("title", n.Title).
		Msg(n.Message)
	return nil
}

// WebhookChannel posts notifications as JSON to a configured URL.
type WebhookChannel struct {
	cfg    config.WebhookConfig
	client *http.Client
	retry  utils.RetryConfig
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(cfg config.WebhookConfig) *WebhookChannel {
	return &WebhookChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Second},
		retry:  utils.DefaultRetryConfig(),
	}
}

// Name returns the channel name.
func (w *WebhookChannel) Name() string { return "webhook" }

// IsEnabled reports whether the channel is configured.
func (w *WebhookChannel) IsEnabled() bool { return w.cfg.Enabled && w.cfg.URL != "" }

// Send posts the notification, retrying transient failures with backoff.
func (w *WebhookChannel) Send(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	return utils.Retry(ctx, w.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	})
}
