package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docflow/internal/config"
)

const userAgent = "Docflow-Go/0.1.0"

// Event enumerates the notifications the pipeline can publish.
type Event string

const (
	EventEntityChanged    Event = "entity_changed"
	EventConflictDetected Event = "conflict_detected"
	EventImportFailed     Event = "import_failed"
	EventQueueDrained     Event = "queue_drained"
	EventTest             Event = "test"
)

// Payload carries event-specific values. Keys are documented per event in
// format().
type Payload map[string]any

// Service publishes pipeline events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventEntityChanged:    cfg.Notifications.EntityChanged,
			EventConflictDetected: cfg.Notifications.Conflicts,
			EventImportFailed:     cfg.Notifications.Errors,
			EventQueueDrained:     cfg.Notifications.QueueDrained,
			EventTest:             true,
		},
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
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	switch event {
	case EventEntityChanged:
		// entityType, key, action (created|replaced), filename
		action := stringValue(data, "action", "created")
		message := fmt.Sprintf("📄 %s %s %s", stringValue(data, "entityType", "document"), stringValue(data, "key", "?"), action)
		if filename := stringValue(data, "filename", ""); filename != "" {
			message = fmt.Sprintf("%s\nFile: %s", message, filename)
		}
		return payload{
			title:   "Docflow - Imported",
			message: message,
			tags:    []string{"docflow", "import", action},
		}, true
	case EventConflictDetected:
		// orderNumber, baseOrderNumber, suggestion, conflictId
		return payload{
			title: "Docflow - Conflict",
			message: fmt.Sprintf("⚠️ Order %s collides with %s (suggestion: %s)\nReview conflict #%s",
				stringValue(data, "orderNumber", "?"),
				stringValue(data, "baseOrderNumber", "?"),
				stringValue(data, "suggestion", "manual"),
				stringValue(data, "conflictId", "?")),
			tags:     []string{"docflow", "conflict", "review"},
			priority: "high",
		}, true
	case EventImportFailed:
		// filename, documentType, error
		label := stringValue(data, "filename", "unknown file")
		if docType := stringValue(data, "documentType", ""); docType != "" {
			label = fmt.Sprintf("%s (%s)", label, docType)
		}
		return payload{
			title:    "Docflow - Import Failed",
			message:  fmt.Sprintf("❌ Import failed for %s: %s", label, stringValue(data, "error", "unknown")),
			tags:     []string{"docflow", "error", "alert"},
			priority: "high",
		}, true
	case EventQueueDrained:
		// completed, failed
		return payload{
			title:   "Docflow - Queue Drained",
			message: fmt.Sprintf("Import queue idle: %s completed, %s failed", stringValue(data, "completed", "0"), stringValue(data, "failed", "0")),
			tags:    []string{"docflow", "queue", "completed"},
		}, true
	case EventTest:
		return payload{
			title:    "Docflow - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"docflow", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func stringValue(data Payload, key, fallback string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return fallback
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" {
		return fallback
	}
	return text
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

// NewNoop returns a service that discards every event.
func NewNoop() Service { return noopService{} }
