package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"recital/internal/config"
	"recital/internal/media"
)

const userAgent = "Recital/0.1.0"

// Service defines the notification surface exposed to the upload pipeline.
type Service interface {
	NotifyUploadQueued(ctx context.Context, recordingID int64, kind media.Kind, filename string, size int64) error
	NotifyUploadCompleted(ctx context.Context, recordingID int64, kind media.Kind, size int64) error
	NotifyUploadFailed(ctx context.Context, recordingID int64, kind media.Kind, reason string) error
	NotifyUploadCancelled(ctx context.Context, recordingID int64, kind media.Kind) error
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

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		uploadsOn: cfg.Notifications.Uploads,
		errorsOn:  cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	uploadsOn bool
	errorsOn  bool
}

func uploadLabel(recordingID int64, kind media.Kind) string {
	return fmt.Sprintf("recording %d (%s)", recordingID, kind)
}

func (n *ntfyService) NotifyUploadQueued(ctx context.Context, recordingID int64, kind media.Kind, filename string, size int64) error {
	if !n.uploadsOn {
		return nil
	}
	message := fmt.Sprintf("Queued upload: %s, %s", uploadLabel(recordingID, kind), humanize.Bytes(uint64(size)))
	if filename = strings.TrimSpace(filename); filename != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, filename)
	}
	data := payload{
		title:   "Recital - Upload Queued",
		message: message,
		tags:    []string{"recital", "upload", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadCompleted(ctx context.Context, recordingID int64, kind media.Kind, size int64) error {
	if !n.uploadsOn {
		return nil
	}
	data := payload{
		title:   "Recital - Upload Complete",
		message: fmt.Sprintf("Stored %s (%s)", uploadLabel(recordingID, kind), humanize.Bytes(uint64(size))),
		tags:    []string{"recital", "upload", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadFailed(ctx context.Context, recordingID int64, kind media.Kind, reason string) error {
	if !n.uploadsOn {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	data := payload{
		title:    "Recital - Upload Failed",
		message:  fmt.Sprintf("Upload failed for %s: %s\nRetry from the queue view", uploadLabel(recordingID, kind), reason),
		tags:     []string{"recital", "upload", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyUploadCancelled(ctx context.Context, recordingID int64, kind media.Kind) error {
	if !n.uploadsOn {
		return nil
	}
	data := payload{
		title:   "Recital - Upload Cancelled",
		message: fmt.Sprintf("Cancelled upload for %s", uploadLabel(recordingID, kind)),
		tags:    []string{"recital", "upload", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorsOn {
		return nil
	}
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
		title:    "Recital - Error",
		message:  builder.String(),
		tags:     []string{"recital", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Recital - Test",
		message:  "Notification system test",
		tags:     []string{"recital", "test"},
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

func (noopService) NotifyUploadQueued(context.Context, int64, media.Kind, string, int64) error { return nil }
func (noopService) NotifyUploadCompleted(context.Context, int64, media.Kind, int64) error     { return nil }
func (noopService) NotifyUploadFailed(context.Context, int64, media.Kind, string) error       { return nil }
func (noopService) NotifyUploadCancelled(context.Context, int64, media.Kind) error            { return nil }
func (noopService) NotifyError(context.Context, error, string) error                          { return nil }
func (noopService) TestNotification(context.Context) error                                    { return nil }
