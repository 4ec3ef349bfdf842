package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"recital/internal/config"
	"recital/internal/logging"
	"recital/internal/media"
	"recital/internal/uploads"
)

const userAgent = "Recital/0.1.0"

// Client delivers recording blobs to the ingest API over HTTP multipart. It
// implements uploads.Transport.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient builds a transport pointed at cfg.Upload.IngestURL. The HTTP
// client carries no timeout of its own; the per-attempt deadline arrives via
// the request context.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.Upload.IngestURL, "/"),
		client:  &http.Client{},
		logger:  logging.NewComponentLogger(logger, "transport"),
	}
}

// ack mirrors the ingest API's save response.
type ack struct {
	StoredAs string `json:"stored_as"`
	Size     int64  `json:"size"`
}

// Upload posts the blob to /api/recordings/{id}/media as a multipart form
// with a "media" file part and a "type" field naming the media kind.
func (c *Client) Upload(ctx context.Context, req uploads.Request) (uploads.Ack, error) {
	body, contentType, err := encodeForm(req)
	if err != nil {
		return uploads.Ack{}, err
	}

	url := fmt.Sprintf("%s/api/recordings/%d/media", c.baseURL, req.RecordingID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return uploads.Ack{}, fmt.Errorf("build upload request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Content-Type", contentType)

	started := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return uploads.Ack{}, fmt.Errorf("post recording media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return uploads.Ack{}, fmt.Errorf("ingest returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result ack
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return uploads.Ack{}, fmt.Errorf("decode ingest response: %w", err)
	}

	c.logger.Debug("media delivered",
		logging.Int64(logging.FieldRecordingID, req.RecordingID),
		logging.String(logging.FieldMediaKind, req.Kind.String()),
		logging.Int64("bytes", result.Size),
		logging.Duration("elapsed", time.Since(started)),
	)
	return uploads.Ack{StoredAs: result.StoredAs, Size: result.Size}, nil
}

func encodeForm(req uploads.Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename=%q`, req.Filename))
	header.Set("Content-Type", media.ContentTypeForPath(req.Filename))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create media part: %w", err)
	}
	if _, err := part.Write(req.Payload); err != nil {
		return nil, "", fmt.Errorf("write media part: %w", err)
	}
	if err := writer.WriteField("type", req.Kind.String()); err != nil {
		return nil, "", fmt.Errorf("write type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}
