package transport_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"recital/internal/logging"
	"recital/internal/media"
	"recital/internal/testsupport"
	"recital/internal/transport"
	"recital/internal/uploads"
)

func newClient(t *testing.T, serverURL string) *transport.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithIngestURL(serverURL))
	return transport.NewClient(cfg, logging.NewNop())
}

func TestUploadPostsMultipartForm(t *testing.T) {
	payload := []byte("webm bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/recordings/42/media" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		if got := r.FormValue("type"); got != "video" {
			t.Errorf("type field = %q, want video", got)
		}
		file, header, err := r.FormFile("media")
		if err != nil {
			t.Fatalf("media part missing: %v", err)
		}
		defer file.Close()
		if header.Filename != "consult.webm" {
			t.Errorf("filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "video/webm" {
			t.Errorf("part content type = %q", ct)
		}
		data, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("read media part: %v", err)
		}
		if string(data) != string(payload) {
			t.Errorf("payload mismatch: %q", data)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"stored_as": "42_video.webm",
			"size":      len(payload),
		})
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	ack, err := client.Upload(context.Background(), uploads.Request{
		RecordingID: 42,
		Kind:        media.KindVideo,
		Filename:    "consult.webm",
		Payload:     payload,
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if ack.StoredAs != "42_video.webm" {
		t.Errorf("StoredAs = %q", ack.StoredAs)
	}
	if ack.Size != int64(len(payload)) {
		t.Errorf("Size = %d, want %d", ack.Size, len(payload))
	}
}

func TestUploadSurfacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newClient(t, server.URL)
	_, err := client.Upload(context.Background(), uploads.Request{
		RecordingID: 7,
		Kind:        media.KindAudio,
		Filename:    "note.wav",
		Payload:     []byte("x"),
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "storage unavailable") {
		t.Fatalf("error = %v", err)
	}
}

func TestUploadHonorsContextCancellation(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client := newClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Upload(ctx, uploads.Request{
		RecordingID: 7,
		Kind:        media.KindVideo,
		Filename:    "v.webm",
		Payload:     []byte("x"),
	})
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
