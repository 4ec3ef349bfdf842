package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"recital/internal/media"
)

func TestUploadCommandDeliversFile(t *testing.T) {
	var received atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, "/api/recordings/") {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		received.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"stored_as": "7_audio.wav", "size": 4})
	}))
	defer server.Close()

	cfgPath := writeTestConfig(t, server.URL)
	mediaPath := filepath.Join(t.TempDir(), "note.wav")
	if err := os.WriteFile(mediaPath, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "upload", "7", mediaPath)
	if err != nil {
		t.Fatalf("upload failed: %v\n%s", err, out)
	}
	if received.Load() != 1 {
		t.Fatalf("server received %d uploads, want 1", received.Load())
	}
	if !strings.Contains(out, "completed") {
		t.Errorf("output missing completed status:\n%s", out)
	}
}

func TestUploadCommandReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInsufficientStorage)
	}))
	defer server.Close()

	cfgPath := writeTestConfig(t, server.URL)
	mediaPath := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(mediaPath, []byte("webm"), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}

	out, err := runCommand(t, "--config", cfgPath, "upload", "9", mediaPath)
	if err == nil {
		t.Fatalf("expected failure, output:\n%s", out)
	}
	if !strings.Contains(out, "disk full") {
		t.Errorf("output missing failure detail:\n%s", out)
	}
}

func TestUploadCommandRejectsBadID(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:7848")
	if _, err := runCommand(t, "--config", cfgPath, "upload", "zero", "file.webm"); err == nil {
		t.Fatal("expected error for non-numeric recording id")
	}
}

func TestInferKind(t *testing.T) {
	cases := []struct {
		path string
		want media.Kind
	}{
		{"a.wav", media.KindAudio},
		{"b.ogg", media.KindAudio},
		{"c.m4a", media.KindAudio},
		{"d.webm", media.KindVideo},
		{"e.mp4", media.KindVideo},
		{"f.unknown", media.KindVideo},
	}
	for _, tc := range cases {
		if got := inferKind(tc.path); got != tc.want {
			t.Errorf("inferKind(%q) = %s, want %s", tc.path, got, tc.want)
		}
	}
}
