package ingest

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"recital/internal/catalog"
	"recital/internal/logging"
	"recital/internal/media"
)

const serviceVersion = "0.1.0"

// maxUploadBytes caps one multipart upload held in memory before spilling to
// disk; recordings from browser capture sit well under this.
const maxUploadBytes = 256 << 20

type healthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type recordingView struct {
	RecordingID int64  `json:"recording_id"`
	MediaKind   string `json:"media_kind"`
	Filename    string `json:"filename"`
	SizeBytes   int64  `json:"size_bytes"`
	UploadedAt  string `json:"uploaded_at"`
}

type listResponse struct {
	Recordings []recordingView `json:"recordings"`
	Count      int             `json:"count"`
}

type saveResponse struct {
	StoredAs string `json:"stored_as"`
	Size     int64  `json:"size"`
}

type removeResponse struct {
	RecordingID int64    `json:"recording_id"`
	Removed     []string `json:"removed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Service:   "recital",
		Version:   serviceVersion,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	records, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]recordingView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordingView{
			RecordingID: rec.RecordingID,
			MediaKind:   rec.Kind.String(),
			Filename:    rec.Filename,
			SizeBytes:   rec.Size,
			UploadedAt:  rec.UploadedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, listResponse{Recordings: views, Count: len(views)})
}

// handleRecordingMedia routes /api/recordings/{id}/media by method.
func (s *Server) handleRecordingMedia(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/recordings/")
	idStr, tail, found := strings.Cut(rest, "/")
	if !found || tail != "media" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	recordingID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || recordingID <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid recording id")
		return
	}

	switch r.Method {
	case http.MethodPost:
		s.saveMedia(w, r, recordingID)
	case http.MethodGet:
		s.serveMedia(w, r, recordingID)
	case http.MethodDelete:
		s.removeMedia(w, r, recordingID)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) saveMedia(w http.ResponseWriter, r *http.Request, recordingID int64) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	kind, err := media.ParseKind(r.FormValue("type"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file, header, err := r.FormFile("media")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "media file part missing")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "read media part: "+err.Error())
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "media part is empty")
		return
	}
	ext := media.NormalizeExtension(filepath.Ext(header.Filename))
	if ext == "" {
		s.writeError(w, http.StatusBadRequest, "media filename has no extension")
		return
	}

	storedPath, err := s.store.Save(recordingID, kind, data, ext)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	storedAs := filepath.Base(storedPath)

	if err := s.catalog.Upsert(r.Context(), catalog.Record{
		RecordingID: recordingID,
		Kind:        kind,
		Filename:    storedAs,
		Size:        int64(len(data)),
		UploadedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("catalog upsert failed",
			logging.Error(err),
			logging.Int64(logging.FieldRecordingID, recordingID),
		)
	}

	s.logger.Info("recording media stored",
		logging.Int64(logging.FieldRecordingID, recordingID),
		logging.String(logging.FieldMediaKind, kind.String()),
		logging.Int("bytes", len(data)),
	)
	s.writeJSON(w, http.StatusCreated, saveResponse{StoredAs: storedAs, Size: int64(len(data))})
}

func (s *Server) serveMedia(w http.ResponseWriter, r *http.Request, recordingID int64) {
	kind, err := media.ParseKind(r.URL.Query().Get("type"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	path, ok := s.store.Locate(recordingID, kind)
	if !ok {
		s.writeError(w, http.StatusNotFound, "recording media not found")
		return
	}
	data, ok := s.store.Load(recordingID, kind)
	if !ok {
		s.writeError(w, http.StatusNotFound, "recording media not found")
		return
	}

	w.Header().Set("Content-Type", s.store.ContentTypeFor(path))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) removeMedia(w http.ResponseWriter, r *http.Request, recordingID int64) {
	kinds := media.AllKinds()
	if value := r.URL.Query().Get("type"); value != "" {
		kind, err := media.ParseKind(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		kinds = []media.Kind{kind}
	}

	removed := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		if path, ok := s.store.Locate(recordingID, kind); ok {
			removed = append(removed, filepath.Base(path))
		}
	}
	s.store.Purge(recordingID, kinds...)
	if err := s.catalog.Delete(r.Context(), recordingID, kinds...); err != nil {
		s.logger.Warn("catalog delete failed",
			logging.Error(err),
			logging.Int64(logging.FieldRecordingID, recordingID),
		)
	}

	s.logger.Info("recording media removed",
		logging.Int64(logging.FieldRecordingID, recordingID),
		logging.Int("files", len(removed)),
	)
	s.writeJSON(w, http.StatusOK, removeResponse{RecordingID: recordingID, Removed: removed})
}
