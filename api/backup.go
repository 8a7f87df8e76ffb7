package api

import (
	"bytes"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/garnizeh/jobtrack/internal/backup"
	"github.com/garnizeh/jobtrack/internal/reconcile"
	"github.com/garnizeh/jobtrack/internal/tracker"
)

const maxRestoreBytes = 10 << 20

type BackupHandler struct {
	svc *tracker.Service
}

func NewBackupHandler(svc *tracker.Service) *BackupHandler {
	return &BackupHandler{svc: svc}
}

// Backup serves the JSON backup as a download. The body is rendered first
// so a storage failure can still produce a proper error status.
func (h *BackupHandler) Backup(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.Backup(r.Context(), userID, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	serveAttachment(w, "application/json", "applications_backup.json", buf.Bytes())
}

func (h *BackupHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.svc.ExportCSV(r.Context(), userID, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	serveAttachment(w, "text/csv; charset=utf-8", "applications.csv", buf.Bytes())
}

func serveAttachment(w http.ResponseWriter, contentType, name string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Error("write attachment", slog.Any("err", err))
	}
}

type restoreResponse struct {
	Mode  reconcile.Mode `json:"mode"`
	Total int            `json:"total"`
}

// Restore accepts either a multipart upload (fields "file" and "mode") or
// a raw JSON body with ?mode=.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRestoreBytes)

	var (
		body    io.Reader = r.Body
		modeStr           = r.URL.Query().Get("mode")
	)
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxRestoreBytes); err != nil {
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer f.Close()
		body = f
		if v := r.FormValue("mode"); v != "" {
			modeStr = v
		}
	}

	mode, err := reconcile.ParseMode(modeStr)
	if err != nil {
		writeError(w, r, err)
		return
	}

	incoming, err := backup.Decode(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	n, err := h.svc.Restore(r.Context(), userID, mode, incoming)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, restoreResponse{Mode: mode, Total: n}, http.StatusOK)
}
