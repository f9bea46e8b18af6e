package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"lawlens"
	"lawlens/report"
)

type handler struct {
	engine lawlens.Engine
}

func newHandler(e lawlens.Engine) *handler {
	return &handler{engine: e}
}

type analyzeResponse struct {
	Report   *report.Report `json:"report"`
	Warnings []string       `json:"warnings"`
}

// POST /analyze
// Accepts a JSON analysis request, or a multipart upload whose file is
// analyzed in document mode.
func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	req, cleanup, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if cleanup != nil {
		defer cleanup()
	}

	rep, warnings, err := h.engine.Analyze(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, lawlens.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, lawlens.ErrDocumentNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, lawlens.ErrAssessorContract):
			writeError(w, http.StatusBadGateway, "assessor returned an unusable response")
			slog.Error("assessor contract violation", "error", err)
		default:
			writeError(w, http.StatusInternalServerError, "analysis failed")
			slog.Error("analysis error", "mode", req.Mode, "error", err)
		}
		return
	}

	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Report: rep, Warnings: warnings})
}

// decodeRequest parses either request shape. The returned cleanup removes
// the temp file of a multipart upload.
func (h *handler) decodeRequest(w http.ResponseWriter, r *http.Request) (lawlens.Request, func(), bool) {
	if err := r.ParseMultipartForm(100 << 20); err == nil { // 100MB max
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Sanitise filename to prevent path traversal. A per-request
			// temp directory keeps concurrent uploads of the same filename
			// from clobbering each other, and keeps the extension intact
			// for extractor selection.
			safeName := filepath.Base(header.Filename)
			tmpDir, err := os.MkdirTemp("", "lawlens-upload-")
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp dir", "error", err)
				return lawlens.Request{}, nil, false
			}
			tmpPath := filepath.Join(tmpDir, safeName)
			dst, err := os.Create(tmpPath)
			if err != nil {
				os.RemoveAll(tmpDir)
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return lawlens.Request{}, nil, false
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				os.RemoveAll(tmpDir)
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return lawlens.Request{}, nil, false
			}
			dst.Close()

			req := lawlens.Request{Mode: lawlens.ModeDocument, DocumentPath: tmpPath}
			req.Policies = r.MultipartForm.Value["policies"]
			return req, func() { os.RemoveAll(tmpDir) }, true
		}
	}

	var req lawlens.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or a JSON analysis request")
		return lawlens.Request{}, nil, false
	}
	return req, nil, true
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
