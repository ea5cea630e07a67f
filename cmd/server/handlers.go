package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mbaranov/deckforge"
	"github.com/mbaranov/deckforge/assemble"
	"github.com/mbaranov/deckforge/policy"
)

type handler struct {
	engine deckforge.Engine
}

func newHandler(e deckforge.Engine) *handler {
	return &handler{engine: e}
}

// POST /ingest
// Accepts multipart file upload or JSON with file path.
func (h *handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	// Try multipart upload first
	if err := r.ParseMultipartForm(200 << 20); err == nil { // 200MB max
		file, header, err := r.FormFile("file")
		if err == nil {
			defer file.Close()

			// Sanitise filename to prevent path traversal.
			safeName := filepath.Base(header.Filename)

			tmpPath := filepath.Join(os.TempDir(), safeName)
			dst, err := os.Create(tmpPath)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to process file")
				slog.Error("creating temp file", "error", err)
				return
			}
			if _, err := io.Copy(dst, file); err != nil {
				dst.Close()
				writeError(w, http.StatusInternalServerError, "failed to save file")
				slog.Error("saving uploaded file", "error", err)
				return
			}
			dst.Close()
			defer os.Remove(tmpPath)

			deck, err := h.engine.IngestDeck(ctx, tmpPath)
			if err != nil {
				h.writeIngestError(w, err)
				return
			}

			writeJSON(w, http.StatusOK, deck)
			return
		}
	}

	// Try JSON body with path
	var req struct {
		Path       string `json:"path"`
		Force      bool   `json:"force,omitempty"`
		SkipRender bool   `json:"skip_render,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: expected multipart file or JSON with 'path'")
		return
	}

	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	// Validate that path is a real file (prevents directory traversal probing).
	absPath, err := filepath.Abs(req.Path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusBadRequest, "path must be an existing file")
		return
	}

	var opts []deckforge.IngestOption
	if req.Force {
		opts = append(opts, deckforge.WithForceReingest())
	}
	if req.SkipRender {
		opts = append(opts, deckforge.WithSkipRender())
	}

	deck, err := h.engine.IngestDeck(ctx, absPath, opts...)
	if err != nil {
		h.writeIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deck)
}

func (h *handler) writeIngestError(w http.ResponseWriter, err error) {
	if errors.Is(err, deckforge.ErrCorruptSource) {
		writeError(w, http.StatusUnprocessableEntity, "not a readable presentation")
		return
	}
	writeError(w, http.StatusInternalServerError, "ingestion failed")
	slog.Error("ingest error", "error", err)
}

// POST /classify
func (h *handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	reports, err := h.engine.Classify(ctx, req.Path)
	if err != nil {
		if errors.Is(err, deckforge.ErrCorruptSource) {
			writeError(w, http.StatusUnprocessableEntity, "not a readable presentation")
			return
		}
		writeError(w, http.StatusInternalServerError, "classification failed")
		slog.Error("classify error", "path", req.Path, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"path":   req.Path,
		"slides": reports,
	})
}

// POST /assemble
func (h *handler) handleAssemble(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	var req struct {
		Slides []struct {
			UnitID      string `json:"unit_id"`
			SourcePath  string `json:"source_path,omitempty"`
			SourceIndex int    `json:"source_index,omitempty"`
		} `json:"slides"`
		Mode           string `json:"mode,omitempty"`
		Output         string `json:"output,omitempty"`
		PreserveOrder  bool   `json:"preserve_order,omitempty"`
		FailOnOmission bool   `json:"fail_on_omission,omitempty"`
		BaseName       string `json:"base_name,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Slides) == 0 {
		writeError(w, http.StatusBadRequest, "slides is required")
		return
	}

	mode, err := policy.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	areq := assemble.Request{
		Mode:           mode,
		Output:         assemble.OutputMode(req.Output),
		PreserveOrder:  req.PreserveOrder,
		FailOnOmission: req.FailOnOmission,
		BaseName:       req.BaseName,
	}
	for _, s := range req.Slides {
		areq.Refs = append(areq.Refs, assemble.SlideRef{
			UnitID:      s.UnitID,
			SourcePath:  s.SourcePath,
			SourceIndex: s.SourceIndex,
		})
	}

	res, err := h.engine.Assemble(ctx, areq)
	if err != nil {
		switch {
		case errors.Is(err, deckforge.ErrSlideOmitted), errors.Is(err, deckforge.ErrNoSlides):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  err.Error(),
				"result": res,
			})
		default:
			writeError(w, http.StatusInternalServerError, "assembly failed")
			slog.Error("assemble error", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GET /decks
func (h *handler) handleListDecks(w http.ResponseWriter, r *http.Request) {
	decks, err := h.engine.ListDecks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list decks")
		slog.Error("list decks error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"decks": decks,
	})
}

// GET /decks/{fingerprint}
func (h *handler) handleGetDeck(w http.ResponseWriter, r *http.Request) {
	deck, err := h.engine.GetDeck(r.Context(), r.PathValue("fingerprint"))
	if err != nil {
		if errors.Is(err, deckforge.ErrDeckNotFound) {
			writeError(w, http.StatusNotFound, "deck not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get deck")
		slog.Error("get deck error", "error", err)
		return
	}

	writeJSON(w, http.StatusOK, deck)
}

// GET /decks/{fingerprint}/units
func (h *handler) handleListUnits(w http.ResponseWriter, r *http.Request) {
	fingerprint := r.PathValue("fingerprint")
	units, err := h.engine.ListUnits(r.Context(), fingerprint)
	if err != nil {
		if errors.Is(err, deckforge.ErrDeckNotFound) {
			writeError(w, http.StatusNotFound, "deck not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list units")
		slog.Error("list units error", "fingerprint", fingerprint, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fingerprint": fingerprint,
		"units":       units,
	})
}

// GET /assemblies/{id}
func (h *handler) handleGetAssembly(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.engine.Store().GetAssembly(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "assembly not found")
		return
	}
	diags, err := h.engine.Store().ListDiagnostics(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load diagnostics")
		slog.Error("list diagnostics error", "assembly", id, "error", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assembly":    rec,
		"diagnostics": diags,
	})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Store().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		slog.Error("health check error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"stats":  stats,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}
