// Package api exposes the controller's HTTP surface: sending text, grids,
// drawings, and saved patterns to the display, plus status and history.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/banshee-data/ledgrid/internal/config"
	"github.com/banshee-data/ledgrid/internal/db"
	"github.com/banshee-data/ledgrid/internal/frame"
	"github.com/banshee-data/ledgrid/internal/monitoring"
	"github.com/banshee-data/ledgrid/internal/render"
	"github.com/banshee-data/ledgrid/internal/serialmux"
)

// Status describes the serial link and build as reported by /status.
type Status struct {
	SerialEnabled bool   `json:"serial_enabled"`
	PortPath      string `json:"port_path"`
	BaudRate      int    `json:"baud_rate"`
	Version       string `json:"version"`
}

type Server struct {
	m      serialmux.FrameMuxInterface
	db     *db.DB
	cfg    *config.Config
	status Status
}

func NewServer(m serialmux.FrameMuxInterface, database *db.DB, cfg *config.Config, status Status) *Server {
	return &Server{
		m:      m,
		db:     database,
		cfg:    cfg,
		status: status,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/text", s.sendTextHandler)
	mux.HandleFunc("/grid", s.sendGridHandler)
	mux.HandleFunc("/grid16", s.sendGrid16Handler)
	mux.HandleFunc("/draw", s.sendDrawingHandler)
	mux.HandleFunc("/patterns", s.patternsHandler)
	mux.HandleFunc("/patterns/send", s.sendPatternHandler)
	mux.HandleFunc("/frames", s.listFramesHandler)
	mux.HandleFunc("/status", s.statusHandler)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, v ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, v...)})
}

func (s *Server) sendTextHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Text        string `json:"text"`
		DelayMillis int    `json:"delay_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	frames := render.TextFrames(req.Text)
	if len(frames) == 0 {
		writeError(w, http.StatusBadRequest, "text produced no frames")
		return
	}

	delay := s.cfg.GetScrollDelay()
	if req.DelayMillis > 0 {
		delay = time.Duration(req.DelayMillis) * time.Millisecond
	}

	if err := s.m.SendFrames(r.Context(), frames, delay); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stream frames: %v", err)
		return
	}
	s.logFrame("text", frames[len(frames)-1])

	writeJSON(w, http.StatusOK, map[string]int{"frames_sent": len(frames)})
}

func (s *Server) sendGridHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Rows [][]bool `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	bm, err := render.FromRows(req.Rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.sendBitmap(w, "grid", bm)
}

func (s *Server) sendGrid16Handler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Cells [][]bool `json:"cells"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	var cells [render.FineGridSize][render.FineGridSize]bool
	if len(req.Cells) != render.FineGridSize {
		writeError(w, http.StatusBadRequest, "expected %d rows of cells, got %d", render.FineGridSize, len(req.Cells))
		return
	}
	for i, row := range req.Cells {
		if len(row) != render.FineGridSize {
			writeError(w, http.StatusBadRequest, "row %d has %d cells, want %d", i, len(row), render.FineGridSize)
			return
		}
		copy(cells[i][:], row)
	}

	s.sendBitmap(w, "grid16", render.Downsample16(cells))
}

func (s *Server) sendDrawingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	img, _, err := image.Decode(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid image: %v", err)
		return
	}

	s.sendBitmap(w, "draw", render.FromImage(img, s.cfg.GetDrawThreshold()))
}

func (s *Server) patternsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		patterns, err := s.db.Patterns()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list patterns: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, patterns)

	case http.MethodPost:
		var req struct {
			Name string   `json:"name"`
			Rows [][]bool `json:"rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "pattern name is required")
			return
		}
		bm, err := render.FromRows(req.Rows)
		if err != nil {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		id, err := s.db.SavePattern(req.Name, bm)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save pattern: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "missing id")
			return
		}
		if err := s.db.DeletePattern(id); err != nil {
			if errors.Is(err, db.ErrPatternNotFound) {
				writeError(w, http.StatusNotFound, "%v", err)
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to delete pattern: %v", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) sendPatternHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	p, err := s.db.Pattern(req.ID)
	if err != nil {
		if errors.Is(err, db.ErrPatternNotFound) {
			writeError(w, http.StatusNotFound, "%v", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load pattern: %v", err)
		return
	}

	s.sendBitmap(w, "pattern", p.Rows)
}

func (s *Server) listFramesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	frames, err := s.db.RecentFrames(100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list frames: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, frames)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.status)
}

// sendBitmap pushes a single bitmap to the display, records it, and writes
// the HTTP response.
func (s *Server) sendBitmap(w http.ResponseWriter, source string, bm frame.Bitmap) {
	if err := s.m.SendFrame(bm); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to send frame: %v", err)
		return
	}
	s.logFrame(source, bm)
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// logFrame records a sent frame; logging failures never fail the send.
func (s *Server) logFrame(source string, bm frame.Bitmap) {
	if err := s.db.LogFrame(source, bm); err != nil {
		monitoring.Logf("failed to log %s frame: %v", source, err)
	}
}
