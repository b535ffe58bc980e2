// Package api exposes the HTTP interface over the decode pipeline:
// latest-sample reads, CoP output variants, region aggregates, persisted
// observations, and serial configuration.
package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gaitworks/plantar.report/internal/db"
	"github.com/gaitworks/plantar.report/internal/gait"
	"github.com/gaitworks/plantar.report/internal/insole"
	"github.com/gaitworks/plantar.report/internal/serialmux"
	"github.com/gaitworks/plantar.report/internal/units"
	"github.com/gaitworks/plantar.report/internal/version"
)

// ANSI escape codes for request log colouring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	m       serialmux.SerialMuxInterface
	db      *db.DB
	decoder *insole.Decoder
}

func NewServer(m serialmux.SerialMuxInterface, database *db.DB, decoder *insole.Decoder) *Server {
	return &Server{
		m:       m,
		db:      database,
		decoder: decoder,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/sample", s.showSample)
	mux.HandleFunc("/point", s.showPoint)
	mux.HandleFunc("/cop", s.showCoP)
	mux.HandleFunc("/region", s.showRegion)
	mux.HandleFunc("/observations", s.listObservations)
	mux.HandleFunc("/stats", s.showStats)
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/config", s.showConfig)
	mux.HandleFunc("/serial-configs", s.serialConfigsHandler)
	mux.HandleFunc("/serial-configs/", s.serialConfigHandler)
	mux.HandleFunc("/live", s.liveHandler)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) showSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.writeJSON(w, s.decoder.Current())
}

func (s *Server) showPoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'n' parameter")
		return
	}

	// Out-of-range positions read as 0 rather than erroring; the
	// position count is a hardware constant the caller may probe.
	s.writeJSON(w, map[string]any{
		"position": n,
		"value":    s.decoder.PointValue(n),
	})
}

func (s *Server) showCoP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	scale := r.URL.Query().Get("scale")
	if scale == "" {
		scale = units.Normalized
	}
	if !units.IsValid(scale) {
		s.writeJSONError(w, http.StatusBadRequest,
			fmt.Sprintf("Invalid 'scale' parameter: expected one of %s", units.ValidScalesString()))
		return
	}

	sample := s.decoder.Current()
	cop := gait.ComputeCoP(sample)

	s.writeJSON(w, map[string]any{
		"x":         cop.X,
		"y":         cop.Y,
		"pressure":  units.ConvertPressure(cop.Pressure, scale),
		"scale":     scale,
		"foot_side": sample.Side.String(),
		"display":   cop.StringWithPressure(),
	})
}

func (s *Server) showRegion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	points := s.decoder.Current().Points
	q := r.URL.Query()

	if name := q.Get("name"); name != "" {
		region, err := gait.RegionByName(name)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, map[string]any{
			"region": region.String(),
			"stats":  gait.AggregateRegion(points, region),
		})
		return
	}

	// Ad hoc {start, end, step} descriptor over zero-based indices.
	pr := gait.PointRange{Step: 1}
	var err error
	if pr.Start, err = strconv.Atoi(q.Get("start")); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'start' parameter")
		return
	}
	if pr.End, err = strconv.Atoi(q.Get("end")); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid 'end' parameter")
		return
	}
	if step := q.Get("step"); step != "" {
		if pr.Step, err = strconv.Atoi(step); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'step' parameter")
			return
		}
	}
	if err := pr.Validate(); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, map[string]any{
		"range": pr,
		"stats": gait.Aggregate(points, pr),
	})
}

func (s *Server) listObservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	observations, err := s.db.Observations(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve observations: %v", err))
		return
	}
	if observations == nil {
		observations = []db.Observation{}
	}
	s.writeJSON(w, observations)
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	days := 1
	if d := r.URL.Query().Get("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed < 1 {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid 'days' parameter")
			return
		}
		days = parsed
	}

	rollup, err := s.db.ObservationRollup(days)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}

	valid, checksumErrors := s.decoder.Stats()
	s.writeJSON(w, map[string]any{
		"valid_frames":    valid,
		"checksum_errors": checksumErrors,
		"daily":           rollup,
	})
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command, err := hex.DecodeString(r.FormValue("command"))
	if err != nil || len(command) == 0 {
		http.Error(w, "Command must be non-empty hex", http.StatusBadRequest)
		return
	}

	if err := s.m.SendCommand(command); err != nil {
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.writeJSON(w, map[string]any{
		"version":     version.Version,
		"point_count": insole.PointCount,
		"frame_size":  insole.FrameSize,
		"regions": func() []string {
			names := make([]string, len(gait.Regions))
			for i, region := range gait.Regions {
				names[i] = region.String()
			}
			return names
		}(),
	})
}

func (s *Server) serialConfigsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		configs, err := s.db.SerialConfigs()
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to retrieve serial configs: %v", err))
			return
		}
		if configs == nil {
			configs = []db.SerialConfig{}
		}
		s.writeJSON(w, configs)

	case http.MethodPost:
		var c db.SerialConfig
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if c.Name == "" || c.PortPath == "" {
			s.writeJSONError(w, http.StatusBadRequest, "name and port_path are required")
			return
		}
		// Validate through the same normalization the mux uses at open.
		opts := serialmux.PortOptions{
			BaudRate: c.BaudRate, DataBits: c.DataBits,
			StopBits: c.StopBits, Parity: c.Parity,
		}
		if _, err := opts.Normalize(); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		id, err := s.db.CreateSerialConfig(&c)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to create serial config: %v", err))
			return
		}
		w.WriteHeader(http.StatusCreated)
		s.writeJSON(w, map[string]int64{"id": id})

	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// serialConfigHandler serves /serial-configs/{id}.
func (s *Server) serialConfigHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/serial-configs/"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "Invalid serial config ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.db.SerialConfig(id)
		if err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to retrieve serial config: %v", err))
			return
		}
		if c == nil {
			s.writeJSONError(w, http.StatusNotFound, "Serial config not found")
			return
		}
		s.writeJSON(w, c)

	case http.MethodPut:
		var c db.SerialConfig
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		c.ID = id
		opts := serialmux.PortOptions{
			BaudRate: c.BaudRate, DataBits: c.DataBits,
			StopBits: c.StopBits, Parity: c.Parity,
		}
		if _, err := opts.Normalize(); err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.db.UpdateSerialConfig(&c); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to update serial config: %v", err))
			return
		}
		s.writeJSON(w, map[string]string{"status": "updated"})

	case http.MethodDelete:
		if err := s.db.DeleteSerialConfig(id); err != nil {
			s.writeJSONError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to delete serial config: %v", err))
			return
		}
		s.writeJSON(w, map[string]string{"status": "deleted"})

	default:
		s.writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
