package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/MeKo-Tech/qdocr/internal/pipeline"
	"github.com/MeKo-Tech/qdocr/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:              "healthy",
		Version:             version.Version,
		Time:                time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds:       int64(time.Since(s.started).Seconds()),
		Backend:             s.cfg.Backend,
		RecognizerAvailable: s.cfg.RecognizerAvailable,
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		response.Memory = &HostStats{
			TotalMB:     vm.Total / (1024 * 1024),
			AvailableMB: vm.Available / (1024 * 1024),
			UsedPercent: vm.UsedPercent,
		}
	} else {
		s.logger.Debug("Host memory stats unavailable", "error", err)
	}
	if s.pipeline == nil {
		response.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, response)
}

// extractHandler processes one uploaded image and returns its record.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		s.writeError(w, r, "Pipeline not initialized", http.StatusServiceUnavailable)
		return
	}

	name, data, ok := s.readUpload(w, r)
	if !ok {
		s.metrics.documents.WithLabelValues("http", "bad_request").Inc()
		return
	}

	res, err := s.process(r.Context(), name, data)
	if err != nil {
		s.metrics.observeFailure("http", err)
		s.logger.Error("Extraction failed", "request_id", RequestID(r.Context()), "image", name, "error", err)
		s.writeError(w, r, err.Error(), statusFor(err))
		return
	}
	s.metrics.observeResult("http", res)

	rec := res.Record(wantExplain(r))
	if s.cfg.Validate {
		if err := pipeline.ValidateRecord(&rec); err != nil {
			s.writeError(w, r, fmt.Sprintf("record failed schema check: %v", err), http.StatusInternalServerError)
			return
		}
	}

	format := r.FormValue("format")
	switch strings.ToLower(format) {
	case "", pipeline.FormatJSON:
		s.writeJSON(w, http.StatusOK, rec)
	default:
		out, err := pipeline.Format(&rec, format)
		if err != nil {
			s.writeError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", contentType(format))
		_, _ = io.WriteString(w, out)
	}
}

// readUpload pulls the "image" part out of a multipart request. On failure
// the error response has been written.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	limit := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.writeError(w, r, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeError(w, r, "Failed to parse form data", http.StatusBadRequest)
		}
		return "", nil, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, r, "No image file provided", http.StatusBadRequest)
		return "", nil, false
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		s.writeError(w, r, "File too large", http.StatusRequestEntityTooLarge)
		return "", nil, false
	}
	s.metrics.uploadSize.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, "Failed to read image data", http.StatusBadRequest)
		return "", nil, false
	}
	name := header.Filename
	if name == "" {
		name = "upload"
	}
	return name, data, true
}

// process runs the pipeline under the configured deadline.
func (s *Server) process(ctx context.Context, name string, data []byte) (*pipeline.Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	return s.pipeline.ProcessBytes(ctx, name, data)
}

func wantExplain(r *http.Request) bool {
	v := r.FormValue("explain")
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInput):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorOutcome(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "input_error"
	case http.StatusServiceUnavailable:
		return "model_unavailable"
	case http.StatusGatewayTimeout:
		return "timeout"
	}
	return "error"
}

func contentType(format string) string {
	switch strings.ToLower(format) {
	case pipeline.FormatYAML:
		return "application/yaml"
	case pipeline.FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, message string, status int) {
	s.writeJSON(w, status, ErrorResponse{Error: message, RequestID: RequestID(r.Context())})
}
