package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/textmill/textmill/internal/cache"
	"github.com/textmill/textmill/internal/convert"
	"github.com/textmill/textmill/internal/history"
	"github.com/textmill/textmill/internal/logger"
	"github.com/textmill/textmill/internal/masking"
	"github.com/textmill/textmill/internal/websocket"
)

// Version is the textmill release version
const Version = "0.3.0"

// conversionRequest is the envelope accepted by every /v1 text endpoint
type conversionRequest struct {
	Input   string            `json:"input"`
	Options conversionOptions `json:"options"`
}

// conversionOptions carries per-request overrides; omitted fields fall
// back to the server's configured defaults
type conversionOptions struct {
	Indent     *int   `json:"indent,omitempty"`
	HasHeaders *bool  `json:"has_headers,omitempty"`
	RootName   string `json:"root_name,omitempty"`
	MaskChar   string `json:"mask_char,omitempty"`
}

type conversionResponse struct {
	Output string `json:"output"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Format string `json:"format,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// resolvedOptions holds options after defaults were applied
type resolvedOptions struct {
	indent     int
	hasHeaders bool
	rootName   string
}

func (o resolvedOptions) cacheKey() string {
	return fmt.Sprintf("indent=%d,headers=%t,root=%s", o.indent, o.hasHeaders, o.rootName)
}

// operation binds an endpoint name to its conversion function
type operation struct {
	name string
	run  func(input string, opts resolvedOptions) (string, error)
}

var (
	opCSVToJSON = operation{"csv-to-json", func(in string, o resolvedOptions) (string, error) {
		return convert.CSVToJSON(in, o.hasHeaders, o.indent)
	}}
	opJSONToCSV = operation{"json-to-csv", func(in string, o resolvedOptions) (string, error) {
		return convert.JSONToCSV(in)
	}}
	opXMLToJSON = operation{"xml-to-json", func(in string, o resolvedOptions) (string, error) {
		return convert.XMLToJSON(in, o.indent)
	}}
	opJSONToXML = operation{"json-to-xml", func(in string, o resolvedOptions) (string, error) {
		return convert.JSONToXML(in, o.rootName, o.indent)
	}}
	opYAMLToJSON = operation{"yaml-to-json", func(in string, o resolvedOptions) (string, error) {
		return convert.YAMLToJSON(in, o.indent)
	}}
	opJSONToYAML = operation{"json-to-yaml", func(in string, o resolvedOptions) (string, error) {
		return convert.JSONToYAML(in, o.indent)
	}}
	opFormatJSON = operation{"format-json", func(in string, o resolvedOptions) (string, error) {
		return convert.FormatJSON(in, o.indent)
	}}
	opFormatYAML = operation{"format-yaml", func(in string, o resolvedOptions) (string, error) {
		return convert.FormatYAML(in, o.indent)
	}}
)

// validator binds a validation endpoint name to its check function
type validator struct {
	name string
	run  func(input string) convert.ValidationResult
}

var (
	opValidateJSON = validator{"validate-json", convert.ValidateJSON}
	opValidateYAML = validator{"validate-yaml", convert.ValidateYAML}
	opValidateXML  = validator{"validate-xml", convert.ValidateXML}
)

// handleOperation serves a single conversion or formatting endpoint
func (s *Server) handleOperation(op operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := requestIDFromContext(r.Context())
		log := s.logger.WithRequestID(requestID).WithOperation(op.name)

		req, ok := s.decodeRequest(w, r, log)
		if !ok {
			return
		}
		opts := s.resolveOptions(req.Options)

		// Result cache lookup
		var cacheKey string
		if s.cache != nil {
			cacheKey = s.cache.Key(op.name, opts.cacheKey(), req.Input)
			if cached, hit := s.cache.Get(r.Context(), cacheKey); hit {
				s.finishOperation(log, op.name, requestID, req.Input, cached.Output, nil, true, start)
				s.writeJSON(w, http.StatusOK, conversionResponse{Output: cached.Output})
				return
			}
		}

		output, err := op.run(req.Input, opts)
		if err != nil {
			s.finishOperation(log, op.name, requestID, req.Input, "", err, false, start)
			s.writeOperationError(w, log, err)
			return
		}

		if s.cache != nil {
			if err := s.cache.Set(r.Context(), cacheKey, &cache.CachedResult{
				Operation: op.name,
				Output:    output,
				CachedAt:  time.Now(),
			}); err != nil {
				log.Warn("Failed to cache result", zap.Error(err))
			}
		}

		s.finishOperation(log, op.name, requestID, req.Input, output, nil, false, start)
		s.writeJSON(w, http.StatusOK, conversionResponse{Output: output})
	}
}

// handleValidate serves a validation endpoint; syntax errors are reported
// in the body, not as HTTP errors
func (s *Server) handleValidate(v validator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := requestIDFromContext(r.Context())
		log := s.logger.WithRequestID(requestID).WithOperation(v.name)

		req, ok := s.decodeRequest(w, r, log)
		if !ok {
			return
		}

		result := v.run(req.Input)
		s.finishOperation(log, v.name, requestID, req.Input, "", nil, false, start)
		s.writeJSON(w, http.StatusOK, result)
	}
}

// maskResponse is the payload returned by the masking endpoint
type maskResponse struct {
	Output        string            `json:"output"`
	Findings      []maskingFinding  `json:"findings"`
	TotalFindings int               `json:"total_findings"`
}

type maskingFinding struct {
	EntityType string `json:"entity_type"`
	Count      int    `json:"count"`
}

// handleMask serves the PII masking endpoint
func (s *Server) handleMask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := requestIDFromContext(r.Context())
	log := s.logger.WithRequestID(requestID).WithOperation("mask")

	req, ok := s.decodeRequest(w, r, log)
	if !ok {
		return
	}

	engine := s.maskingEngine()
	maskChar := byte(0)
	if req.Options.MaskChar != "" {
		if len(req.Options.MaskChar) != 1 || req.Options.MaskChar[0] < '!' || req.Options.MaskChar[0] > '~' {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "mask_char must be a single printable ASCII character",
				Kind:  "bad_request",
			})
			return
		}
		maskChar = req.Options.MaskChar[0]
	}

	var result masking.Result
	if maskChar != 0 {
		result = engine.MaskWith(req.Input, maskChar)
	} else {
		result = engine.Mask(req.Input)
	}

	resp := maskResponse{
		Output:   result.MaskedText,
		Findings: make([]maskingFinding, 0, len(result.Findings)),
	}
	for _, f := range result.Findings {
		resp.Findings = append(resp.Findings, maskingFinding{EntityType: f.EntityType, Count: f.Count})
		resp.TotalFindings += f.Count
	}

	duration := time.Since(start)
	log.Info("Masking complete",
		zap.Int("total_findings", resp.TotalFindings),
		zap.Duration("duration", duration),
	)

	s.recordHistory("mask", req.Input, result.MaskedText, nil, resp.TotalFindings, duration)

	if resp.TotalFindings > 0 {
		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeMasking,
			Timestamp: time.Now(),
			RequestID: requestID,
			Data: websocket.MaskingEvent{
				RequestID:     requestID,
				ClientIP:      clientIP(r),
				Findings:      result.Findings,
				TotalFindings: resp.TotalFindings,
				DurationMS:    float64(duration.Microseconds()) / 1000.0,
			},
		})
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"masking": "enabled",
	}
	if !s.maskingEnabled() {
		components["masking"] = "disabled"
	}
	if s.cache != nil {
		components["cache"] = "connected"
	}
	if s.history != nil {
		components["history"] = "connected"
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"version":    Version,
		"uptime":     time.Since(s.startTime).String(),
		"components": components,
	})
}

// handleInfo handles service information requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	defaults := s.convertDefaults()
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "textmill",
		"version": Version,
		"conversions": []string{
			"csv-to-json", "json-to-csv",
			"xml-to-json", "json-to-xml",
			"yaml-to-json", "json-to-yaml",
		},
		"formatters": []string{"json", "yaml"},
		"validators": []string{"json", "yaml", "xml"},
		"masking": map[string]interface{}{
			"enabled":   s.maskingEnabled(),
			"detectors": s.maskingEngine().EnabledRules(),
		},
		"defaults": map[string]interface{}{
			"indent":    defaults.DefaultIndent,
			"root_name": defaults.DefaultRootName,
		},
		"total_requests": atomic.LoadInt64(&s.totalRequests),
	})
}

// handleStats reports cache, history, and WebSocket hub statistics.
// Sections for disabled backends are omitted.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"websocket":      s.wsHub.GetStats(),
		"total_requests": atomic.LoadInt64(&s.totalRequests),
	}

	if s.cache != nil {
		cacheStats, err := s.cache.GetStats(r.Context())
		if err != nil {
			s.logger.Warn("Failed to read cache stats", zap.Error(err))
		} else {
			stats["cache"] = cacheStats
		}
	}
	if s.history != nil {
		historyStats, err := s.history.GetStats(r.Context())
		if err != nil {
			s.logger.Warn("Failed to read history stats", zap.Error(err))
		} else {
			stats["history"] = historyStats
		}
	}

	s.writeJSON(w, http.StatusOK, stats)
}

// handleHistoryRecent returns the latest usage history entries
func (s *Server) handleHistoryRecent(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{
			Error: "usage history is not enabled",
			Kind:  "not_enabled",
		})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "limit must be an integer between 1 and 500",
				Kind:  "bad_request",
			})
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Warn("Failed to read history entries", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "failed to read usage history",
			Kind:  "internal_error",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleCacheClear drops all cached conversion results
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{
			Error: "result cache is not enabled",
			Kind:  "not_enabled",
		})
		return
	}

	if err := s.cache.Clear(r.Context()); err != nil {
		s.logger.Warn("Failed to clear result cache", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "failed to clear result cache",
			Kind:  "internal_error",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// decodeRequest reads and decodes the request envelope, writing an error
// response on failure
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*conversionRequest, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes))
	if err != nil {
		log.Warn("Failed to read request body", zap.Error(err))
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: "request body too large",
				Kind:  "body_too_large",
			})
		} else {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "failed to read request body",
				Kind:  "bad_request",
			})
		}
		return nil, false
	}

	var req conversionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "request body must be a JSON object with an \"input\" field",
			Kind:  "bad_request",
		})
		return nil, false
	}
	return &req, true
}

// resolveOptions applies configured defaults to omitted request options
func (s *Server) resolveOptions(o conversionOptions) resolvedOptions {
	defaults := s.convertDefaults()
	resolved := resolvedOptions{
		indent:     defaults.DefaultIndent,
		hasHeaders: true,
		rootName:   defaults.DefaultRootName,
	}
	if o.Indent != nil {
		resolved.indent = *o.Indent
	}
	if o.HasHeaders != nil {
		resolved.hasHeaders = *o.HasHeaders
	}
	if o.RootName != "" {
		resolved.rootName = o.RootName
	}
	return resolved
}

// writeOperationError maps conversion errors to HTTP responses
func (s *Server) writeOperationError(w http.ResponseWriter, log *logger.Logger, err error) {
	var parseErr *convert.ParseError
	if errors.As(err, &parseErr) {
		log.Warn("Input parse failure",
			zap.String("format", parseErr.Format),
			zap.Int("line", parseErr.Line),
			zap.Int("column", parseErr.Column),
		)
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  parseErr.Error(),
			Kind:   "parse_error",
			Format: parseErr.Format,
			Line:   parseErr.Line,
			Column: parseErr.Column,
		})
		return
	}

	var formatErr *convert.FormatError
	if errors.As(err, &formatErr) {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: formatErr.Error(),
			Kind:  "format_error",
		})
		return
	}

	log.Warn("Conversion failed", zap.Error(err))
	s.writeJSON(w, http.StatusBadRequest, errorResponse{
		Error: err.Error(),
		Kind:  "bad_request",
	})
}

// finishOperation records metrics, history, and dashboard events for a
// completed request
func (s *Server) finishOperation(log *logger.Logger, op, requestID, input, output string, opErr error, cacheHit bool, start time.Time) {
	duration := time.Since(start)
	atomic.AddInt64(&s.totalRequests, 1)

	errorKind := ""
	if opErr != nil {
		errorKind = errKind(opErr)
	}

	log.Info("Operation complete",
		zap.Bool("success", opErr == nil),
		zap.Bool("cache_hit", cacheHit),
		zap.Int("input_bytes", len(input)),
		zap.Int("output_bytes", len(output)),
		zap.Duration("duration", duration),
	)

	s.recordHistory(op, input, output, opErr, 0, duration)

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeConversion,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.ConversionEvent{
			RequestID:   requestID,
			Operation:   op,
			InputBytes:  len(input),
			OutputBytes: len(output),
			Success:     opErr == nil,
			ErrorKind:   errorKind,
			CacheHit:    cacheHit,
			DurationMS:  float64(duration.Microseconds()) / 1000.0,
		},
	})
}

// recordHistory persists one usage record when the history store is enabled
func (s *Server) recordHistory(op, input, output string, opErr error, findings int, duration time.Duration) {
	if s.history == nil {
		return
	}

	entry := &history.Entry{
		Operation:   op,
		InputHash:   history.HashInput(input),
		InputBytes:  len(input),
		OutputBytes: len(output),
		Success:     opErr == nil,
		ErrorKind:   errKind(opErr),
		Findings:    findings,
		DurationMS:  float64(duration.Microseconds()) / 1000.0,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.history.Record(ctx, entry); err != nil {
			s.logger.Warn("Failed to record history entry", zap.Error(err))
		}
	}()
}

func errKind(err error) string {
	if err == nil {
		return ""
	}
	var parseErr *convert.ParseError
	if errors.As(err, &parseErr) {
		return "parse_error"
	}
	var formatErr *convert.FormatError
	if errors.As(err, &formatErr) {
		return "format_error"
	}
	return "error"
}

// writeJSON writes a JSON response with the given status code
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
