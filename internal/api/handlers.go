package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/FocuswithJustin/colordep/core/annotation"
	"github.com/FocuswithJustin/colordep/core/colorize"
	"github.com/FocuswithJustin/colordep/core/diagram"
	"github.com/FocuswithJustin/colordep/core/errors"
	"github.com/FocuswithJustin/colordep/core/palette"
	"github.com/FocuswithJustin/colordep/internal/logging"
	"github.com/FocuswithJustin/colordep/internal/output"
)

// Version is reported by /health and /.
var Version = "dev"

// Response headers describing a diagram.
const (
	HeaderColorizeStatus = "X-Colorize-Status"
	HeaderDiagramMode    = "X-Diagram-Mode"
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Clients int    `json:"clients"`
}

// PaletteTable is one kind of the color policy.
type PaletteTable struct {
	Colors   map[string]string `json:"colors"`
	Fallback string            `json:"fallback"`
}

// PaletteInfo is the /palette response.
type PaletteInfo struct {
	POS        PaletteTable `json:"pos"`
	Dependency PaletteTable `json:"dep"`
}

// RenderRequest asks for one diagram. The sentence is given either as an
// annotation object or as CoNLL-U text; only the first CoNLL-U sentence is
// used.
type RenderRequest struct {
	Mode     string               `json:"mode"`
	Title    string               `json:"title,omitempty"`
	Compact  bool                 `json:"compact,omitempty"`
	Lang     string               `json:"lang,omitempty"`
	RTL      bool                 `json:"rtl,omitempty"`
	Sentence *annotation.Sentence `json:"sentence,omitempty"`
	CoNLLU   string               `json:"conllu,omitempty"`
}

// RenderResult is the JSON form of a rendered diagram.
type RenderResult struct {
	Mode     string `json:"mode"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	ETag     string `json:"etag"`
	FileName string `json:"file_name"`
	Document string `json:"document"`
}

var startTime = time.Now()

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "colordep API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET /palette",
			"POST /render",
			"POST /colorize",
			"WS /ws",
		},
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	clients := 0
	if GlobalHub != nil {
		clients = GlobalHub.ClientCount()
	}
	respond(w, http.StatusOK, HealthInfo{
		Status:  "healthy",
		Version: Version,
		Uptime:  time.Since(startTime).String(),
		Clients: clients,
	})
}

func handlePalette(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	p := ServerConfig.policy()
	respond(w, http.StatusOK, PaletteInfo{
		POS:        PaletteTable{Colors: p.Colors(palette.POS), Fallback: p.Fallback(palette.POS)},
		Dependency: PaletteTable{Colors: p.Colors(palette.Dependency), Fallback: p.Fallback(palette.Dependency)},
	})
}

// handleRender answers with the HTML page, or with a RenderResult when
// called with ?format=json.
func handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	var req RenderRequest
	body := http.MaxBytesReader(w, r.Body, ServerConfig.maxBody())
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondBodyError(w, err, "Request body must be a JSON render request")
		return
	}

	res, err := renderRequest(r.Context(), req)
	if err != nil {
		respondErr(w, err)
		return
	}

	etag := etagFor(res)
	w.Header().Set("ETag", etag)
	w.Header().Set(HeaderColorizeStatus, res.Colorize.Status.String())
	w.Header().Set(HeaderDiagramMode, string(res.Mode))

	BroadcastRendered(res, etag)

	if r.URL.Query().Get("format") == "json" {
		respond(w, http.StatusOK, newRenderResult(res, etag))
		return
	}
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, res.Document)
}

func renderRequest(ctx context.Context, req RenderRequest) (*diagram.Result, error) {
	mode, err := diagram.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	s, err := req.sentence()
	if err != nil {
		return nil, err
	}
	return diagram.Render(ctx, mode, s, diagram.Options{
		Policy:  ServerConfig.policy(),
		Title:   req.Title,
		Compact: req.Compact,
		Lang:    req.Lang,
		RTL:     req.RTL,
	})
}

func (req RenderRequest) sentence() (*annotation.Sentence, error) {
	s := req.Sentence
	if s == nil && strings.TrimSpace(req.CoNLLU) != "" {
		sentences, err := annotation.ReadCoNLLU(strings.NewReader(req.CoNLLU))
		if err != nil {
			return nil, err
		}
		if len(sentences) > 0 {
			s = sentences[0]
		}
	}
	if s == nil {
		return nil, errors.NewValidation("sentence", "request has no sentence")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func etagFor(res *diagram.Result) string {
	return `"` + output.Digest([]byte(res.Document)) + `"`
}

func newRenderResult(res *diagram.Result, etag string) RenderResult {
	doc := []byte(res.Document)
	return RenderResult{
		Mode:     string(res.Mode),
		Title:    res.Title,
		Status:   res.Colorize.Status.String(),
		ETag:     etag,
		FileName: output.FileName(string(res.Mode), doc),
		Document: res.Document,
	}
}

// handleColorize recolors a posted SVG. Markup that cannot be recolored is
// echoed back with X-Colorize-Status: degraded.
func handleColorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, ServerConfig.maxBody()))
	if err != nil {
		respondBodyError(w, err, "Request body could not be read")
		return
	}

	res := colorize.New(ServerConfig.policy()).Colorize(string(data))
	if res.Degraded() {
		logging.ColorizeDegraded(r.Context(), res.Reason, "source", "api")
	}
	w.Header().Set(HeaderColorizeStatus, res.Status.String())
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, res.Markup)
}

// respondBodyError answers 413 when the body hit the size limit and 400
// for anything else.
func respondBodyError(w http.ResponseWriter, err error, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large")
		return
	}
	respondError(w, http.StatusBadRequest, "INVALID_REQUEST", message)
}

// respondErr maps typed errors onto status codes.
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		respondError(w, http.StatusBadRequest, "UNSUPPORTED", err.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		respondError(w, http.StatusUnprocessableEntity, "INVALID_SENTENCE", err.Error())
	default:
		logging.Error("render failed", "error", err)
		respondError(w, http.StatusInternalServerError, "RENDER_FAILED", "Diagram could not be rendered")
	}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
