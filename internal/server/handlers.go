package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
	"github.com/valpere/perekod/internal/metrics"
	"github.com/valpere/perekod/internal/orchestrator"
	"github.com/valpere/perekod/internal/splitter"
)

type handler struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

func newHandler(orch *orchestrator.Orchestrator, logger *slog.Logger) *handler {
	return &handler{orch: orch, logger: logger}
}

func (h *handler) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/translate", h.translate).Methods(http.MethodPost)
	api.HandleFunc("/engines", h.engines).Methods(http.MethodGet)
	api.HandleFunc("/engines/check", h.forceCheck).Methods(http.MethodPost)
	api.HandleFunc("/config", h.getConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", h.putConfig).Methods(http.MethodPut)
	return r
}

// translateRequest is the serve-mode translation payload. SourceLang may be
// omitted, in which case the service detects it from the code.
type translateRequest struct {
	SourceLang string            `json:"source_lang,omitempty"`
	TargetLang string            `json:"target_lang"`
	Code       string            `json:"code"`
	Kind       string            `json:"kind,omitempty"`
	Complexity int               `json:"complexity,omitempty"`
	Context    string            `json:"context,omitempty"`
	Lexicon    map[string]string `json:"lexicon,omitempty"`
	Options    map[string]string `json:"options,omitempty"`
}

func (h *handler) translate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if req.Code == "" {
		h.sendError(w, http.StatusBadRequest, "bad_request", "code must not be empty")
		return
	}

	target, err := dialect.Normalize(req.TargetLang)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "bad_request", "target_lang: "+err.Error())
		return
	}

	var source dialect.Language
	if req.SourceLang != "" {
		source, err = dialect.Normalize(req.SourceLang)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "bad_request", "source_lang: "+err.Error())
			return
		}
	} else {
		detected, ok := dialect.Detect(req.Code)
		if !ok {
			h.sendError(w, http.StatusBadRequest, "bad_request", "source_lang missing and language detection was inconclusive")
			return
		}
		source = detected
	}

	kind := engine.KindSnippet
	if req.Kind != "" {
		kind = engine.Kind(req.Kind)
	}
	complexity := req.Complexity
	if complexity <= 0 {
		complexity = splitter.EstimateComplexity(req.Code)
	}

	result, err := h.orch.Translate(r.Context(), engine.Request{
		Unit: engine.Unit{
			Language:   source,
			Code:       req.Code,
			Kind:       kind,
			Complexity: complexity,
		},
		TargetLang: target,
		Lexicon:    req.Lexicon,
		Context:    req.Context,
		Options:    req.Options,
	})
	if err != nil {
		metrics.ObserveTranslation("", time.Since(start), metrics.OutcomeError)
		h.syncEngineGauges()
		h.logger.Warn("translation failed",
			slog.String("source", source.String()),
			slog.String("target", target.String()),
			slog.Any("error", err))
		h.sendError(w, statusForError(err), errorCode(err), err.Error())
		return
	}

	metrics.ObserveTranslation(result.Metadata.Engine, time.Since(start), metrics.OutcomeSuccess)
	if cost, perr := strconv.ParseFloat(result.Metadata.Extra["total_cost"], 64); perr == nil {
		metrics.AddCost(cost)
	}
	h.syncEngineGauges()

	h.writeJSON(w, http.StatusOK, result)
}

// engineStatus is one engine's row in the engines listing.
type engineStatus struct {
	Name    string              `json:"name"`
	Health  orchestrator.Health `json:"health"`
	Metrics engine.Metrics      `json:"metrics"`
}

type enginesResponse struct {
	Available    bool                `json:"available"`
	Capabilities engine.Capabilities `json:"capabilities"`
	Engines      []engineStatus      `json:"engines"`
	Aggregate    engine.Metrics      `json:"aggregate"`
}

func (h *handler) engines(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.enginesSnapshot())
}

func (h *handler) enginesSnapshot() enginesResponse {
	health := h.orch.HealthSnapshot()
	usage := h.orch.EngineMetrics()

	resp := enginesResponse{
		Available:    h.orch.IsAvailable(),
		Capabilities: h.orch.Capabilities(),
		Aggregate:    h.orch.AggregateMetrics(),
	}
	for _, name := range h.orch.Engines() {
		resp.Engines = append(resp.Engines, engineStatus{
			Name:    name,
			Health:  health[name],
			Metrics: usage[name],
		})
		metrics.SetEngineHealth(name, health[name].IsHealthy, health[name].ConsecutiveFailures)
		metrics.SetEngineSuccessRate(name, health[name].SuccessRate)
	}
	return resp
}

func (h *handler) forceCheck(w http.ResponseWriter, r *http.Request) {
	h.orch.ForceHealthCheck(r.Context())
	h.writeJSON(w, http.StatusOK, h.enginesSnapshot())
}

func (h *handler) getConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.orch.Config())
}

func (h *handler) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg orchestrator.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		h.sendError(w, http.StatusBadRequest, "bad_request", "invalid config body: "+err.Error())
		return
	}
	if err := h.orch.SetConfig(cfg); err != nil {
		h.sendError(w, statusForError(err), errorCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, h.orch.Config())
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	available := h.orch.IsAvailable()
	status := http.StatusOK
	state := "ok"
	if !available {
		status = http.StatusServiceUnavailable
		state = "degraded"
	}
	h.writeJSON(w, status, map[string]any{
		"status":    state,
		"available": available,
		"engines":   len(h.orch.Engines()),
	})
}

func (h *handler) syncEngineGauges() {
	health := h.orch.HealthSnapshot()
	for name, hs := range health {
		metrics.SetEngineHealth(name, hs.IsHealthy, hs.ConsecutiveFailures)
		metrics.SetEngineSuccessRate(name, hs.SuccessRate)
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", slog.Any("error", err))
	}
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (h *handler) sendError(w http.ResponseWriter, status int, code, msg string) {
	h.writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

func statusForError(err error) int {
	switch {
	case orchestrator.IsCode(err, orchestrator.ErrCodeNoEngines):
		return http.StatusServiceUnavailable
	case orchestrator.IsCode(err, orchestrator.ErrCodeAllFailed):
		return http.StatusBadGateway
	case orchestrator.IsCode(err, orchestrator.ErrCodeInvalidConfig):
		return http.StatusUnprocessableEntity
	case orchestrator.IsCode(err, orchestrator.ErrCodeUnknownEngine):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	for _, code := range []string{
		orchestrator.ErrCodeNoEngines,
		orchestrator.ErrCodeAllFailed,
		orchestrator.ErrCodeInvalidConfig,
		orchestrator.ErrCodeDuplicateEngine,
		orchestrator.ErrCodeUnknownEngine,
	} {
		if orchestrator.IsCode(err, code) {
			return code
		}
	}
	return "internal"
}
