package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"samarth-go/internal/models"
	"samarth-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// MaxBodySize caps question request bodies
const MaxBodySize = 64 * 1024

type Handler struct {
	Engine *service.Engine
}

func NewHandler(engine *service.Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)
	r.Get("/api/datasets", h.ListDatasets)
	r.Get("/api/datasets/{id}", h.GetDataset)
	r.Post("/api/parse", h.Parse)
	r.Post("/api/feasibility", h.Feasibility)
	r.Post("/api/ask", h.Ask)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ListDatasets summarises every loaded dataset
func (h *Handler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	reg := h.Engine.Registry
	resp := models.DatasetsResponse{
		Datasets:     []models.DatasetStatus{},
		Subdivisions: len(reg.Subdivisions()),
		Districts:    len(reg.Districts()),
	}
	for _, ds := range reg.Datasets() {
		d := ds.Descriptor
		resp.Datasets = append(resp.Datasets, models.DatasetStatus{
			ID:          d.ID,
			Kind:        d.Kind,
			Granularity: d.Granularity,
			Years:       d.Temporal.String(),
			CropType:    d.CropType,
			Records:     d.Records,
			NullPct:     d.NullPct,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDataset returns the full descriptor of one dataset
func (h *Handler) GetDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ds, ok := h.Engine.Registry.Dataset(id)
	if !ok {
		writeError(w, http.StatusNotFound, "dataset not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, ds.Descriptor)
}

// Parse returns the structured intent of a question
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.ParseResponse{Intent: h.Engine.Parser.Parse(req.Question)})
}

// Feasibility parses and checks a question without analysing it
func (h *Handler) Feasibility(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	intent, verdict := h.Engine.Check(req.Question)
	writeJSON(w, http.StatusOK, models.FeasibilityResponse{Intent: intent, Verdict: verdict})
}

// Ask runs the full pipeline. An infeasible question still returns 200
// with its verdict; the result is omitted unless a rewrite was requested.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeQuestion(w, r)
	if !ok {
		return
	}
	resp, err := h.Engine.Ask(r.Context(), req.Question, req.UseRewrite)
	if err != nil {
		zap.L().Error("ask failed", zap.String("question", req.Question), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeQuestion(w http.ResponseWriter, r *http.Request) (models.QuestionRequest, bool) {
	var req models.QuestionRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		err = eris.Wrap(err, "decode question")
		zap.L().Debug("bad request", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return req, false
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "Question is required")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
