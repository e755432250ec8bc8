package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmnserve/dmnserve/internal/decision"
	"github.com/dmnserve/dmnserve/internal/domain"
	"github.com/dmnserve/dmnserve/internal/expr"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	loader    *expr.Loader
	evaluator domain.ExpressionEvaluator
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, loader *expr.Loader, evaluator domain.ExpressionEvaluator, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		loader:    loader,
		evaluator: evaluator,
		version:   version,
	}
}

// EvaluateRequest is the request body for POST /tables/{id}/evaluate.
type EvaluateRequest struct {
	Variables map[string]any `json:"variables"`
}

// FailureResponse mirrors domain.Failure for the wire.
type FailureResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// EvaluateResponse is the response for POST /tables/{id}/evaluate.
type EvaluateResponse struct {
	EvaluationID string                    `json:"evaluationId"`
	Outcome      string                    `json:"outcome"`
	Result       any                       `json:"result,omitempty"`
	Failure      *FailureResponse          `json:"failure,omitempty"`
	Metadata     domain.EvaluationMetadata `json:"metadata"`
}

// Evaluate handles POST /tables/{id}/evaluate requests: it loads the named
// table, runs the decision core against the request's variables, and
// persists + publishes an EvaluationRecord of the outcome.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	traceID := GetTraceID(ctx)
	tableID := chi.URLParam(r, "id")

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	stored, err := h.repo.GetTable(ctx, tenantID, tableID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "table not found",
		})
		return
	}

	table, err := h.loader.LoadStoredTable(ctx, stored)
	if err != nil {
		slog.Error("failed to compile table", "table_id", tableID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to compile table",
		})
		return
	}

	evalCtx := &domain.EvalContext{Variables: req.Variables}
	result, evalErr := decision.Evaluate(table, evalCtx, h.evaluator)

	variablesJSON, _ := json.Marshal(req.Variables)
	record := &domain.EvaluationRecord{
		ID:        uuid.New().String(),
		TableID:   tableID,
		Timestamp: time.Now().UTC(),
		Variables: variablesJSON,
		Metadata: domain.EvaluationMetadata{
			TraceID:       traceID,
			TotalMs:       time.Since(start).Milliseconds(),
			EngineVersion: h.version,
		},
	}

	resp := EvaluateResponse{EvaluationID: record.ID}

	if evalErr != nil {
		failure, ok := evalErr.(*domain.Failure)
		if !ok {
			slog.Error("evaluation returned a non-domain error", "table_id", tableID, "error", evalErr)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "evaluation failed",
			})
			return
		}

		record.Outcome = domain.OutcomeFailure
		record.FailureKind = string(failure.Kind)
		record.FailureMessage = failure.Message

		resp.Outcome = domain.OutcomeFailure
		resp.Failure = &FailureResponse{Kind: string(failure.Kind), Message: failure.Message}
		resp.Metadata = record.Metadata

		h.persistAndPublish(ctx, tenantID, record, domain.TopicEvaluationFailed)
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	outcome, payload := resultPayload(result)
	record.Outcome = outcome
	record.Result, _ = json.Marshal(payload)
	record.Metadata.RulesMatched = len(result.Sequence)

	resp.Outcome = outcome
	resp.Result = payload
	resp.Metadata = record.Metadata

	h.persistAndPublish(ctx, tenantID, record, domain.TopicEvaluationCompleted)
	writeJSON(w, http.StatusOK, resp)
}

func resultPayload(res domain.Result) (string, any) {
	switch res.Kind {
	case domain.ResultScalar:
		return domain.OutcomeScalar, res.Scalar
	case domain.ResultMapping:
		return domain.OutcomeMapping, res.Mapping
	case domain.ResultSequence:
		return domain.OutcomeSequence, res.Sequence
	default:
		return domain.OutcomeAbsent, nil
	}
}

func (h *Handler) persistAndPublish(ctx context.Context, tenantID string, record *domain.EvaluationRecord, topic string) {
	if h.repo != nil {
		if err := h.repo.SaveEvaluationRecord(ctx, tenantID, record); err != nil {
			slog.Error("failed to save evaluation record", "id", record.ID, "error", err)
		}
	}
	if h.bus != nil {
		payload, err := json.Marshal(record)
		if err != nil {
			slog.Error("failed to marshal evaluation record", "id", record.ID, "error", err)
			return
		}
		if err := h.bus.Publish(ctx, tenantID, topic, payload); err != nil {
			slog.Error("failed to publish evaluation event", "id", record.ID, "topic", topic, "error", err)
		}
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// GetEvaluationRecord retrieves an evaluation audit record by ID.
func (h *Handler) GetEvaluationRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "evaluation id is required",
		})
		return
	}

	rec, err := h.repo.GetEvaluationRecord(ctx, tenantID, id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "evaluation record not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// CreateTableRequest is the request body for POST /tables.
type CreateTableRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Version     string          `json:"version"`
	HitPolicy   string          `json:"hitPolicy"`
	Aggregator  string          `json:"aggregator,omitempty"`
	Definition  json.RawMessage `json:"definition"`
	Enabled     bool            `json:"enabled"`
}

// CreateTable decodes, compiles (to validate), and persists a decision
// table definition.
func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id and name are required",
		})
		return
	}

	table := &domain.StoredTable{
		ID:          req.ID,
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
		HitPolicy:   req.HitPolicy,
		Aggregator:  req.Aggregator,
		Definition:  []byte(req.Definition),
		Enabled:     req.Enabled,
	}

	if _, err := h.loader.LoadStoredTable(ctx, table); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid table definition: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveTable(ctx, tenantID, table); err != nil {
		slog.Error("failed to save table", "id", table.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save table",
		})
		return
	}

	slog.Info("table created", "id", table.ID, "name", table.Name)
	writeJSON(w, http.StatusCreated, table)
}

// GetTable retrieves a decision table definition by ID.
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	tableID := chi.URLParam(r, "id")

	table, err := h.repo.GetTable(ctx, tenantID, tableID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "table not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, table)
}

// ListTables returns every enabled decision table for the caller's tenant.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	tables, err := h.repo.ListTables(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list tables", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list tables",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tables": tables,
		"count":  len(tables),
	})
}

// DeleteTable soft-deletes a decision table.
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	tableID := chi.URLParam(r, "id")

	if err := h.repo.DeleteTable(ctx, tenantID, tableID); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "table not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "table deleted",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
