package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AjayAlluri/realtime-fraud-detection/internal/abtest"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/domain"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/ensemble"
	"github.com/AjayAlluri/realtime-fraud-detection/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	predictor *ensemble.Predictor
	registry  domain.ModelRegistry
	weights   *ensemble.WeightTable
	abtests   *abtest.Manager
	repo      domain.Repository
	cache     domain.PredictionCache
	bus       domain.EventBus
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(
	predictor *ensemble.Predictor,
	registry domain.ModelRegistry,
	weights *ensemble.WeightTable,
	abtests *abtest.Manager,
	repo domain.Repository,
	cache domain.PredictionCache,
	bus domain.EventBus,
	version string,
) *Handler {
	return &Handler{
		predictor: predictor,
		registry:  registry,
		weights:   weights,
		abtests:   abtests,
		repo:      repo,
		cache:     cache,
		bus:       bus,
		version:   version,
	}
}

// Predict handles POST /predict requests.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if msg := validatePredictRequest(&req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	tx := req.ToTransaction()

	// Route the user through the oldest active experiment, if any.
	testName, strategy, assigned := h.assignVariant(tx.UserID)

	var result *domain.EnsembleResult
	var err error
	if assigned {
		result, err = h.predictor.PredictWithStrategy(ctx, tx, strategy)
	} else {
		result, err = h.predictor.Predict(ctx, tx)
	}
	if err != nil {
		h.writePredictError(w, tx.ID, err)
		return
	}

	if assigned {
		if err := h.abtests.Record(testName, tx.UserID, result); err != nil {
			slog.Warn("ab test record failed", "test", testName, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// BatchPredictRequest is the request body for POST /predict/batch.
type BatchPredictRequest struct {
	Transactions []domain.PredictRequest `json:"transactions"`
}

// BatchItemResult is one entry of a batch response.
type BatchItemResult struct {
	TransactionID string                 `json:"transactionId"`
	Result        *domain.EnsembleResult `json:"result,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// PredictBatch handles POST /predict/batch requests. Items are scored
// sequentially; one failing item does not abort the batch.
func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BatchPredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(req.Transactions) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transactions must not be empty",
		})
		return
	}

	txs := make([]*domain.Transaction, 0, len(req.Transactions))
	for i := range req.Transactions {
		if msg := validatePredictRequest(&req.Transactions[i]); msg != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
		txs = append(txs, req.Transactions[i].ToTransaction())
	}

	results, errs := h.predictor.PredictBatch(ctx, txs)

	items := make([]BatchItemResult, len(txs))
	var failed int
	for i := range txs {
		items[i] = BatchItemResult{TransactionID: txs[i].ID}
		if errs[i] != nil {
			items[i].Error = errs[i].Error()
			failed++
			continue
		}
		items[i].Result = results[i]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": items,
		"total":   len(items),
		"failed":  failed,
	})
}

// GetPrediction handles GET /predictions/{id}.
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.repo.GetPrediction(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prediction not found"})
		return
	}
	if err != nil {
		slog.Error("failed to get prediction", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetTransaction handles GET /transactions/{id}.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := h.repo.GetTransaction(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "transaction not found"})
		return
	}
	if err != nil {
		slog.Error("failed to get transaction", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

// GetTransactionPrediction handles GET /transactions/{id}/prediction,
// returning the latest prediction for a transaction.
func (h *Handler) GetTransactionPrediction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.repo.GetPredictionByTransaction(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no prediction for transaction"})
		return
	}
	if err != nil {
		slog.Error("failed to get prediction by transaction", "txId", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListModels handles GET /models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	infos := h.registry.Models()
	weights := h.weights.Snapshot()

	type modelView struct {
		domain.ModelInfo
		NormalizedWeight float64 `json:"normalizedWeight"`
	}
	views := make([]modelView, len(infos))
	for i, info := range infos {
		views[i] = modelView{ModelInfo: info, NormalizedWeight: weights[info.ID]}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": views})
}

// SetModelEnabled handles PUT /models/{id}.
func (h *Handler) SetModelEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON request body"})
		return
	}

	if err := h.registry.SetEnabled(id, req.Enabled); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modelId": id, "enabled": req.Enabled})
}

// UpdateWeights handles PUT /models/weights.
func (h *Handler) UpdateWeights(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Weights map[string]float64 `json:"weights"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON request body"})
		return
	}
	if len(req.Weights) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weights must not be empty"})
		return
	}

	if err := h.weights.Update(req.Weights); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weights": h.weights.Snapshot()})
}

// CreateABTest handles POST /abtests.
func (h *Handler) CreateABTest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name              string          `json:"name"`
		ControlStrategy   domain.Strategy `json:"controlStrategy"`
		TreatmentStrategy domain.Strategy `json:"treatmentStrategy"`
		Split             float64         `json:"split"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON request body"})
		return
	}

	test, err := h.abtests.Create(req.Name, req.ControlStrategy, req.TreatmentStrategy, req.Split)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, test)
}

// ListABTests handles GET /abtests.
func (h *Handler) ListABTests(w http.ResponseWriter, r *http.Request) {
	tests := h.abtests.List()
	sort.Slice(tests, func(i, j int) bool { return tests[i].CreatedAt.Before(tests[j].CreatedAt) })
	writeJSON(w, http.StatusOK, map[string]any{"tests": tests})
}

// ABTestReport handles GET /abtests/{name}/report.
func (h *Handler) ABTestReport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	report, err := h.abtests.Report(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// StopABTest handles POST /abtests/{name}/stop.
func (h *Handler) StopABTest(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.abtests.Stop(name); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "status": "stopped"})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready: checks downstream dependencies.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := map[string]string{}
	healthy := true

	if h.repo != nil {
		if err := h.repo.Ping(ctx); err != nil {
			checks["repository"] = err.Error()
			healthy = false
		} else {
			checks["repository"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		} else {
			checks["cache"] = "ok"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(ctx); err != nil {
			checks["bus"] = err.Error()
			healthy = false
		} else {
			checks["bus"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"checks": checks})
}

// assignVariant buckets the user into the oldest active experiment, if any,
// and returns the strategy their arm uses.
func (h *Handler) assignVariant(userID string) (testName string, strategy domain.Strategy, assigned bool) {
	if h.abtests == nil || userID == "" {
		return "", "", false
	}
	tests := h.abtests.List()
	sort.Slice(tests, func(i, j int) bool { return tests[i].CreatedAt.Before(tests[j].CreatedAt) })
	for _, t := range tests {
		if !t.Active {
			continue
		}
		_, s, err := h.abtests.Assign(t.Name, userID)
		if err != nil {
			continue
		}
		return t.Name, s, true
	}
	return "", "", false
}

func (h *Handler) writePredictError(w http.ResponseWriter, txID string, err error) {
	if errors.Is(err, ensemble.ErrNoPredictions) || errors.Is(err, ensemble.ErrNoModels) {
		slog.Error("scoring unavailable", "transactionId", txID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no predictions available",
		})
		return
	}
	slog.Error("prediction failed", "transactionId", txID, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "prediction failed",
	})
}

func validatePredictRequest(req *domain.PredictRequest) string {
	if req.TransactionID == "" {
		return "transactionId is required"
	}
	if req.UserID == "" {
		return "userId is required"
	}
	if req.Amount <= 0 {
		return "amount must be positive"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
