package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/advice"
)

// Advisor produces eye-care advice. *advice.Advisor implements it.
type Advisor interface {
	Advise(ctx context.Context, m advice.Metrics) (*advice.Advice, error)
}

// AdviceHandler serves POST /api/eye-care.
type AdviceHandler struct {
	advisor Advisor
	logger  *zap.Logger
}

// NewAdviceHandler creates a new AdviceHandler.
func NewAdviceHandler(a Advisor, logger *zap.Logger) *AdviceHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdviceHandler{advisor: a, logger: logger}
}

type adviceRequest struct {
	Metrics advice.Metrics `json:"metrics"`
}

// ServeHTTP implements http.Handler.
func (h *AdviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.advisor.Advise(r.Context(), req.Metrics)
	if err != nil {
		if errors.Is(err, advice.ErrNoMetrics) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("eye-care advice failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to get analysis")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
