package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/store"
)

// TokenHandler registers push notification recipients.
type TokenHandler struct {
	store    *store.Store
	validate *validator.Validate
	logger   *zap.Logger
}

// NewTokenHandler creates a new TokenHandler with the given store.
func NewTokenHandler(s *store.Store, v *validator.Validate, logger *zap.Logger) *TokenHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenHandler{store: s, validate: v, logger: logger}
}

type registerTokenRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Token  string `json:"token" validate:"required"`
}

// ServeHTTP handles POST /api/py/register-token.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing user_id or token")
		return
	}

	if err := h.store.Tokens().Register(req.UserID, req.Token); err != nil {
		h.logger.Error("failed to register token", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to register token")
		return
	}

	h.logger.Info("token registered", zap.String("user_id", req.UserID))
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}
