package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/app"
	"github.com/ayusman/drishti/internal/store"
)

// SessionSaver persists live sessions. *app.App implements it.
type SessionSaver interface {
	SaveSession(ctx context.Context, req app.SaveRequest) (*store.Session, error)
}

// SessionHandler saves live sessions and lists saved ones.
type SessionHandler struct {
	saver    SessionSaver
	store    *store.Store
	validate *validator.Validate
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(saver SessionSaver, s *store.Store, v *validator.Validate, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{saver: saver, store: s, validate: v, logger: logger}
}

type saveSessionRequest struct {
	SessionID string  `json:"session_id"`
	UserID    string  `json:"user_id"`
	StartTime float64 `json:"start_time" validate:"gte=0"`
}

type saveSessionResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// ServeHTTP routes /api/sessions.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.save(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// save handles POST /api/sessions.
func (h *SessionHandler) save(w http.ResponseWriter, r *http.Request) {
	if h.saver == nil {
		writeError(w, http.StatusServiceUnavailable, "Live monitoring is not configured")
		return
	}

	var req saveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_time")
		return
	}
	if req.SessionID == "" {
		req.SessionID = r.Header.Get(SessionHeader)
	}

	saved, err := h.saver.SaveSession(r.Context(), app.SaveRequest{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		StartTime: req.StartTime,
	})
	switch {
	case err == nil:
	case errors.Is(err, app.ErrUnknownSession):
		writeError(w, http.StatusNotFound, "Session not found")
		return
	case errors.Is(err, app.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		h.logger.Error("failed to save session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeJSON(w, http.StatusCreated, saveSessionResponse{
		Message:   "Session saved successfully",
		SessionID: saved.ID,
	})
}

// list handles GET /api/sessions?user_id=, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, app.ErrNoStore.Error())
		return
	}

	sessions, err := h.store.Sessions().ListByUser(userID)
	if err != nil {
		h.logger.Error("failed to list sessions", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}
