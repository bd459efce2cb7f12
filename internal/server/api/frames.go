package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/app"
)

// SessionHeader names the session when the body does not.
const SessionHeader = "X-Session-ID"

// MaxFrameBytes caps a frame request body and a websocket frame message.
const MaxFrameBytes = 8 << 20

// FrameMonitor processes client frames. *app.App implements it.
type FrameMonitor interface {
	DetectEyeDirection(ctx context.Context, req app.FrameRequest) (*app.EyeDirectionResult, error)
	DetectBlink(ctx context.Context, req app.FrameRequest) (*app.BlinkResult, error)
	DetectAmbientLight(ctx context.Context, req app.FrameRequest) (*app.AmbientLightResult, error)
	CheckDistance(ctx context.Context, req app.FrameRequest) (*app.DistanceResult, error)
}

// FrameHandler serves the per-frame detection endpoints.
type FrameHandler struct {
	monitor  FrameMonitor
	validate *validator.Validate
	logger   *zap.Logger
}

// NewFrameHandler creates a new FrameHandler.
func NewFrameHandler(m FrameMonitor, v *validator.Validate, logger *zap.Logger) *FrameHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameHandler{monitor: m, validate: v, logger: logger}
}

type frameRequest struct {
	Frame     string `json:"frame" validate:"required"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// EyeDirection handles POST /api/py/detect-eye-direction.
func (h *FrameHandler) EyeDirection(w http.ResponseWriter, r *http.Request) {
	serveFrame(h, w, r, h.monitor.DetectEyeDirection)
}

// Blink handles POST /api/py/detect-blink.
func (h *FrameHandler) Blink(w http.ResponseWriter, r *http.Request) {
	serveFrame(h, w, r, h.monitor.DetectBlink)
}

// AmbientLight handles POST /api/py/detect-ambient-light.
func (h *FrameHandler) AmbientLight(w http.ResponseWriter, r *http.Request) {
	serveFrame(h, w, r, h.monitor.DetectAmbientLight)
}

// Distance handles POST /api/py/check-distance.
func (h *FrameHandler) Distance(w http.ResponseWriter, r *http.Request) {
	serveFrame(h, w, r, h.monitor.CheckDistance)
}

func serveFrame[T any](h *FrameHandler, w http.ResponseWriter, r *http.Request, process func(context.Context, app.FrameRequest) (T, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req frameRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxFrameBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusOK, "Frame too large")
			return
		}
		writeError(w, http.StatusOK, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusOK, app.ErrMissingFrame.Error())
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = r.Header.Get(SessionHeader)
	}

	result, err := process(r.Context(), app.FrameRequest{
		SessionID: sessionID,
		UserID:    req.UserID,
		Frame:     req.Frame,
	})
	if err != nil {
		h.logger.Warn("frame processing failed",
			zap.String("path", r.URL.Path),
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
	writeResult(w, result, err)
}
