package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/app"
	"github.com/ayusman/drishti/internal/server/api"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Analyzer runs every signal on one frame. *app.App implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req app.FrameRequest) (*app.AnalysisResult, error)
}

// LiveHandler streams per-frame analysis over a WebSocket. Clients send
// {"type":"frame","frame":"data:..."} text messages and receive one
// analysis message per frame.
type LiveHandler struct {
	analyzer Analyzer
	logger   *zap.Logger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(a Analyzer, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{analyzer: a, logger: logger}
}

type liveRequest struct {
	Type      string `json:"type"`
	Frame     string `json:"frame"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

type liveAnalysis struct {
	Type string `json:"type"`
	*app.AnalysisResult
}

type liveError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ServeHTTP handles WebSocket upgrade requests. The session defaults to the
// session_id query parameter.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(api.MaxFrameBytes)

	sessionID := r.URL.Query().Get("session_id")
	userID := r.URL.Query().Get("user_id")
	h.logger.Info("live client connected", zap.String("session_id", sessionID))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("live connection closed", zap.Error(err))
			}
			return
		}

		var req liveRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if !h.send(conn, liveError{Type: "error", Error: "invalid message"}) {
				return
			}
			continue
		}
		if req.Type != "" && req.Type != "frame" {
			if !h.send(conn, liveError{Type: "error", Error: "unsupported message type " + req.Type}) {
				return
			}
			continue
		}

		frame := app.FrameRequest{SessionID: sessionID, UserID: userID, Frame: req.Frame}
		if req.SessionID != "" {
			frame.SessionID = req.SessionID
		}
		if req.UserID != "" {
			frame.UserID = req.UserID
		}

		result, err := h.analyzer.Analyze(r.Context(), frame)
		var msg interface{}
		if err != nil {
			msg = liveError{Type: "error", Error: err.Error()}
		} else {
			msg = liveAnalysis{Type: "analysis", AnalysisResult: result}
		}
		if !h.send(conn, msg) {
			return
		}
	}
}

func (h *LiveHandler) send(conn *websocket.Conn, msg interface{}) bool {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn("live write failed", zap.Error(err))
		return false
	}
	return true
}
