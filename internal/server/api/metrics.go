package api

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/report"
	"github.com/ayusman/drishti/internal/store"
	"github.com/ayusman/drishti/internal/tracker"
)

// MetricsHandler summarizes a user's saved sessions over a time range.
type MetricsHandler struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewMetricsHandler creates a new MetricsHandler with the given store.
func NewMetricsHandler(s *store.Store, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{store: s, logger: logger, now: time.Now}
}

// ServeHTTP handles GET /api/metrics?user_id=&start=&end=. start and end are
// Unix seconds; the range defaults to the last 24 hours.
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	userID := q.Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	end := tracker.Seconds(h.now())
	start := end - (24 * time.Hour).Seconds()
	var ok bool
	if v := q.Get("end"); v != "" {
		if end, ok = parseTime(v); !ok {
			writeError(w, http.StatusBadRequest, "Invalid end")
			return
		}
		start = end - (24 * time.Hour).Seconds()
	}
	if v := q.Get("start"); v != "" {
		if start, ok = parseTime(v); !ok {
			writeError(w, http.StatusBadRequest, "Invalid start")
			return
		}
	}
	if end < start {
		writeError(w, http.StatusBadRequest, "end must not precede start")
		return
	}

	sessions, err := h.store.Sessions().ListOverlapping(userID, start, end)
	if err != nil {
		h.logger.Error("failed to load sessions", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load sessions")
		return
	}

	writeJSON(w, http.StatusOK, report.Compute(sessions, start, end))
}

// parseTime parses Unix seconds, rejecting NaN and infinities.
func parseTime(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
