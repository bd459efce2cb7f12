package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/app"
	"github.com/ayusman/drishti/internal/detector"
	"github.com/ayusman/drishti/internal/notify"
	"github.com/ayusman/drishti/internal/server"
	"github.com/ayusman/drishti/internal/store"
	"github.com/ayusman/drishti/testdata"
)

type capturedSender struct {
	mu     sync.Mutex
	tokens []string
	kinds  []notify.Kind
}

func (c *capturedSender) Send(ctx context.Context, token string, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, token)
	c.kinds = append(c.kinds, msg.Kind)
	return nil
}

func postFrame(t *testing.T, client *http.Client, url, sessionID, userID, frame string) map[string]interface{} {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"frame": frame, "session_id": sessionID, "user_id": userID})
	resp, err := client.Post(url, "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("POST %s error = %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s status = %d", url, resp.StatusCode)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	if out["status"] == "error" {
		t.Fatalf("POST %s returned error: %v", url, out["error"])
	}
	return out
}

func TestE2E_MonitoringWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	sender := &capturedSender{}
	gate := notify.NewGate(notify.GateConfig{
		Sender:     sender,
		Recipients: app.TokenRecipients(s),
		Logger:     zap.NewNop(),
	})

	mockDetector := detector.NewMockDetector()
	face := detector.SyntheticFace(detector.DefaultFace)
	mockDetector.SetFace(&face)

	application := app.New(app.Config{
		Store:    s,
		Detector: mockDetector,
		Gate:     gate,
		Logger:   zap.NewNop(),
	})
	defer application.Stop()

	srv := server.New(server.Config{Store: s, Monitor: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()
	frame := testdata.MustDataURL(90)

	t.Run("RegisterToken", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/py/register-token", "application/json",
			strings.NewReader(`{"user_id": "u1", "token": "device-token-0001"}`))
		if err != nil {
			t.Fatalf("register token error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("FrameEndpoints", func(t *testing.T) {
		dir := postFrame(t, client, ts.URL+"/api/py/detect-eye-direction", "e2e", "u1", frame)
		if dir["direction"] != "center" {
			t.Errorf("direction = %v, want center", dir["direction"])
		}

		light := postFrame(t, client, ts.URL+"/api/py/detect-ambient-light", "e2e", "u1", frame)
		if light["amb_light"] != "bright" {
			t.Errorf("amb_light = %v, want bright", light["amb_light"])
		}

		dist := postFrame(t, client, ts.URL+"/api/py/check-distance", "e2e", "u1", frame)
		if cm, ok := dist["distance_cm"].(float64); !ok || cm < 60 || cm > 80 {
			t.Errorf("distance_cm = %v, want about 70", dist["distance_cm"])
		}
	})

	t.Run("TooCloseNotifies", func(t *testing.T) {
		near := detector.DefaultFace
		near.DistanceCM = 35
		closeFace := detector.SyntheticFace(near)
		mockDetector.SetFace(&closeFace)

		postFrame(t, client, ts.URL+"/api/py/check-distance", "e2e", "u1", frame)
		application.WaitNotifications()

		sender.mu.Lock()
		defer sender.mu.Unlock()
		if len(sender.kinds) != 1 || sender.kinds[0] != notify.KindDistance {
			t.Fatalf("notifications = %v, want one distance alert", sender.kinds)
		}
		if sender.tokens[0] != "device-token-0001" {
			t.Errorf("token = %s, want device-token-0001", sender.tokens[0])
		}
	})

	t.Run("SaveAndList", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/sessions", "application/json",
			strings.NewReader(`{"session_id": "e2e", "user_id": "u1"}`))
		if err != nil {
			t.Fatalf("save session error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("save status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		if application.SessionCount() != 0 {
			t.Errorf("live sessions = %d, want 0 after save", application.SessionCount())
		}

		resp, err = client.Get(ts.URL + "/api/sessions?user_id=u1")
		if err != nil {
			t.Fatalf("list sessions error = %v", err)
		}
		defer resp.Body.Close()

		var sessions []store.Session
		if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
			t.Fatalf("decode sessions: %v", err)
		}
		if len(sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(sessions))
		}
		if len(sessions[0].DirectionChanges) != 1 || len(sessions[0].LightChanges) != 1 {
			t.Errorf("unexpected saved logs: %+v", sessions[0])
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/metrics?user_id=u1")
		if err != nil {
			t.Fatalf("metrics error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("metrics status = %d", resp.StatusCode)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, _ := client.Get(ts.URL + "/api/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after monitoring")
		}
		resp.Body.Close()
	})
}
