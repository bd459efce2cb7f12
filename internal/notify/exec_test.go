package notify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeHook writes an executable shell script into a temp dir and returns its path.
func writeHook(t *testing.T, name, content string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func TestExecSender_Send(t *testing.T) {
	out := filepath.Join(t.TempDir(), "received.json")
	script := writeHook(t, "hook.sh", `#!/bin/sh
cat > "$1"
echo '{"success":true}'
`)

	sender := NewExecSender(5*time.Second, script, out)
	if err := sender.Send(context.Background(), "token-abc", Messages[KindBlink]); err != nil {
		t.Fatalf("Send() failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("hook did not record its input: %v", err)
	}
	var req ExecRequest
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("failed to unmarshal hook input: %v", err)
	}
	if req.Token != "token-abc" {
		t.Errorf("expected token 'token-abc', got %q", req.Token)
	}
	if req.Kind != KindBlink || req.Title != "Remember to blink" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestExecSender_RejectedMessage(t *testing.T) {
	script := writeHook(t, "reject.sh", `#!/bin/sh
echo '{"success":false,"error":"unknown device"}'
`)

	err := NewExecSender(5*time.Second, script).Send(context.Background(), "t", Messages[KindDistance])
	if err == nil {
		t.Fatal("expected error for rejected message")
	}
	if !strings.Contains(err.Error(), "unknown device") {
		t.Errorf("expected hook error in message, got: %v", err)
	}
}

func TestExecSender_Timeout(t *testing.T) {
	script := writeHook(t, "slow.sh", `#!/bin/sh
exec sleep 10
`)

	start := time.Now()
	err := NewExecSender(100*time.Millisecond, script).Send(context.Background(), "t", Messages[KindLookAway])
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout-related error, got: %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Send took %s, expected it to stop near the timeout", time.Since(start))
	}
}

func TestExecSender_InvalidJSON(t *testing.T) {
	script := writeHook(t, "bad.sh", `#!/bin/sh
echo 'not valid json'
`)

	if err := NewExecSender(5*time.Second, script).Send(context.Background(), "t", Messages[KindBlink]); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestExecSender_NonZeroExit(t *testing.T) {
	script := writeHook(t, "exit.sh", `#!/bin/sh
echo "Error: something failed" >&2
exit 1
`)

	err := NewExecSender(5*time.Second, script).Send(context.Background(), "t", Messages[KindBlink])
	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}
	if !strings.Contains(err.Error(), "something failed") {
		t.Errorf("expected stderr in error, got: %v", err)
	}
}
