package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ExecRequest is written as JSON to the hook's stdin.
type ExecRequest struct {
	Token string `json:"token"`
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ExecResponse is read as JSON from the hook's stdout.
type ExecResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ExecSender delivers messages by running an external hook program, one
// process per message.
type ExecSender struct {
	command string
	args    []string
	timeout time.Duration
}

// NewExecSender creates a sender that runs command with args, bounded by timeout.
func NewExecSender(timeout time.Duration, command string, args ...string) *ExecSender {
	return &ExecSender{
		command: command,
		args:    args,
		timeout: timeout,
	}
}

// Send implements Sender.
func (e *ExecSender) Send(ctx context.Context, token string, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	// Hooks that leave children holding stdout must not outlive the timeout.
	cmd.WaitDelay = time.Second

	reqJSON, err := json.Marshal(ExecRequest{
		Token: token,
		Kind:  msg.Kind,
		Title: msg.Title,
		Body:  msg.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal hook request: %w", err)
	}
	cmd.Stdin = bytes.NewReader(reqJSON)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("notify hook timeout after %s", e.timeout)
	}

	if err != nil {
		if s := stderr.String(); s != "" {
			return fmt.Errorf("notify hook failed: %w, stderr: %s", err, s)
		}
		return fmt.Errorf("notify hook failed: %w", err)
	}

	var resp ExecResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return fmt.Errorf("parse hook response: %w, stdout: %s", err, stdout.String())
	}
	if !resp.Success {
		return fmt.Errorf("notify hook rejected message: %s", resp.Error)
	}
	return nil
}
