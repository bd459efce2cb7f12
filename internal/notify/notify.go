// Package notify decides when wellness alerts may be sent and delivers them
// to registered recipient tokens.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Kind identifies an alert type. Each kind has its own cooldown.
type Kind string

const (
	KindLookAway Kind = "look_away"
	KindDistance Kind = "distance"
	KindBlink    Kind = "blink"
)

// Message is a titled notification.
type Message struct {
	Kind  Kind   `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Messages holds the text sent for each kind.
var Messages = map[Kind]Message{
	KindLookAway: {
		Kind:  KindLookAway,
		Title: "Eyes off screen",
		Body:  "You've been looking away from the screen.",
	},
	KindDistance: {
		Kind:  KindDistance,
		Title: "Too close to the screen",
		Body:  "Move back to at least 50 cm from your screen.",
	},
	KindBlink: {
		Kind:  KindBlink,
		Title: "Remember to blink",
		Body:  "You haven't blinked in a while. Blink a few times to rest your eyes.",
	},
}

// DefaultCooldowns are the minimum intervals between two alerts of a kind.
var DefaultCooldowns = map[Kind]time.Duration{
	KindLookAway: 30 * time.Second,
	KindDistance: 30 * time.Second,
	KindBlink:    10 * time.Second,
}

// ErrCooldown is returned by Fire when the kind was sent too recently.
var ErrCooldown = errors.New("notification cooling down")

// Sender delivers one message to one recipient token.
type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

// Recipients returns the tokens an alert for userID should go to.
type Recipients func(ctx context.Context, userID string) ([]string, error)

// GateConfig configures a Gate.
type GateConfig struct {
	Store      CooldownStore
	Sender     Sender
	Recipients Recipients
	Logger     *zap.Logger
	// Cooldowns overrides DefaultCooldowns per kind.
	Cooldowns map[Kind]time.Duration
}

// Gate rate-limits alerts per scope and kind and fans them out to recipients.
type Gate struct {
	store      CooldownStore
	sender     Sender
	recipients Recipients
	logger     *zap.Logger
	cooldowns  map[Kind]time.Duration
}

// NewGate creates a Gate. A nil Store uses an in-process MemoryStore and a nil
// Logger discards output.
func NewGate(cfg GateConfig) *Gate {
	g := &Gate{
		store:      cfg.Store,
		sender:     cfg.Sender,
		recipients: cfg.Recipients,
		logger:     cfg.Logger,
		cooldowns:  make(map[Kind]time.Duration, len(DefaultCooldowns)),
	}
	if g.store == nil {
		g.store = NewMemoryStore()
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	for k, d := range DefaultCooldowns {
		g.cooldowns[k] = d
	}
	for k, d := range cfg.Cooldowns {
		g.cooldowns[k] = d
	}
	return g
}

// Fire sends a kind alert for scope (usually a session ID) unless one was sent
// within the kind's cooldown. The cooldown is stamped before dispatch, and
// failures for individual tokens are logged without failing the call.
func (g *Gate) Fire(ctx context.Context, scope, userID string, kind Kind, now time.Time) error {
	msg, ok := Messages[kind]
	if !ok {
		return fmt.Errorf("unknown notification kind %q", kind)
	}

	acquired, err := g.store.Acquire(ctx, cooldownKey(scope, kind), g.cooldowns[kind], now)
	if err != nil {
		return fmt.Errorf("cooldown check: %w", err)
	}
	if !acquired {
		return ErrCooldown
	}

	if g.sender == nil || g.recipients == nil {
		return nil
	}

	tokens, err := g.recipients(ctx, userID)
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}

	sent := 0
	for _, token := range tokens {
		if err := g.sender.Send(ctx, token, msg); err != nil {
			g.logger.Warn("notification delivery failed",
				zap.String("kind", string(kind)),
				zap.String("scope", scope),
				zap.String("token", redact(token)),
				zap.Error(err))
			continue
		}
		sent++
	}

	g.logger.Info("notification dispatched",
		zap.String("kind", string(kind)),
		zap.String("scope", scope),
		zap.Int("recipients", len(tokens)),
		zap.Int("delivered", sent))
	return nil
}

func cooldownKey(scope string, kind Kind) string {
	return scope + ":" + string(kind)
}

// redact keeps the first few characters of a token for log correlation.
func redact(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
