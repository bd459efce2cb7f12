package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	fail map[string]bool
}

func (s *recordingSender) Send(ctx context.Context, token string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[token] {
		return errors.New("unregistered token")
	}
	s.sent = append(s.sent, token+"/"+string(msg.Kind))
	return nil
}

func (s *recordingSender) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func staticRecipients(tokens ...string) Recipients {
	return func(ctx context.Context, userID string) ([]string, error) {
		return tokens, nil
	}
}

var base = time.Unix(1700000000, 0)

func TestGate_Cooldowns(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	gate := NewGate(GateConfig{
		Sender:     sender,
		Recipients: staticRecipients("tok-1"),
		Logger:     zap.NewNop(),
	})

	require.NoError(t, gate.Fire(ctx, "s1", "", KindLookAway, base))
	assert.ErrorIs(t, gate.Fire(ctx, "s1", "", KindLookAway, base.Add(29*time.Second)), ErrCooldown)
	assert.NoError(t, gate.Fire(ctx, "s1", "", KindLookAway, base.Add(30*time.Second)))

	require.NoError(t, gate.Fire(ctx, "s1", "", KindBlink, base))
	assert.ErrorIs(t, gate.Fire(ctx, "s1", "", KindBlink, base.Add(9*time.Second)), ErrCooldown)
	assert.NoError(t, gate.Fire(ctx, "s1", "", KindBlink, base.Add(10*time.Second)))

	require.NoError(t, gate.Fire(ctx, "s1", "", KindDistance, base))
	assert.ErrorIs(t, gate.Fire(ctx, "s1", "", KindDistance, base.Add(20*time.Second)), ErrCooldown)

	assert.Equal(t, []string{
		"tok-1/look_away", "tok-1/look_away",
		"tok-1/blink", "tok-1/blink",
		"tok-1/distance",
	}, sender.Sent())
}

func TestGate_ScopesAreIndependent(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(GateConfig{})

	require.NoError(t, gate.Fire(ctx, "a", "", KindBlink, base))
	assert.NoError(t, gate.Fire(ctx, "b", "", KindBlink, base))
	assert.ErrorIs(t, gate.Fire(ctx, "a", "", KindBlink, base.Add(time.Second)), ErrCooldown)
}

func TestGate_SendFailuresAreSwallowed(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{fail: map[string]bool{"bad": true}}
	gate := NewGate(GateConfig{
		Sender:     sender,
		Recipients: staticRecipients("bad", "good"),
		Logger:     zap.NewNop(),
	})

	require.NoError(t, gate.Fire(ctx, "s", "", KindDistance, base))
	assert.Equal(t, []string{"good/distance"}, sender.Sent())

	// The cooldown was stamped even though one recipient failed.
	assert.ErrorIs(t, gate.Fire(ctx, "s", "", KindDistance, base.Add(time.Second)), ErrCooldown)
}

func TestGate_RecipientsForUser(t *testing.T) {
	ctx := context.Background()
	sender := &recordingSender{}
	var gotUser string
	gate := NewGate(GateConfig{
		Sender: sender,
		Recipients: func(ctx context.Context, userID string) ([]string, error) {
			gotUser = userID
			return []string{"phone"}, nil
		},
	})

	require.NoError(t, gate.Fire(ctx, "s", "user-7", KindBlink, base))
	assert.Equal(t, "user-7", gotUser)
	assert.Equal(t, []string{"phone/blink"}, sender.Sent())
}

func TestGate_RecipientsError(t *testing.T) {
	gate := NewGate(GateConfig{
		Sender: &recordingSender{},
		Recipients: func(ctx context.Context, userID string) ([]string, error) {
			return nil, errors.New("db down")
		},
	})

	err := gate.Fire(context.Background(), "s", "", KindBlink, base)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCooldown)
}

func TestGate_UnknownKind(t *testing.T) {
	gate := NewGate(GateConfig{})
	assert.Error(t, gate.Fire(context.Background(), "s", "", Kind("yawn"), base))
}

func TestGate_CustomCooldown(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(GateConfig{Cooldowns: map[Kind]time.Duration{KindBlink: time.Minute}})

	require.NoError(t, gate.Fire(ctx, "s", "", KindBlink, base))
	assert.ErrorIs(t, gate.Fire(ctx, "s", "", KindBlink, base.Add(30*time.Second)), ErrCooldown)
	assert.NoError(t, gate.Fire(ctx, "s", "", KindLookAway, base))
}

func TestMemoryStore_Forget(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	_, err := m.Acquire(ctx, "old", time.Second, base)
	require.NoError(t, err)
	_, err = m.Acquire(ctx, "new", time.Second, base.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, m.Forget(time.Minute, base.Add(time.Hour)))
	ok, err := m.Acquire(ctx, "new", time.Minute, base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })
	return mr, NewRedisStore(client)
}

func TestRedisStore_Acquire(t *testing.T) {
	ctx := context.Background()
	mr, store := setupTestRedis(t)

	ok, err := store.Acquire(ctx, "s1:blink", 10*time.Second, base)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "s1:blink", 10*time.Second, base.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists(RedisKeyPrefix+"s1:blink"))
	ttl := mr.TTL(RedisKeyPrefix + "s1:blink")
	assert.True(t, ttl > 0 && ttl <= 10*time.Second, "unexpected ttl %s", ttl)

	mr.FastForward(11 * time.Second)

	ok, err = store.Acquire(ctx, "s1:blink", 10*time.Second, base.Add(11*time.Second))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_SharedAcrossGates(t *testing.T) {
	ctx := context.Background()
	_, store := setupTestRedis(t)

	first := NewGate(GateConfig{Store: store})
	second := NewGate(GateConfig{Store: store})

	require.NoError(t, first.Fire(ctx, "s", "", KindLookAway, base))
	assert.ErrorIs(t, second.Fire(ctx, "s", "", KindLookAway, base.Add(time.Second)), ErrCooldown)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, store := setupTestRedis(t)
	mr.Close()

	_, err := store.Acquire(context.Background(), "k", time.Second, base)
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, NewLogSender(zap.NewNop()).Send(context.Background(), "abcdefghijkl", Messages[KindBlink]))
	assert.Equal(t, "abcdefgh***", redact("abcdefghijkl"))
	assert.Equal(t, "***", redact("short"))
}
