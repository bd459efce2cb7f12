package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/capture"
	"github.com/ayusman/drishti/internal/detector"
	"github.com/ayusman/drishti/internal/extract"
	"github.com/ayusman/drishti/internal/notify"
	"github.com/ayusman/drishti/testdata"
)

func TestApp_MissingFrame(t *testing.T) {
	a, _ := newTestApp(t, Config{})
	ctx := context.Background()

	_, err := a.DetectEyeDirection(ctx, FrameRequest{})
	assert.True(t, errors.Is(err, ErrMissingFrame))
	_, err = a.DetectBlink(ctx, FrameRequest{})
	assert.True(t, errors.Is(err, ErrMissingFrame))
	_, err = a.DetectAmbientLight(ctx, FrameRequest{})
	assert.True(t, errors.Is(err, ErrMissingFrame))
	_, err = a.CheckDistance(ctx, FrameRequest{})
	assert.True(t, errors.Is(err, ErrMissingFrame))
	_, err = a.Analyze(ctx, FrameRequest{})
	assert.True(t, errors.Is(err, ErrMissingFrame))

	assert.Equal(t, 0, a.SessionCount(), "failed requests should not create sessions")
}

func TestApp_FramePipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires OpenCV")
	}

	ctx := context.Background()
	bright := testdata.MustDataURL(90)
	dark := testdata.MustDataURL(50)

	newApp := func(t *testing.T, params *detector.FaceParams) (*App, *detector.MockDetector, *clock) {
		mock := detector.NewMockDetector()
		if params != nil {
			face := detector.SyntheticFace(*params)
			mock.SetFace(&face)
		}
		a, c := newTestApp(t, Config{Detector: mock})
		return a, mock, c
	}

	t.Run("eye direction", func(t *testing.T) {
		a, _, c := newApp(t, &detector.DefaultFace)

		res, err := a.DetectEyeDirection(ctx, FrameRequest{SessionID: "s1", Frame: bright})
		require.NoError(t, err)
		assert.Equal(t, extract.DirectionCenter, res.Direction)
		assert.False(t, res.IsBlinking)
		require.Len(t, res.DirectionChanges, 1)
		assert.Equal(t, 0, res.DirectionChanges[0].LookingAway)

		c.Advance(time.Second)
		res, err = a.DetectEyeDirection(ctx, FrameRequest{SessionID: "s1", Frame: bright})
		require.NoError(t, err)
		assert.Len(t, res.DirectionChanges, 1, "same direction should not log")
	})

	t.Run("no face is unknown", func(t *testing.T) {
		a, _, _ := newApp(t, nil)

		res, err := a.DetectEyeDirection(ctx, FrameRequest{Frame: bright})
		require.NoError(t, err)
		assert.Equal(t, extract.DirectionUnknown, res.Direction)
		assert.False(t, res.IsBlinking)
		require.Len(t, res.DirectionChanges, 1)
		assert.Equal(t, 1, res.DirectionChanges[0].LookingAway)

		dist, err := a.CheckDistance(ctx, FrameRequest{Frame: bright})
		require.NoError(t, err)
		assert.Nil(t, dist.DistanceCM)
		assert.Empty(t, dist.DistanceChanges)
	})

	t.Run("eye direction does not record blinks", func(t *testing.T) {
		closed := detector.DefaultFace
		closed.EAR = 0.1
		a, _, _ := newApp(t, &closed)

		res, err := a.DetectEyeDirection(ctx, FrameRequest{SessionID: "s1", Frame: bright})
		require.NoError(t, err)
		assert.True(t, res.IsBlinking)

		sess, ok := a.Sessions().Lookup("s1")
		require.True(t, ok)
		assert.Equal(t, 0, sess.Snapshot().BlinkCount)

		blink, err := a.DetectBlink(ctx, FrameRequest{SessionID: "s1", Frame: bright})
		require.NoError(t, err)
		assert.True(t, blink.IsBlinking)
		assert.Len(t, blink.BlinkTimestamps, 1)
	})

	t.Run("ambient light", func(t *testing.T) {
		a, mock, c := newApp(t, nil)

		res, err := a.DetectAmbientLight(ctx, FrameRequest{SessionID: "s1", Frame: dark})
		require.NoError(t, err)
		assert.Equal(t, extract.LightDark, res.AmbientLight)

		c.Advance(100 * time.Millisecond)
		res, err = a.DetectAmbientLight(ctx, FrameRequest{SessionID: "s1", Frame: bright})
		require.NoError(t, err)
		assert.Equal(t, extract.LightBright, res.AmbientLight)
		require.Len(t, res.StateChanges, 2)
		assert.Equal(t, extract.LightBright, res.StateChanges[1].AmbientLight)

		assert.Equal(t, 0, mock.Calls(), "light detection should not run face detection")
	})

	t.Run("distance and too-close alert", func(t *testing.T) {
		sender := &recordingSender{}
		gate := notify.NewGate(notify.GateConfig{
			Sender: sender,
			Recipients: func(ctx context.Context, userID string) ([]string, error) {
				return []string{"tok"}, nil
			},
			Logger: zap.NewNop(),
		})
		near := detector.DefaultFace
		near.DistanceCM = 40
		mock := detector.NewMockDetector()
		face := detector.SyntheticFace(near)
		mock.SetFace(&face)
		a, _ := newTestApp(t, Config{Detector: mock, Gate: gate})

		res, err := a.CheckDistance(ctx, FrameRequest{SessionID: "s1", UserID: "u1", Frame: bright})
		require.NoError(t, err)
		require.NotNil(t, res.DistanceCM)
		assert.InDelta(t, 40, *res.DistanceCM, 1)
		assert.Empty(t, res.DistanceChanges)

		a.WaitNotifications()
		got := sender.Sent()
		require.Len(t, got, 1)
		assert.Equal(t, notify.KindDistance, got[0].kind)
	})

	t.Run("analyze feeds every tracker", func(t *testing.T) {
		a, mock, _ := newApp(t, &detector.DefaultFace)

		res, err := a.Analyze(ctx, FrameRequest{SessionID: "live", Frame: bright})
		require.NoError(t, err)
		assert.Equal(t, "live", res.SessionID)
		assert.True(t, res.FaceDetected)
		assert.Equal(t, extract.DirectionCenter, res.Direction)
		assert.Equal(t, extract.LightBright, res.AmbientLight)
		require.NotNil(t, res.DistanceCM)
		assert.InDelta(t, 70, *res.DistanceCM, 1)
		assert.Len(t, res.StateChanges, 1)
		assert.Equal(t, 1, mock.Calls())
	})

	t.Run("detector error", func(t *testing.T) {
		a, mock, _ := newApp(t, &detector.DefaultFace)
		mock.SetError(errors.New("service crashed"))

		_, err := a.DetectBlink(ctx, FrameRequest{Frame: bright})
		assert.Error(t, err)
	})

	t.Run("undecodable frame", func(t *testing.T) {
		a, _, _ := newApp(t, nil)

		_, err := a.DetectAmbientLight(ctx, FrameRequest{Frame: "data:image/jpeg;base64,aGVsbG8="})
		assert.True(t, errors.Is(err, capture.ErrDecode))
	})
}
