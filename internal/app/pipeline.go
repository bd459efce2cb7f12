package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/drishti/internal/capture"
	"github.com/ayusman/drishti/internal/detector"
	"github.com/ayusman/drishti/internal/extract"
	"github.com/ayusman/drishti/internal/tracker"
)

// ErrMissingFrame is returned when a request carries no frame.
var ErrMissingFrame = errors.New("frame is required")

// FrameRequest is one client frame. Frame is a data URL or bare base64 image.
type FrameRequest struct {
	SessionID string
	UserID    string
	Frame     string
}

// EyeDirectionResult is the response of DetectEyeDirection.
type EyeDirectionResult struct {
	Direction        extract.Direction         `json:"direction"`
	IsBlinking       bool                      `json:"is_blinking"`
	DirectionChanges []tracker.DirectionChange `json:"direction_changes"`
}

// BlinkResult is the response of DetectBlink.
type BlinkResult struct {
	IsBlinking      bool      `json:"is_blinking"`
	BlinkTimestamps []float64 `json:"blink_timestamps"`
}

// AmbientLightResult is the response of DetectAmbientLight.
type AmbientLightResult struct {
	AmbientLight extract.Light         `json:"amb_light"`
	Timestamp    float64               `json:"timestamp"`
	StateChanges []tracker.LightChange `json:"state_changes"`
}

// DistanceResult is the response of CheckDistance. DistanceCM is nil when
// no distance could be measured.
type DistanceResult struct {
	DistanceCM      *float64                 `json:"distance_cm"`
	DistanceChanges []tracker.DistanceChange `json:"distance_changes"`
}

// AnalysisResult combines every signal of one frame.
type AnalysisResult struct {
	SessionID        string                    `json:"session_id"`
	Timestamp        float64                   `json:"timestamp"`
	FaceDetected     bool                      `json:"face_detected"`
	Direction        extract.Direction         `json:"direction"`
	DirectionChanges []tracker.DirectionChange `json:"direction_changes"`
	IsBlinking       bool                      `json:"is_blinking"`
	BlinkTimestamps  []float64                 `json:"blink_timestamps"`
	AmbientLight     extract.Light             `json:"amb_light"`
	StateChanges     []tracker.LightChange     `json:"state_changes"`
	DistanceCM       *float64                  `json:"distance_cm"`
	DistanceChanges  []tracker.DistanceChange  `json:"distance_changes"`
}

// observation is what one frame yields.
type observation struct {
	face          *detector.FaceLandmarks
	width, height int
	brightness    float64
}

// DetectEyeDirection records the gaze direction of the frame. The blink
// state is reported but not recorded.
func (a *App) DetectEyeDirection(ctx context.Context, req FrameRequest) (*EyeDirectionResult, error) {
	now := a.now()
	obs, err := a.observe(ctx, req.Frame, true, false)
	if err != nil {
		return nil, err
	}

	sess := a.session(req, now)
	direction := extract.EyeDirection(obs.face, obs.width, obs.height)
	changes, alerts := sess.ObserveDirection(direction, now)
	a.dispatch(sess, alerts, now)

	return &EyeDirectionResult{
		Direction:        direction,
		IsBlinking:       extract.IsBlinking(obs.face, obs.width, obs.height),
		DirectionChanges: changes,
	}, nil
}

// DetectBlink records the blink state of the frame.
func (a *App) DetectBlink(ctx context.Context, req FrameRequest) (*BlinkResult, error) {
	now := a.now()
	obs, err := a.observe(ctx, req.Frame, true, false)
	if err != nil {
		return nil, err
	}

	sess := a.session(req, now)
	blinking := extract.IsBlinking(obs.face, obs.width, obs.height)
	timestamps, alerts := sess.ObserveBlink(blinking, now)
	a.dispatch(sess, alerts, now)

	return &BlinkResult{IsBlinking: blinking, BlinkTimestamps: timestamps}, nil
}

// DetectAmbientLight records the light class of the frame. No face detection runs.
func (a *App) DetectAmbientLight(ctx context.Context, req FrameRequest) (*AmbientLightResult, error) {
	now := a.now()
	obs, err := a.observe(ctx, req.Frame, false, true)
	if err != nil {
		return nil, err
	}

	sess := a.session(req, now)
	light := extract.ClassifyLight(obs.brightness)
	changes := sess.ObserveLight(light, now)

	return &AmbientLightResult{
		AmbientLight: light,
		Timestamp:    tracker.Seconds(now),
		StateChanges: changes,
	}, nil
}

// CheckDistance records the viewing distance of the frame.
func (a *App) CheckDistance(ctx context.Context, req FrameRequest) (*DistanceResult, error) {
	now := a.now()
	obs, err := a.observe(ctx, req.Frame, true, false)
	if err != nil {
		return nil, err
	}

	sess := a.session(req, now)
	cm, ok := extract.DistanceCM(obs.face, obs.width, obs.height)
	changes, alerts := sess.ObserveDistance(cm, ok, now)
	a.dispatch(sess, alerts, now)

	result := &DistanceResult{DistanceChanges: changes}
	if ok {
		result.DistanceCM = &cm
	}
	return result, nil
}

// Analyze runs one detection and feeds every tracker of the session with it.
func (a *App) Analyze(ctx context.Context, req FrameRequest) (*AnalysisResult, error) {
	now := a.now()
	obs, err := a.observe(ctx, req.Frame, true, true)
	if err != nil {
		return nil, err
	}

	sess := a.session(req, now)
	direction := extract.EyeDirection(obs.face, obs.width, obs.height)
	blinking := extract.IsBlinking(obs.face, obs.width, obs.height)
	cm, distOK := extract.DistanceCM(obs.face, obs.width, obs.height)
	light := extract.ClassifyLight(obs.brightness)

	directionChanges, directionAlerts := sess.ObserveDirection(direction, now)
	blinks, blinkAlerts := sess.ObserveBlink(blinking, now)
	distanceChanges, distanceAlerts := sess.ObserveDistance(cm, distOK, now)
	lightChanges := sess.ObserveLight(light, now)

	var alerts []tracker.Alert
	alerts = append(alerts, directionAlerts...)
	alerts = append(alerts, blinkAlerts...)
	alerts = append(alerts, distanceAlerts...)
	a.dispatch(sess, alerts, now)

	result := &AnalysisResult{
		SessionID:        sess.ID(),
		Timestamp:        tracker.Seconds(now),
		FaceDetected:     obs.face != nil,
		Direction:        direction,
		DirectionChanges: directionChanges,
		IsBlinking:       blinking,
		BlinkTimestamps:  blinks,
		AmbientLight:     light,
		StateChanges:     lightChanges,
		DistanceChanges:  distanceChanges,
	}
	if distOK {
		result.DistanceCM = &cm
	}
	return result, nil
}

func (a *App) session(req FrameRequest, now time.Time) *tracker.Session {
	sess := a.sessions.Get(req.SessionID, now)
	sess.SetUserID(req.UserID)
	return sess
}

// observe decodes the frame and runs the requested measurements on it.
// The frame is released before returning.
func (a *App) observe(ctx context.Context, dataURL string, landmarks, light bool) (*observation, error) {
	if dataURL == "" {
		return nil, ErrMissingFrame
	}

	frame, err := capture.DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	obs := &observation{width: frame.Cols(), height: frame.Rows()}

	if light {
		obs.brightness, err = capture.Brightness(frame)
		if err != nil {
			return nil, fmt.Errorf("measure brightness: %w", err)
		}
	}

	if landmarks {
		detectCtx, cancel := context.WithTimeout(ctx, a.config.DetectTimeout)
		defer cancel()

		start := time.Now()
		obs.face, err = a.detector.Detect(detectCtx, frame)
		if err != nil {
			a.logger.Warn("face detection failed",
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			return nil, fmt.Errorf("detect face: %w", err)
		}
	}

	return obs, nil
}
