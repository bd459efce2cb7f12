package detector

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// Frame size the synthetic fixtures are laid out for.
const (
	FixtureWidth  = 640
	FixtureHeight = 480
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	face  *FaceLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector that reports no face.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face returned by Detect. nil means no face.
func (m *MockDetector) SetFace(face *FaceLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.face = face
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured face or error.
func (m *MockDetector) Detect(ctx context.Context, frame *gocv.Mat) (*FaceLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.face == nil {
		return nil, nil
	}
	face := *m.face
	return &face, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// FaceParams describes a synthetic face for SyntheticFace.
type FaceParams struct {
	// Gaze is the pupil position between the eye corners (0..1, 0.5 is centered).
	Gaze float64
	// EAR is the eye aspect ratio of both eyes.
	EAR float64
	// DistanceCM is the viewing distance the forehead-to-nose span should encode.
	DistanceCM float64
}

// DefaultFace is a face looking at the screen with open eyes at a comfortable distance.
var DefaultFace = FaceParams{Gaze: 0.5, EAR: 0.35, DistanceCM: 70}

// SyntheticFace builds landmarks for a FixtureWidth x FixtureHeight frame.
// Only the landmarks used by the signal extractors are placed.
func SyntheticFace(p FaceParams) FaceLandmarks {
	lm := FaceLandmarks{Score: 0.95}

	const (
		eyeY     = 0.5
		eyeWidth = 0.125
	)
	halfOpen := p.EAR * eyeWidth * FixtureWidth / 2 / FixtureHeight

	placeEye := func(cornerA, cornerB, top1, top2, bottom1, bottom2, pupil int, x0 float64) {
		lm.Points[cornerA] = Point3D{X: x0, Y: eyeY}
		lm.Points[cornerB] = Point3D{X: x0 + eyeWidth, Y: eyeY}
		lm.Points[top1] = Point3D{X: x0 + eyeWidth/3, Y: eyeY - halfOpen}
		lm.Points[top2] = Point3D{X: x0 + 2*eyeWidth/3, Y: eyeY - halfOpen}
		lm.Points[bottom1] = Point3D{X: x0 + 2*eyeWidth/3, Y: eyeY + halfOpen}
		lm.Points[bottom2] = Point3D{X: x0 + eyeWidth/3, Y: eyeY + halfOpen}
		lm.Points[pupil] = Point3D{X: x0 + p.Gaze*eyeWidth, Y: eyeY}
	}

	placeEye(RightEyeCornerA, RightEyeCornerB, RightEyeTop1, RightEyeTop2,
		RightEyeBottom1, RightEyeBottom2, RightPupil, 0.25)
	placeEye(LeftEyeCornerA, LeftEyeCornerB, LeftEyeTop1, LeftEyeTop2,
		LeftEyeBottom1, LeftEyeBottom2, LeftPupil, 0.625)
	// The blink landmarks of the second eye measure width against 373.
	lm.Points[LeftEyeLidEnd] = lm.Points[LeftEyeCornerB]

	lm.Points[ForeheadTop] = Point3D{X: 0.5, Y: 0.25}
	if p.DistanceCM > 0 {
		// 8 cm reference span at a 700 px focal length
		span := 8.0 * 700 / p.DistanceCM
		lm.Points[NoseTip] = Point3D{X: 0.5, Y: 0.25 + span/FixtureHeight}
	} else {
		lm.Points[NoseTip] = lm.Points[ForeheadTop]
	}

	return lm
}
