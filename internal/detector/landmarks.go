// Package detector provides face landmark detection interfaces and types.
package detector

import "image"

// Face mesh landmark indices following the MediaPipe convention (refined iris model).
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const (
	NoseTip     = 4
	ForeheadTop = 10

	// First eye in image order (subject's right eye).
	RightEyeCornerA = 33
	RightEyeCornerB = 133
	RightEyeTop1    = 160
	RightEyeTop2    = 158
	RightEyeBottom1 = 153
	RightEyeBottom2 = 144
	RightPupil      = 468

	// Second eye in image order (subject's left eye).
	LeftEyeCornerA = 362
	LeftEyeCornerB = 263
	LeftEyeTop1    = 385
	LeftEyeTop2    = 387
	LeftEyeLidEnd  = 373
	LeftEyeBottom1 = 380
	LeftEyeBottom2 = 374
	LeftPupil      = 473

	NumLandmarks = 478
)

// Point3D represents a normalized landmark position. X and Y are in [0,1]
// relative to the image width and height.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FaceLandmarks represents the 478 face mesh landmarks of one detected face.
type FaceLandmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
	Score  float64               `json:"score"`
}

// Pixel converts landmark i to integer pixel coordinates for a width x height frame.
// Coordinates are truncated toward zero.
func (f *FaceLandmarks) Pixel(i, width, height int) image.Point {
	p := f.Points[i]
	return image.Point{
		X: int(p.X * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}
