// Package extract turns face landmarks and frame statistics into wellness signals:
// gaze direction, blink state, viewing distance and ambient light.
package extract

import (
	"image"
	"math"

	"github.com/ayusman/drishti/internal/detector"
)

// Direction is where the eyes are pointed relative to the screen.
type Direction string

const (
	DirectionLeft    Direction = "left"
	DirectionRight   Direction = "right"
	DirectionCenter  Direction = "center"
	DirectionUnknown Direction = "unknown"
)

// LookingAway reports whether the direction counts as looking away from the screen.
func (d Direction) LookingAway() bool {
	return d != DirectionCenter
}

// DistanceBucket is a coarse viewing distance class.
type DistanceBucket string

const (
	DistanceClose DistanceBucket = "close"
	DistanceMed   DistanceBucket = "med"
	DistanceFar   DistanceBucket = "far"
)

// Light is the ambient light class of a frame.
type Light string

const (
	LightBright Light = "bright"
	LightDark   Light = "dark"
)

// Thresholds and calibration constants.
const (
	// GazeRightBelow and GazeLeftAbove bound the centered pupil ratio.
	GazeRightBelow = 0.45
	GazeLeftAbove  = 0.55

	// EARThreshold is the average eye aspect ratio below which the eyes count as closed.
	EARThreshold = 0.25

	// ReferenceSpanCM is the assumed forehead-to-nose-tip span. Uncalibrated.
	ReferenceSpanCM = 8.0
	// FocalLengthPX is the assumed camera focal length. Uncalibrated.
	FocalLengthPX = 700.0

	CloseBelowCM = 50.0
	FarAboveCM   = 100.0

	// BrightAtLeast is the mean luma (0-255) from which a frame counts as bright.
	BrightAtLeast = 70.0
)

// eye groups the landmark indices used for one eye.
type eye struct {
	inner, outer, pupil int
	// lids are p1..p6 of the eye aspect ratio: p1/p4 horizontal, p2/p6 and p3/p5 vertical pairs.
	lids [6]int
}

var (
	firstEye = eye{
		inner: detector.RightEyeCornerA,
		outer: detector.RightEyeCornerB,
		pupil: detector.RightPupil,
		lids: [6]int{
			detector.RightEyeCornerA, detector.RightEyeTop1, detector.RightEyeTop2,
			detector.RightEyeCornerB, detector.RightEyeBottom1, detector.RightEyeBottom2,
		},
	}
	secondEye = eye{
		inner: detector.LeftEyeCornerA,
		outer: detector.LeftEyeCornerB,
		pupil: detector.LeftPupil,
		lids: [6]int{
			detector.LeftEyeCornerA, detector.LeftEyeTop1, detector.LeftEyeTop2,
			detector.LeftEyeLidEnd, detector.LeftEyeBottom1, detector.LeftEyeBottom2,
		},
	}
)

// PupilRatio returns the horizontal pupil offset between two eye corners.
// The corner span is floored to one pixel.
func PupilRatio(pupil, inner, outer image.Point) float64 {
	width := outer.X - inner.X
	if width == 0 {
		width = 1
	}
	return float64(pupil.X-inner.X) / float64(width)
}

// GazeRatio averages the pupil ratio of both eyes.
func GazeRatio(face *detector.FaceLandmarks, width, height int) float64 {
	ratio := func(e eye) float64 {
		return PupilRatio(
			face.Pixel(e.pupil, width, height),
			face.Pixel(e.inner, width, height),
			face.Pixel(e.outer, width, height),
		)
	}
	return (ratio(firstEye) + ratio(secondEye)) / 2
}

// ClassifyGaze maps an averaged pupil ratio to a direction.
func ClassifyGaze(ratio float64) Direction {
	switch {
	case ratio < GazeRightBelow:
		return DirectionRight
	case ratio > GazeLeftAbove:
		return DirectionLeft
	default:
		return DirectionCenter
	}
}

// EyeDirection returns the gaze direction of face, or DirectionUnknown when face is nil.
func EyeDirection(face *detector.FaceLandmarks, width, height int) Direction {
	if face == nil {
		return DirectionUnknown
	}
	return ClassifyGaze(GazeRatio(face, width, height))
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2|p1-p4|).
// It is 0 when p1 and p4 coincide.
func EyeAspectRatio(p [6]image.Point) float64 {
	horizontal := dist(p[0], p[3])
	if horizontal == 0 {
		return 0
	}
	return (dist(p[1], p[5]) + dist(p[2], p[4])) / (2 * horizontal)
}

// AverageEAR returns the mean eye aspect ratio of both eyes.
func AverageEAR(face *detector.FaceLandmarks, width, height int) float64 {
	ear := func(e eye) float64 {
		var pts [6]image.Point
		for i, idx := range e.lids {
			pts[i] = face.Pixel(idx, width, height)
		}
		return EyeAspectRatio(pts)
	}
	return (ear(firstEye) + ear(secondEye)) / 2
}

// Blinking reports whether an average EAR counts as closed eyes.
func Blinking(avgEAR float64) bool {
	return avgEAR < EARThreshold
}

// IsBlinking reports whether face has its eyes closed. A nil face is not blinking.
func IsBlinking(face *detector.FaceLandmarks, width, height int) bool {
	if face == nil {
		return false
	}
	return Blinking(AverageEAR(face, width, height))
}

// DistanceFromSpan converts a forehead-to-nose pixel span to centimeters.
// ok is false for a zero span.
func DistanceFromSpan(pixels int) (cm float64, ok bool) {
	if pixels == 0 {
		return 0, false
	}
	if pixels < 0 {
		pixels = -pixels
	}
	return ReferenceSpanCM * FocalLengthPX / float64(pixels), true
}

// DistanceCM estimates the viewing distance of face. ok is false when no
// face is given or the landmarks give no vertical span.
func DistanceCM(face *detector.FaceLandmarks, width, height int) (cm float64, ok bool) {
	if face == nil {
		return 0, false
	}
	forehead := face.Pixel(detector.ForeheadTop, width, height)
	nose := face.Pixel(detector.NoseTip, width, height)
	return DistanceFromSpan(nose.Y - forehead.Y)
}

// ClassifyDistance buckets a distance in centimeters.
func ClassifyDistance(cm float64) DistanceBucket {
	switch {
	case cm < CloseBelowCM:
		return DistanceClose
	case cm <= FarAboveCM:
		return DistanceMed
	default:
		return DistanceFar
	}
}

// ClassifyLight maps mean luma to a light class.
func ClassifyLight(brightness float64) Light {
	if brightness >= BrightAtLeast {
		return LightBright
	}
	return LightDark
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
