// Package testdata builds synthetic frames for tests that exercise the frame pipeline.
package testdata

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/drishti/internal/capture"
	"github.com/ayusman/drishti/internal/detector"
)

// Frame returns a uniform gray frame of the fixture size. The caller must Close it.
func Frame(brightness float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(brightness, brightness, brightness, 0),
		detector.FixtureHeight, detector.FixtureWidth, gocv.MatTypeCV8UC3,
	)
}

// DataURL returns a uniform frame of the given brightness encoded the way a
// browser client sends it.
func DataURL(brightness float64) (string, error) {
	frame := Frame(brightness)
	defer frame.Close()

	url, err := capture.EncodeDataURL(&frame)
	if err != nil {
		return "", fmt.Errorf("encode fixture frame: %w", err)
	}
	return url, nil
}

// MustDataURL is DataURL for test setup. It panics on error.
func MustDataURL(brightness float64) string {
	url, err := DataURL(brightness)
	if err != nil {
		panic(err)
	}
	return url
}
