// Package capture decodes client frames and computes frame statistics using GoCV (OpenCV).
package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// ErrDecode is returned when a frame payload is not a decodable image.
var ErrDecode = errors.New("could not decode frame")

// StripDataURL removes a "data:<mime>;base64," prefix (everything up to and
// including the first comma) and base64-decodes the rest. A payload with no
// comma is decoded as-is.
func StripDataURL(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrDecode)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some clients drop the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	return data, nil
}

// DecodeDataURL decodes a data-URL (or bare base64) image into a BGR Mat.
// The caller is responsible for closing the returned Mat.
func DecodeDataURL(s string) (*gocv.Mat, error) {
	data, err := StripDataURL(s)
	if err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("%w: not an image", ErrDecode)
	}
	return &mat, nil
}

// Brightness returns the mean grayscale intensity (0-255) of frame.
func Brightness(frame *gocv.Mat) (float64, error) {
	if frame == nil || frame.Empty() {
		return 0, errors.New("empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	return gray.Mean().Val1, nil
}

// EncodeDataURL JPEG-encodes frame and wraps it in a data URL.
func EncodeDataURL(frame *gocv.Mat) (string, error) {
	if frame == nil || frame.Empty() {
		return "", errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.GetBytes()), nil
}
