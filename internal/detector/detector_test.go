package detector

import (
	"context"
	"errors"
	"image"
	"testing"
)

func TestFaceLandmarks_Pixel(t *testing.T) {
	var face FaceLandmarks
	face.Points[NoseTip] = Point3D{X: 0.5, Y: 0.25}
	face.Points[ForeheadTop] = Point3D{X: 0.999, Y: 0.0015}

	t.Run("scales to frame size", func(t *testing.T) {
		got := face.Pixel(NoseTip, 640, 480)
		if got != image.Pt(320, 120) {
			t.Errorf("expected (320,120), got %v", got)
		}
	})

	t.Run("truncates toward zero", func(t *testing.T) {
		got := face.Pixel(ForeheadTop, 640, 480)
		// 639.36 and 0.72
		if got != image.Pt(639, 0) {
			t.Errorf("expected (639,0), got %v", got)
		}
	})
}

func TestMockDetector(t *testing.T) {
	ctx := context.Background()

	t.Run("no face by default", func(t *testing.T) {
		d := NewMockDetector()
		face, err := d.Detect(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if face != nil {
			t.Errorf("expected no face, got %+v", face)
		}
		if d.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", d.Calls())
		}
	})

	t.Run("returns a copy of the configured face", func(t *testing.T) {
		d := NewMockDetector()
		want := SyntheticFace(DefaultFace)
		d.SetFace(&want)

		got, err := d.Detect(ctx, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil {
			t.Fatal("expected a face")
		}
		got.Points[NoseTip].X = 0
		if want.Points[NoseTip].X == 0 {
			t.Error("mutating the result changed the configured face")
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		d := NewMockDetector()
		face := SyntheticFace(DefaultFace)
		d.SetFace(&face)
		d.SetError(errors.New("boom"))

		got, err := d.Detect(ctx, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if got != nil {
			t.Error("expected nil face alongside error")
		}
	})

	t.Run("close is a no-op", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestSyntheticFace(t *testing.T) {
	face := SyntheticFace(DefaultFace)

	t.Run("eyes are ordered left to right in the image", func(t *testing.T) {
		if face.Points[RightEyeCornerA].X >= face.Points[RightEyeCornerB].X {
			t.Error("first eye corners out of order")
		}
		if face.Points[RightEyeCornerB].X >= face.Points[LeftEyeCornerA].X {
			t.Error("first eye should sit left of second eye")
		}
	})

	t.Run("centered gaze puts pupils mid-eye", func(t *testing.T) {
		mid := (face.Points[LeftEyeCornerA].X + face.Points[LeftEyeCornerB].X) / 2
		if face.Points[LeftPupil].X != mid {
			t.Errorf("expected pupil at %f, got %f", mid, face.Points[LeftPupil].X)
		}
	})

	t.Run("nose below forehead", func(t *testing.T) {
		if face.Points[NoseTip].Y <= face.Points[ForeheadTop].Y {
			t.Error("nose tip should be below forehead top")
		}
	})

	t.Run("zero distance collapses the span", func(t *testing.T) {
		f := SyntheticFace(FaceParams{Gaze: 0.5, EAR: 0.3})
		if f.Points[NoseTip] != f.Points[ForeheadTop] {
			t.Error("expected nose tip to coincide with forehead top")
		}
	})

	t.Run("closer faces have a larger span", func(t *testing.T) {
		near := SyntheticFace(FaceParams{Gaze: 0.5, EAR: 0.3, DistanceCM: 40})
		far := SyntheticFace(FaceParams{Gaze: 0.5, EAR: 0.3, DistanceCM: 120})
		nearSpan := near.Points[NoseTip].Y - near.Points[ForeheadTop].Y
		farSpan := far.Points[NoseTip].Y - far.Points[ForeheadTop].Y
		if nearSpan <= farSpan {
			t.Errorf("near span %f should exceed far span %f", nearSpan, farSpan)
		}
	})
}

func TestJSONFace_ToFaceLandmarks(t *testing.T) {
	t.Run("copies points and score", func(t *testing.T) {
		jf := jsonFace{
			Points: make([]Point3D, NumLandmarks),
			Score:  0.8,
		}
		jf.Points[LeftPupil] = Point3D{X: 0.7, Y: 0.4, Z: -0.01}

		face := jf.toFaceLandmarks()
		if face.Score != 0.8 {
			t.Errorf("expected score 0.8, got %f", face.Score)
		}
		if face.Points[LeftPupil] != jf.Points[LeftPupil] {
			t.Errorf("expected %+v, got %+v", jf.Points[LeftPupil], face.Points[LeftPupil])
		}
	})

	t.Run("short point list leaves remaining landmarks zero", func(t *testing.T) {
		jf := jsonFace{Points: []Point3D{{X: 0.1, Y: 0.2}}}
		face := jf.toFaceLandmarks()
		if face.Points[0].X != 0.1 {
			t.Errorf("expected first point copied, got %+v", face.Points[0])
		}
		if face.Points[RightPupil] != (Point3D{}) {
			t.Errorf("expected zero landmark, got %+v", face.Points[RightPupil])
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	_, err := NewMediaPipeDetector(Config{ScriptPath: "/nonexistent/face_mesh_service.py"})
	if err == nil {
		t.Error("expected error for missing script")
	}
}
