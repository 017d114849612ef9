// Package opencv implements the detection engine, capture source, preview
// window and frame codec on top of gocv.
package opencv

import (
	"fmt"
	"image"
	"image/color"

	"github.com/shirts/opencv-tracking/internal/service/ai"
	"gocv.io/x/gocv"
)

// MatFrame is an ai.Frame backed by a gocv.Mat.
type MatFrame struct {
	mat gocv.Mat
}

// NewMatFrame takes ownership of mat.
func NewMatFrame(mat gocv.Mat) *MatFrame {
	return &MatFrame{mat: mat}
}

// Mat exposes the underlying matrix. It stays owned by the frame.
func (f *MatFrame) Mat() gocv.Mat {
	return f.mat
}

func (f *MatFrame) Width() int {
	if f.mat.Empty() {
		return 0
	}
	return f.mat.Cols()
}

func (f *MatFrame) Height() int {
	if f.mat.Empty() {
		return 0
	}
	return f.mat.Rows()
}

func (f *MatFrame) Clone() ai.Frame {
	return &MatFrame{mat: f.mat.Clone()}
}

// Grayscale converts a BGR frame; single channel frames are copied as is.
func (f *MatFrame) Grayscale() (ai.Frame, error) {
	if f.mat.Empty() {
		return nil, fmt.Errorf("%w: cannot convert empty frame", ai.ErrEngineRuntime)
	}
	if f.mat.Channels() == 1 {
		return &MatFrame{mat: f.mat.Clone()}, nil
	}

	gray := gocv.NewMat()
	if err := gocv.CvtColor(f.mat, &gray, gocv.ColorBGRToGray); err != nil {
		gray.Close()
		return nil, fmt.Errorf("%w: failed to convert image to grayscale: %v", ai.ErrEngineRuntime, err)
	}
	return &MatFrame{mat: gray}, nil
}

func (f *MatFrame) Rectangle(r image.Rectangle, c color.RGBA, thickness int) error {
	if err := gocv.Rectangle(&f.mat, r, c, thickness); err != nil {
		return fmt.Errorf("failed to draw rectangle: %v", err)
	}
	return nil
}

func (f *MatFrame) EncodeJPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

func (f *MatFrame) Close() error {
	return f.mat.Close()
}
