package opencv

import (
	"errors"
	"fmt"

	"github.com/shirts/opencv-tracking/internal/service/ai"
	"gocv.io/x/gocv"
)

// ErrCameraClosed is returned by Camera.Read once the device stopped.
var ErrCameraClosed = errors.New("camera is not open")

// Camera reads frames from a local capture device.
type Camera struct {
	capture *gocv.VideoCapture
	device  int
}

// OpenCamera opens the capture device with the given index.
func OpenCamera(device int) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("error opening capture device %d: %w", device, err)
	}
	return &Camera{capture: capture, device: device}, nil
}

// Read grabs the next frame. A frame with no pixels is returned when the
// device had nothing ready.
func (c *Camera) Read() (ai.Frame, error) {
	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok && !c.capture.IsOpened() {
		mat.Close()
		return nil, fmt.Errorf("device %d: %w", c.device, ErrCameraClosed)
	}
	return &MatFrame{mat: mat}, nil
}

func (c *Camera) Close() error {
	return c.capture.Close()
}

// Window is a named highgui preview window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens the preview window. It must be called from the main thread.
func NewWindow(name string) *Window {
	return &Window{window: gocv.NewWindow(name)}
}

func (w *Window) Show(f ai.Frame) error {
	frame, ok := f.(*MatFrame)
	if !ok {
		return fmt.Errorf("window cannot show frame type %T", f)
	}
	w.window.IMShow(frame.mat)
	return nil
}

func (w *Window) Pump(delayMs int) int {
	if delayMs < 1 {
		delayMs = 1
	}
	return w.window.WaitKey(delayMs)
}

func (w *Window) Close() error {
	return w.window.Close()
}
