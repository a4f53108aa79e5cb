// Package capture provides gocv-backed adapters for locally-run sessions:
// a webcam frame source and estimators built on OpenCV. Remote sessions
// (browser-side estimation) bypass this package entirely.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrClosed is returned when capturing from a closed webcam.
var ErrClosed = errors.New("capture: webcam closed")

// Webcam is a VideoSource over a local V4L/AVFoundation device.
type Webcam struct {
	mu     sync.Mutex
	device *gocv.VideoCapture
	frame  gocv.Mat
	closed bool
}

// OpenWebcam opens the capture device with the given ID.
func OpenWebcam(deviceID int) (*Webcam, error) {
	device, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("capture: open device %d: %w", deviceID, err)
	}
	return &Webcam{
		device: device,
		frame:  gocv.NewMat(),
	}, nil
}

// CaptureJPEG grabs the current frame and returns it JPEG-encoded.
func (w *Webcam) CaptureJPEG() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if ok := w.device.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, errors.New("capture: failed to read frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, w.frame)
	if err != nil {
		return nil, fmt.Errorf("capture: encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the device. Idempotent.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.frame.Close()
	return w.device.Close()
}
