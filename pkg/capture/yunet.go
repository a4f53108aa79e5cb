package capture

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/sayantanmandal1/eyesonscreen/pkg/engine"
	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// YuNetConfig holds face detector configuration.
type YuNetConfig struct {
	ModelPath        string  // path to the YuNet ONNX model
	ConfidenceThresh float64 // minimum detection score
	InputWidth       int
	InputHeight      int
}

// DefaultYuNetConfig returns production defaults for YuNet.
func DefaultYuNetConfig() YuNetConfig {
	return YuNetConfig{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}

// YuNetFace is a FaceEstimator over OpenCV's FaceDetectorYN. It emits the
// five facial keypoints YuNet produces as normalized landmarks; a full
// face-mesh estimator can replace it behind the same interface.
type YuNetFace struct {
	detector gocv.FaceDetectorYN
	cfg      YuNetConfig
	mu       sync.Mutex // protects inference
}

// NewYuNetFace creates the detector from an ONNX model on disk.
func NewYuNetFace(cfg YuNetConfig) (*YuNetFace, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("capture: model file not found: %s", cfg.ModelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"",
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNetFace{detector: detector, cfg: cfg}, nil
}

// EstimateFace detects the most prominent face in the JPEG frame.
func (y *YuNetFace) EstimateFace(jpeg []byte) (engine.FaceResult, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return engine.FaceResult{}, fmt.Errorf("capture: decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return engine.FaceResult{}, fmt.Errorf("capture: empty frame")
	}

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())
	y.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	y.detector.Detect(img, &faces)

	if faces.Rows() == 0 {
		return engine.FaceResult{}, nil
	}

	// Take the highest-scoring face. YuNet rows are
	// [x, y, w, h, 5 keypoint pairs, score].
	best := 0
	for r := 1; r < faces.Rows(); r++ {
		if faces.GetFloatAt(r, 14) > faces.GetFloatAt(best, 14) {
			best = r
		}
	}

	landmarks := make([]signals.Point3, 0, 5)
	for k := 0; k < 5; k++ {
		landmarks = append(landmarks, signals.Point3{
			X: float64(faces.GetFloatAt(best, 4+k*2)) / imgW,
			Y: float64(faces.GetFloatAt(best, 5+k*2)) / imgH,
		})
	}

	return engine.FaceResult{Detected: true, Landmarks: landmarks}, nil
}

// Close releases the detector.
func (y *YuNetFace) Close() error {
	y.detector.Close()
	return nil
}
