package capture

import (
	"fmt"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/sayantanmandal1/eyesonscreen/pkg/signals"
)

// EnvironmentProbe estimates scene lighting and shadow stability from frame
// luminance. It does not attempt secondary-face or device detection; those
// channels stay at zero unless a dedicated object estimator supplies them.
type EnvironmentProbe struct {
	mu       sync.Mutex
	lastMean float64
	lastStd  float64
	primed   bool
}

// NewEnvironmentProbe creates a probe.
func NewEnvironmentProbe() *EnvironmentProbe {
	return &EnvironmentProbe{}
}

// EstimateEnvironment scores the frame: lighting is mean luminance (0-1),
// shadow stability reports how much the luminance distribution shifted
// since the previous frame (0 = stable, 1 = jumping).
func (p *EnvironmentProbe) EstimateEnvironment(jpeg []byte) (signals.EnvironmentScore, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadGrayScale)
	if err != nil {
		return signals.EnvironmentScore{}, fmt.Errorf("capture: decode frame: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return signals.EnvironmentScore{}, fmt.Errorf("capture: empty frame")
	}

	meanMat := gocv.NewMat()
	stdMat := gocv.NewMat()
	defer meanMat.Close()
	defer stdMat.Close()
	gocv.MeanStdDev(img, &meanMat, &stdMat)

	mean := meanMat.GetDoubleAt(0, 0) / 255
	std := stdMat.GetDoubleAt(0, 0) / 255

	p.mu.Lock()
	defer p.mu.Unlock()

	instability := 0.0
	if p.primed {
		instability = math.Min(1, 4*(math.Abs(mean-p.lastMean)+math.Abs(std-p.lastStd)))
	}
	p.lastMean = mean
	p.lastStd = std
	p.primed = true

	return signals.EnvironmentScore{
		Lighting:        mean,
		ShadowStability: instability,
	}, nil
}
