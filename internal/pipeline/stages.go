package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cinvymoe/ai-system-sub001/internal/imu"
	"github.com/cinvymoe/ai-system-sub001/internal/units"
)

// angleStage derives the heading angle for a sample. It prefers the yaw
// orientation field; a frame without yaw falls back to the tilt direction
// from the accelerometer X/Y components. A frame with neither is dropped.
type angleStage struct{}

func newAngleStage(params map[string]float64) (Stage, error) {
	if len(params) != 0 {
		return nil, fmt.Errorf("angle stage takes no parameters")
	}
	return &angleStage{}, nil
}

func (s *angleStage) Name() string { return "angle" }

func (s *angleStage) Process(sample *Sample) (bool, error) {
	if yaw, ok := sample.Reading.Field(imu.FieldYaw); ok {
		sample.Angle = units.NormalizeDegrees(yaw)
		sample.HasAngle = true
		return true, nil
	}

	ax, okX := sample.Reading.Field(imu.FieldAccelX)
	ay, okY := sample.Reading.Field(imu.FieldAccelY)
	if !okX || !okY {
		return false, fmt.Errorf("reading has neither %s nor %s/%s", imu.FieldYaw, imu.FieldAccelX, imu.FieldAccelY)
	}
	if ax == 0 && ay == 0 {
		// no tilt component, heading is undefined
		return false, nil
	}
	sample.Angle = units.NormalizeDegrees(math.Atan2(ay, ax) * 180 / math.Pi)
	sample.HasAngle = true
	return true, nil
}

// smoothStage replaces the sample angle with the circular mean over a sliding
// window of recent angles. Plain averaging breaks at the 0/360 wrap, so the
// mean is taken over the unit-vector components.
type smoothStage struct {
	window int
	sins   []float64
	coss   []float64
	next   int
	filled int
}

func newSmoothStage(params map[string]float64) (Stage, error) {
	window := 5
	if v, ok := params["window"]; ok {
		if v < 1 || v != math.Trunc(v) {
			return nil, fmt.Errorf("window must be a positive integer, got %v", v)
		}
		window = int(v)
	}
	for name := range params {
		if name != "window" {
			return nil, fmt.Errorf("unknown smooth parameter %q", name)
		}
	}
	return &smoothStage{
		window: window,
		sins:   make([]float64, window),
		coss:   make([]float64, window),
	}, nil
}

func (s *smoothStage) Name() string { return "smooth" }

func (s *smoothStage) Process(sample *Sample) (bool, error) {
	if !sample.HasAngle {
		return false, fmt.Errorf("smooth requires an angle: place it after the angle stage")
	}

	rad := sample.Angle * math.Pi / 180
	s.sins[s.next] = math.Sin(rad)
	s.coss[s.next] = math.Cos(rad)
	s.next = (s.next + 1) % s.window
	if s.filled < s.window {
		s.filled++
	}

	meanSin := stat.Mean(s.sins[:s.filled], nil)
	meanCos := stat.Mean(s.coss[:s.filled], nil)
	sample.Angle = units.NormalizeDegrees(math.Atan2(meanSin, meanCos) * 180 / math.Pi)
	return true, nil
}

// deadbandStage suppresses jitter by dropping samples whose angle moved less
// than the threshold since the last emitted sample. The first sample always
// passes.
type deadbandStage struct {
	threshold float64
	last      float64
	emitted   bool
}

func newDeadbandStage(params map[string]float64) (Stage, error) {
	threshold := 1.0
	if v, ok := params["threshold"]; ok {
		if v < 0 || v > 180 {
			return nil, fmt.Errorf("threshold %v out of range [0, 180]", v)
		}
		threshold = v
	}
	for name := range params {
		if name != "threshold" {
			return nil, fmt.Errorf("unknown deadband parameter %q", name)
		}
	}
	return &deadbandStage{threshold: threshold}, nil
}

func (s *deadbandStage) Name() string { return "deadband" }

func (s *deadbandStage) Process(sample *Sample) (bool, error) {
	if !sample.HasAngle {
		return false, fmt.Errorf("deadband requires an angle: place it after the angle stage")
	}
	if s.emitted && units.AngularDistance(sample.Angle, s.last) < s.threshold {
		return false, nil
	}
	s.last = sample.Angle
	s.emitted = true
	return true, nil
}
