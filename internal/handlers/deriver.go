package handlers

import (
	"fmt"
	"math"
	"sync"

	"github.com/cinvymoe/ai-system-sub001/internal/broker"
	"github.com/cinvymoe/ai-system-sub001/internal/camera"
	"github.com/cinvymoe/ai-system-sub001/internal/pipeline"
	"github.com/cinvymoe/ai-system-sub001/internal/units"
)

// Publisher is the slice of the broker the deriver needs to emit direction
// results. Satisfied by *broker.Broker.
type Publisher interface {
	Publish(name string, payload map[string]any) broker.PublishResult
}

// DirectionDeriver consumes angle_value messages and publishes the
// discretized motion intent. The heading delta between consecutive angles
// decides the command: headings drifting clockwise become turn_right,
// counter-clockwise turn_left, and deltas inside the threshold are
// stationary. Intensity scales the delta against a quarter turn.
type DirectionDeriver struct {
	publisher Publisher
	threshold float64

	mu     sync.Mutex
	last   float64
	primed bool
}

// turn intensity saturates at a quarter turn between consecutive readings
const fullTurnDelta = 90.0

// NewDirectionDeriver creates a deriver with the given stationary threshold
// in degrees.
func NewDirectionDeriver(publisher Publisher, threshold float64) (*DirectionDeriver, error) {
	if threshold < 0 || threshold > 180 {
		return nil, fmt.Errorf("threshold %v out of range [0, 180]", threshold)
	}
	return &DirectionDeriver{publisher: publisher, threshold: threshold}, nil
}

// HandleAngle is the broker callback for angle_value messages.
func (d *DirectionDeriver) HandleAngle(msg broker.Message) error {
	angle, ok := payloadFloat(msg.Payload, "angle")
	if !ok {
		return fmt.Errorf("angle message missing numeric angle field")
	}

	d.mu.Lock()
	delta, primed := d.step(angle)
	d.mu.Unlock()
	if !primed {
		// first angle observed, nothing to compare against yet
		return nil
	}

	command := camera.DirectionStationary
	intensity := 0.0
	if math.Abs(delta) >= d.threshold {
		if delta > 0 {
			command = camera.DirectionTurnRight
		} else {
			command = camera.DirectionTurnLeft
		}
		intensity = math.Min(math.Abs(delta)/fullTurnDelta, 1)
	}

	payload := map[string]any{
		"command":   string(command),
		"intensity": intensity,
	}
	if ts, ok := msg.Payload["timestamp"].(string); ok {
		payload["timestamp"] = ts
	}

	result := d.publisher.Publish(pipeline.EventTypeDirection, payload)
	if !result.Success {
		return fmt.Errorf("failed to publish direction: %v", result.Errors)
	}
	return nil
}

// step records the new angle and returns the signed wrap-aware delta from
// the previous one. The second return is false until two angles have been
// seen. Caller holds the lock.
func (d *DirectionDeriver) step(angle float64) (float64, bool) {
	angle = units.NormalizeDegrees(angle)
	if !d.primed {
		d.last = angle
		d.primed = true
		return 0, false
	}
	delta := angle - d.last
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	d.last = angle
	return delta, true
}
