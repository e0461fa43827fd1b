// Package camera holds the camera-routing domain model: direction commands,
// configured angle ranges, and the mapper that resolves a heading or
// direction into the set of cameras that should respond.
package camera

import (
	"fmt"
	"time"
)

// Direction is a discretized motion intent.
type Direction string

const (
	DirectionForward    Direction = "forward"
	DirectionBackward   Direction = "backward"
	DirectionTurnLeft   Direction = "turn_left"
	DirectionTurnRight  Direction = "turn_right"
	DirectionStationary Direction = "stationary"
)

// Directions lists every valid direction command.
var Directions = []Direction{
	DirectionForward,
	DirectionBackward,
	DirectionTurnLeft,
	DirectionTurnRight,
	DirectionStationary,
}

// ParseDirection validates a direction name. The legacy left/right names from
// older firmware are rejected, not silently mapped.
func ParseDirection(s string) (Direction, error) {
	for _, d := range Directions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown direction %q: expected one of forward, backward, turn_left, turn_right, stationary", s)
}

// DirectionCommand pairs a direction with how strongly the motion registered.
type DirectionCommand struct {
	Command   Direction `json:"command"`
	Intensity float64   `json:"intensity"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the command name and that intensity is within [0, 1].
func (c DirectionCommand) Validate() error {
	if _, err := ParseDirection(string(c.Command)); err != nil {
		return err
	}
	if c.Intensity < 0 || c.Intensity > 1 {
		return fmt.Errorf("intensity %v out of range [0, 1]", c.Intensity)
	}
	return nil
}

// AngleRange binds an interval of headings to the cameras that cover it.
// Matching treats the interval as half-open: [MinAngle, MaxAngle).
type AngleRange struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	MinAngle  float64  `json:"min_angle"`
	MaxAngle  float64  `json:"max_angle"`
	Enabled   bool     `json:"enabled"`
	CameraIDs []string `json:"camera_ids"`
}

// Validate rejects inverted or out-of-bounds intervals.
func (r AngleRange) Validate() error {
	if r.MinAngle < 0 || r.MinAngle > 360 {
		return fmt.Errorf("min_angle %v out of range [0, 360]", r.MinAngle)
	}
	if r.MaxAngle < 0 || r.MaxAngle > 360 {
		return fmt.Errorf("max_angle %v out of range [0, 360]", r.MaxAngle)
	}
	if r.MaxAngle <= r.MinAngle {
		return fmt.Errorf("max_angle %v must be greater than min_angle %v", r.MaxAngle, r.MinAngle)
	}
	return nil
}

// Contains reports whether the half-open interval covers the angle.
func (r AngleRange) Contains(angle float64) bool {
	return angle >= r.MinAngle && angle < r.MaxAngle
}

// Camera is a physical camera with the direction commands it responds to.
type Camera struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Directions []Direction `json:"directions"`
}

// RespondsTo reports whether the camera is bound to the given direction.
func (c Camera) RespondsTo(d Direction) bool {
	for _, bound := range c.Directions {
		if bound == d {
			return true
		}
	}
	return false
}
