// Package handlers provides the validating handlers registered per message
// type and the subscribers that consume routed events: direction derivation,
// camera switching, and event persistence.
package handlers

import (
	"fmt"
	"math"
	"time"

	"github.com/cinvymoe/ai-system-sub001/internal/broker"
	"github.com/cinvymoe/ai-system-sub001/internal/camera"
	"github.com/cinvymoe/ai-system-sub001/internal/units"
)

// payloadFloat reads a numeric payload field. JSON round-trips hand us
// float64; ints from in-process producers are accepted too.
func payloadFloat(payload map[string]any, name string) (float64, bool) {
	switch v := payload[name].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// normalizeTimestamp validates an RFC3339 timestamp field, stamping the
// current time when the producer omitted it.
func normalizeTimestamp(payload map[string]any) (string, error) {
	raw, present := payload["timestamp"]
	if !present {
		return time.Now().UTC().Format(time.RFC3339Nano), nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("timestamp must be an RFC3339 string")
	}
	if _, err := time.Parse(time.RFC3339Nano, s); err != nil {
		if _, err := time.Parse(time.RFC3339, s); err != nil {
			return "", fmt.Errorf("invalid timestamp %q: %v", s, err)
		}
	}
	return s, nil
}

// AngleHandler validates angle_value payloads: a finite numeric angle plus
// an optional RFC3339 timestamp. The angle is normalized into [0, 360).
func AngleHandler() broker.Handler {
	return func(payload map[string]any) (map[string]any, error) {
		angle, ok := payloadFloat(payload, "angle")
		if !ok {
			return nil, fmt.Errorf("payload requires a numeric angle field")
		}
		if math.IsNaN(angle) || math.IsInf(angle, 0) {
			return nil, fmt.Errorf("angle must be finite, got %v", angle)
		}
		ts, err := normalizeTimestamp(payload)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"angle":     units.NormalizeDegrees(angle),
			"timestamp": ts,
		}, nil
	}
}

// DirectionHandler validates direction_result payloads: a command from the
// fixed direction set and an intensity in [0, 1]. Legacy left/right command
// names are rejected.
func DirectionHandler() broker.Handler {
	return func(payload map[string]any) (map[string]any, error) {
		rawCommand, ok := payload["command"].(string)
		if !ok {
			return nil, fmt.Errorf("payload requires a string command field")
		}
		command, err := camera.ParseDirection(rawCommand)
		if err != nil {
			return nil, err
		}
		intensity, ok := payloadFloat(payload, "intensity")
		if !ok {
			return nil, fmt.Errorf("payload requires a numeric intensity field")
		}
		if math.IsNaN(intensity) || intensity < 0 || intensity > 1 {
			return nil, fmt.Errorf("intensity %v out of range [0, 1]", intensity)
		}
		ts, err := normalizeTimestamp(payload)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"command":   string(command),
			"intensity": intensity,
			"timestamp": ts,
		}, nil
	}
}

// DecodeDirectionCommand converts a validated direction_result payload back
// into the domain type subscribers work with.
func DecodeDirectionCommand(payload map[string]any) (camera.DirectionCommand, error) {
	rawCommand, ok := payload["command"].(string)
	if !ok {
		return camera.DirectionCommand{}, fmt.Errorf("payload requires a string command field")
	}
	command, err := camera.ParseDirection(rawCommand)
	if err != nil {
		return camera.DirectionCommand{}, err
	}
	intensity, ok := payloadFloat(payload, "intensity")
	if !ok {
		return camera.DirectionCommand{}, fmt.Errorf("payload requires a numeric intensity field")
	}
	cmd := camera.DirectionCommand{Command: command, Intensity: intensity}
	if ts, ok := payload["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			cmd.Timestamp = parsed
		}
	}
	if err := cmd.Validate(); err != nil {
		return camera.DirectionCommand{}, err
	}
	return cmd, nil
}
