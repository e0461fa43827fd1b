package imu

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseError reports a frame that could not be turned into a Reading. It is
// returned as a value so the source can skip the frame and keep streaming.
type ParseError struct {
	Reason string
	Frame  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse frame %q: %s", e.Frame, e.Reason)
}

// Parse converts a raw frame into a Reading. Two frame formats are accepted:
//
//   - a JSON object line, e.g. {"accel_x":0.04,"yaw":182.5,"temperature":31.2}
//   - a checksummed CSV sentence, e.g. $IMU,0.04,-0.01,9.78,1.2,0.4,182.5,31.2*5A
//
// Fields absent from the frame are absent from the reading. A frame that
// yields no recognised fields is a ParseError, not an empty reading.
func Parse(frame RawFrame) (Reading, error) {
	line := strings.TrimSpace(string(frame.Line))
	if line == "" {
		return Reading{}, &ParseError{Reason: "empty frame", Frame: line}
	}

	switch {
	case strings.HasPrefix(line, "{"):
		return parseJSONFrame(frame, line)
	case strings.HasPrefix(line, "$IMU,"):
		return parseCSVFrame(frame, line)
	default:
		return Reading{}, &ParseError{Reason: "unrecognised frame format", Frame: line}
	}
}

func parseJSONFrame(frame RawFrame, line string) (Reading, error) {
	var raw map[string]json.Number
	decoder := json.NewDecoder(strings.NewReader(line))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return Reading{}, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err), Frame: line}
	}

	fields := make(map[string]float64)
	for _, name := range knownFields {
		num, ok := raw[name]
		if !ok {
			continue
		}
		value, err := num.Float64()
		if err != nil {
			return Reading{}, &ParseError{Reason: fmt.Sprintf("field %s is not numeric", name), Frame: line}
		}
		fields[name] = value
	}
	if len(fields) == 0 {
		return Reading{}, &ParseError{Reason: "no recognised fields", Frame: line}
	}
	return NewReading(frame.At, fields), nil
}

func parseCSVFrame(frame RawFrame, line string) (Reading, error) {
	body, sum, found := strings.Cut(line[1:], "*")
	if !found {
		return Reading{}, &ParseError{Reason: "missing checksum delimiter", Frame: line}
	}
	if err := verifyChecksum(body, sum); err != nil {
		return Reading{}, &ParseError{Reason: err.Error(), Frame: line}
	}

	segments := strings.Split(body, ",")
	// first segment is the "IMU" sentence tag
	if len(segments)-1 != len(csvFieldOrder) {
		return Reading{}, &ParseError{
			Reason: fmt.Sprintf("expected %d fields, got %d", len(csvFieldOrder), len(segments)-1),
			Frame:  line,
		}
	}

	fields := make(map[string]float64)
	for i, name := range csvFieldOrder {
		segment := strings.TrimSpace(segments[i+1])
		if segment == "" {
			// empty column means the sensor omitted the field
			continue
		}
		value, err := strconv.ParseFloat(segment, 64)
		if err != nil {
			return Reading{}, &ParseError{Reason: fmt.Sprintf("failed to parse %s: %v", name, err), Frame: line}
		}
		fields[name] = value
	}
	if len(fields) == 0 {
		return Reading{}, &ParseError{Reason: "no recognised fields", Frame: line}
	}
	return NewReading(frame.At, fields), nil
}

// verifyChecksum checks the two-digit hex XOR checksum over the sentence body,
// NMEA style: every byte between '$' and '*' XORed together.
func verifyChecksum(body, sum string) error {
	want, err := strconv.ParseUint(strings.TrimSpace(sum), 16, 8)
	if err != nil {
		return fmt.Errorf("invalid checksum %q", sum)
	}
	var got byte
	for i := 0; i < len(body); i++ {
		got ^= body[i]
	}
	if got != byte(want) {
		return fmt.Errorf("checksum mismatch: computed %02X, frame says %02X", got, byte(want))
	}
	return nil
}

// Checksum computes the sentence checksum for a CSV frame body. Exposed for
// fixture generation in dev mode and tests.
func Checksum(body string) string {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return fmt.Sprintf("%02X", sum)
}
