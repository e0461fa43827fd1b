// Package imu defines the reading model and frame parser for the inertial
// measurement unit attached over the serial port.
package imu

import (
	"sort"
	"time"
)

// Well-known field names emitted by the sensor. Consumers must check for
// presence with Field rather than assume every frame carries every field.
const (
	FieldAccelX      = "accel_x"
	FieldAccelY      = "accel_y"
	FieldAccelZ      = "accel_z"
	FieldGyroX       = "gyro_x"
	FieldGyroY       = "gyro_y"
	FieldGyroZ       = "gyro_z"
	FieldPitch       = "pitch"
	FieldRoll        = "roll"
	FieldYaw         = "yaw"
	FieldTemperature = "temperature"
)

// knownFields is the set of field names the parser will extract from a frame.
var knownFields = []string{
	FieldAccelX, FieldAccelY, FieldAccelZ,
	FieldGyroX, FieldGyroY, FieldGyroZ,
	FieldPitch, FieldRoll, FieldYaw,
	FieldTemperature,
}

// csvFieldOrder is the fixed column order of the CSV frame format.
var csvFieldOrder = []string{
	FieldAccelX, FieldAccelY, FieldAccelZ,
	FieldPitch, FieldRoll, FieldYaw,
	FieldTemperature,
}

// RawFrame is one line received from the device plus its arrival time. Frames
// are ephemeral: they are parsed immediately and never retained.
type RawFrame struct {
	Line []byte
	At   time.Time
}

// Reading is an immutable set of named numeric fields from one parsed frame.
// A field missing from the frame is absent, not zero.
type Reading struct {
	fields map[string]float64
	at     time.Time
}

// NewReading builds a Reading from a field map. The map is copied so later
// mutation by the caller cannot leak into the reading.
func NewReading(at time.Time, fields map[string]float64) Reading {
	copied := make(map[string]float64, len(fields))
	for name, value := range fields {
		copied[name] = value
	}
	return Reading{fields: copied, at: at}
}

// At returns the arrival timestamp of the frame the reading came from.
func (r Reading) At() time.Time { return r.at }

// Field returns the named field value and whether the field was present.
func (r Reading) Field(name string) (float64, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Has reports whether the named field was present in the frame.
func (r Reading) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// FieldNames returns the present field names in sorted order.
func (r Reading) FieldNames() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of fields present.
func (r Reading) Len() int { return len(r.fields) }
