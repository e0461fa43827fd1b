package camera

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakeSource is an in-memory ConfigSource for mapper tests.
type fakeSource struct {
	ranges  []AngleRange
	cameras []Camera
	err     error
}

func (f *fakeSource) ListEnabledAngleRanges() ([]AngleRange, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ranges, nil
}

func (f *fakeSource) ListEnabledCameras() ([]Camera, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cameras, nil
}

func TestResolveAngleSingleRange(t *testing.T) {
	mapper := NewMapper(&fakeSource{ranges: []AngleRange{
		{ID: 1, MinAngle: 0, MaxAngle: 90, Enabled: true, CameraIDs: []string{"cam-a"}},
		{ID: 2, MinAngle: 180, MaxAngle: 270, Enabled: true, CameraIDs: []string{"cam-b"}},
	}})

	got, err := mapper.ResolveAngle(45)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"cam-a"}, got); diff != "" {
		t.Errorf("resolution mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAngleNoMatchIsEmptyNotError(t *testing.T) {
	mapper := NewMapper(&fakeSource{ranges: []AngleRange{
		{ID: 1, MinAngle: 0, MaxAngle: 90, Enabled: true, CameraIDs: []string{"cam-a"}},
	}})

	got, err := mapper.ResolveAngle(200)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty set, got %v", got)
	}
}

func TestResolveAngleOverlapIsUnion(t *testing.T) {
	mapper := NewMapper(&fakeSource{ranges: []AngleRange{
		{ID: 1, MinAngle: 0, MaxAngle: 120, Enabled: true, CameraIDs: []string{"cam-a", "cam-shared"}},
		{ID: 2, MinAngle: 90, MaxAngle: 180, Enabled: true, CameraIDs: []string{"cam-b", "cam-shared"}},
	}})

	got, err := mapper.ResolveAngle(100)
	if err != nil {
		t.Fatal(err)
	}
	// overlapping zones are additive, and shared cameras appear once
	if diff := cmp.Diff([]string{"cam-a", "cam-b", "cam-shared"}, got); diff != "" {
		t.Errorf("union mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAngleSkipsDisabledRanges(t *testing.T) {
	mapper := NewMapper(&fakeSource{ranges: []AngleRange{
		{ID: 1, MinAngle: 0, MaxAngle: 90, Enabled: false, CameraIDs: []string{"cam-a"}},
	}})

	got, err := mapper.ResolveAngle(45)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("disabled range must not match, got %v", got)
	}
}

func TestResolveAngleHalfOpenBounds(t *testing.T) {
	mapper := NewMapper(&fakeSource{ranges: []AngleRange{
		{ID: 1, MinAngle: 90, MaxAngle: 180, Enabled: true, CameraIDs: []string{"cam-a"}},
	}})

	for angle, want := range map[float64]int{90: 1, 179.999: 1, 180: 0, 89.999: 0} {
		got, err := mapper.ResolveAngle(angle)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != want {
			t.Errorf("angle %v: got %v, want %d cameras", angle, got, want)
		}
	}
}

func TestResolveAngleNormalizesQuery(t *testing.T) {
	mapper := NewMapper(&fakeSource{ranges: []AngleRange{
		{ID: 1, MinAngle: 0, MaxAngle: 90, Enabled: true, CameraIDs: []string{"cam-a"}},
	}})

	got, err := mapper.ResolveAngle(405) // wraps to 45
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected a match after normalization, got %v", got)
	}
}

func TestResolveAngleSourceError(t *testing.T) {
	boom := errors.New("db unavailable")
	mapper := NewMapper(&fakeSource{err: boom})
	if _, err := mapper.ResolveAngle(10); !errors.Is(err, boom) {
		t.Errorf("source error not propagated: %v", err)
	}
}

func TestResolveDirection(t *testing.T) {
	mapper := NewMapper(&fakeSource{cameras: []Camera{
		{ID: "cam-left", Directions: []Direction{DirectionTurnLeft}},
		{ID: "cam-wide", Directions: []Direction{DirectionTurnLeft, DirectionTurnRight}},
		{ID: "cam-rear", Directions: []Direction{DirectionBackward}},
	}})

	got, err := mapper.ResolveDirection(DirectionCommand{Command: DirectionTurnLeft, Intensity: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"cam-left", "cam-wide"}, got); diff != "" {
		t.Errorf("direction resolution mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDirectionRejectsInvalidCommand(t *testing.T) {
	mapper := NewMapper(&fakeSource{})
	if _, err := mapper.ResolveDirection(DirectionCommand{Command: "left", Intensity: 0.5}); err == nil {
		t.Error("legacy direction name must be rejected")
	}
	if _, err := mapper.ResolveDirection(DirectionCommand{Command: DirectionForward, Intensity: 1.5}); err == nil {
		t.Error("out of range intensity must be rejected")
	}
}

func TestAngleRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		r       AngleRange
		wantErr bool
	}{
		{"valid", AngleRange{MinAngle: 0, MaxAngle: 90}, false},
		{"full circle", AngleRange{MinAngle: 0, MaxAngle: 360}, false},
		{"inverted", AngleRange{MinAngle: 90, MaxAngle: 45}, true},
		{"equal", AngleRange{MinAngle: 90, MaxAngle: 90}, true},
		{"negative min", AngleRange{MinAngle: -1, MaxAngle: 90}, true},
		{"max above 360", AngleRange{MinAngle: 0, MaxAngle: 361}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	for _, d := range Directions {
		if _, err := ParseDirection(string(d)); err != nil {
			t.Errorf("valid direction %q rejected: %v", d, err)
		}
	}
	for _, bad := range []string{"left", "right", "up", "", "FORWARD"} {
		if _, err := ParseDirection(bad); err == nil {
			t.Errorf("direction %q should be rejected", bad)
		}
	}
}
