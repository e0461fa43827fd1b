package camera

import (
	"fmt"
	"sort"

	"github.com/cinvymoe/ai-system-sub001/internal/units"
)

// ConfigSource is the read-only view of the camera and angle-range
// configuration. The mapper re-reads it on every resolution, so staleness is
// bounded by the source's own consistency; the mapper never writes through it.
type ConfigSource interface {
	// ListEnabledAngleRanges returns the currently enabled angle ranges.
	ListEnabledAngleRanges() ([]AngleRange, error)
	// ListEnabledCameras returns the enabled cameras with their direction
	// bindings.
	ListEnabledCameras() ([]Camera, error)
}

// Mapper resolves a heading angle or direction command into the set of
// camera IDs that should respond.
type Mapper struct {
	source ConfigSource
}

// NewMapper wraps a configuration source.
func NewMapper(source ConfigSource) *Mapper {
	return &Mapper{source: source}
}

// ResolveAngle returns the union of camera IDs across every enabled range
// whose [min, max) interval contains the angle. Overlapping ranges are
// additive: surveillance zones intentionally overlap. No matching range
// yields an empty set, not an error. The query angle is normalized into
// [0, 360) before matching.
func (m *Mapper) ResolveAngle(angle float64) ([]string, error) {
	ranges, err := m.source.ListEnabledAngleRanges()
	if err != nil {
		return nil, fmt.Errorf("failed to list angle ranges: %w", err)
	}

	normalized := units.NormalizeDegrees(angle)
	matched := make(map[string]bool)
	for _, r := range ranges {
		if !r.Enabled || !r.Contains(normalized) {
			continue
		}
		for _, id := range r.CameraIDs {
			matched[id] = true
		}
	}
	return sortedIDs(matched), nil
}

// ResolveDirection returns the union of camera IDs across every enabled
// camera bound to the command's direction.
func (m *Mapper) ResolveDirection(cmd DirectionCommand) ([]string, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	cameras, err := m.source.ListEnabledCameras()
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}

	matched := make(map[string]bool)
	for _, cam := range cameras {
		if cam.RespondsTo(cmd.Command) {
			matched[cam.ID] = true
		}
	}
	return sortedIDs(matched), nil
}

func sortedIDs(set map[string]bool) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
