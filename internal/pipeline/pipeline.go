// Package pipeline turns parsed sensor readings into derived domain events
// through an ordered, configuration-declared chain of stages.
//
// Each stage consumes the sample produced by the previous stage and either
// passes it on (possibly rewritten) or drops it. A drop ends processing for
// that reading only; the pipeline keeps accepting subsequent readings.
package pipeline

import (
	"fmt"
	"time"

	"github.com/cinvymoe/ai-system-sub001/internal/imu"
)

// Event type names double as broker message-type names; the payload shapes
// are the in-process wire contract.
const (
	// EventTypeAngle is the derived heading event emitted by the pipeline.
	EventTypeAngle = "angle_value"
	// EventTypeDirection is the motion intent computed from angle events.
	EventTypeDirection = "direction_result"
)

// Event is one finalized domain event.
type Event struct {
	Type      string
	Payload   map[string]any
	Timestamp time.Time
}

// Sample is the unit of work flowing between stages: the source reading plus
// whatever the stages have derived from it so far.
type Sample struct {
	Reading imu.Reading

	// Angle is the derived heading in degrees, valid once HasAngle is set.
	Angle    float64
	HasAngle bool
}

// Stage is one transformation step. Returning keep=false drops the sample
// without error; returning an error drops it and is reported to the caller
// for logging.
type Stage interface {
	Name() string
	Process(s *Sample) (keep bool, err error)
}

// StageConfig declares one stage by registry name with its numeric
// parameters.
type StageConfig struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params,omitempty"`
}

// stageBuilders is the fixed registry of stage constructors. The set of
// variants is closed: configuration selects from it, nothing is discovered
// dynamically.
var stageBuilders = map[string]func(params map[string]float64) (Stage, error){
	"angle":    newAngleStage,
	"smooth":   newSmoothStage,
	"deadband": newDeadbandStage,
}

// StageNames returns the registered stage names, for error messages and
// configuration validation.
func StageNames() []string {
	names := make([]string, 0, len(stageBuilders))
	for name := range stageBuilders {
		names = append(names, name)
	}
	return names
}

// Pipeline is an ordered chain of constructed stages.
type Pipeline struct {
	stages []Stage
}

// New constructs a pipeline from stage configuration. An unknown stage name
// or invalid parameter set fails construction; this is a startup error, not
// something to limp past.
func New(configs []StageConfig) (*Pipeline, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("pipeline requires at least one stage")
	}

	stages := make([]Stage, 0, len(configs))
	for _, cfg := range configs {
		build, ok := stageBuilders[cfg.Name]
		if !ok {
			return nil, fmt.Errorf("unknown pipeline stage %q", cfg.Name)
		}
		stage, err := build(cfg.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to build stage %q: %w", cfg.Name, err)
		}
		stages = append(stages, stage)
	}
	return &Pipeline{stages: stages}, nil
}

// StageNames lists the configured stages in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Process runs one reading through the stage chain. It returns the finalized
// event, or nil when a stage dropped the sample. A non-nil error always means
// the sample was dropped; the error names the failing stage for the log.
func (p *Pipeline) Process(reading imu.Reading) (*Event, error) {
	sample := &Sample{Reading: reading}
	for _, stage := range p.stages {
		keep, err := stage.Process(sample)
		if err != nil {
			return nil, fmt.Errorf("stage %q dropped reading: %w", stage.Name(), err)
		}
		if !keep {
			return nil, nil
		}
	}

	if !sample.HasAngle {
		return nil, fmt.Errorf("pipeline produced no angle: configure an %q stage first", "angle")
	}
	return &Event{
		Type: EventTypeAngle,
		Payload: map[string]any{
			"angle":     sample.Angle,
			"timestamp": reading.At().UTC().Format(time.RFC3339Nano),
		},
		Timestamp: reading.At(),
	}, nil
}
