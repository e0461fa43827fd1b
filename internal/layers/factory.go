package layers

import (
	"fmt"
	"time"

	"github.com/cinvymoe/ai-system-sub001/internal/db"
	"github.com/cinvymoe/ai-system-sub001/internal/imu"
	"github.com/cinvymoe/ai-system-sub001/internal/pipeline"
	"github.com/cinvymoe/ai-system-sub001/internal/source"
)

// Layer variant names. The set is closed: configuration selects from these,
// nothing is discovered at runtime.
const (
	CollectionSerial = "serial"
	CollectionReplay = "replay"

	ProcessingStandard = "standard"

	StorageSQLite  = "sqlite"
	StorageDiscard = "discard"
)

// Config selects and parameterizes one layer triple.
type Config struct {
	Collection CollectionConfig `json:"collection"`
	Processing ProcessingConfig `json:"processing"`
	Storage    StorageConfig    `json:"storage"`
}

// CollectionConfig selects the collection variant.
type CollectionConfig struct {
	Kind string `json:"kind"`

	// serial variant
	Port    string             `json:"port,omitempty"`
	Options source.PortOptions `json:"options,omitempty"`

	// replay variant
	FixturesPath     string `json:"fixtures_path,omitempty"`
	ReplayIntervalMs int    `json:"replay_interval_ms,omitempty"`
}

// ProcessingConfig selects the processing variant and its stage chain.
type ProcessingConfig struct {
	Kind   string                 `json:"kind"`
	Stages []pipeline.StageConfig `json:"stages"`
}

// StorageConfig selects the storage variant.
type StorageConfig struct {
	Kind string `json:"kind"`

	// sqlite variant
	Path string `json:"path,omitempty"`
}

// New is the single factory entry point. It builds the full triple and fails
// if any layer cannot be constructed or the combination is incompatible;
// such a failure is fatal at startup, there is no partially built set.
func New(cfg Config) (*Set, error) {
	collection, err := newCollection(cfg.Collection)
	if err != nil {
		return nil, fmt.Errorf("collection layer: %w", err)
	}

	processing, err := newProcessing(cfg.Processing)
	if err != nil {
		return nil, fmt.Errorf("processing layer: %w", err)
	}

	storage, err := newStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage layer: %w", err)
	}

	set := &Set{Collection: collection, Processing: processing, Storage: storage}
	if err := checkCompatible(cfg); err != nil {
		set.Storage.Close()
		return nil, err
	}
	return set, nil
}

// checkCompatible enforces the matched-triple invariant. Today every frame
// producing collection feeds the standard pipeline, so the check is a
// whitelist of known-good combinations rather than a convention.
func checkCompatible(cfg Config) error {
	switch cfg.Collection.Kind {
	case CollectionSerial, CollectionReplay:
		// both produce line frames the standard pipeline parses
	default:
		return fmt.Errorf("no processing layer accepts collection kind %q", cfg.Collection.Kind)
	}
	if cfg.Processing.Kind != ProcessingStandard {
		return fmt.Errorf("collection kind %q has no compatible processing kind %q", cfg.Collection.Kind, cfg.Processing.Kind)
	}
	return nil
}

func newCollection(cfg CollectionConfig) (CollectionManager, error) {
	switch cfg.Kind {
	case CollectionSerial:
		if cfg.Port == "" {
			return nil, fmt.Errorf("serial collection requires a port path")
		}
		if _, err := cfg.Options.Normalize(); err != nil {
			return nil, err
		}
		return source.New(cfg.Port, cfg.Options), nil

	case CollectionReplay:
		if cfg.FixturesPath == "" {
			return nil, fmt.Errorf("replay collection requires a fixtures path")
		}
		interval := time.Duration(cfg.ReplayIntervalMs) * time.Millisecond
		if interval <= 0 {
			interval = 100 * time.Millisecond
		}
		opener := source.ReplayFileOpener(cfg.FixturesPath, interval)
		return source.NewWithOpener(cfg.FixturesPath, cfg.Options, opener), nil

	default:
		return nil, fmt.Errorf("unknown collection kind %q", cfg.Kind)
	}
}

func newProcessing(cfg ProcessingConfig) (ProcessingManager, error) {
	switch cfg.Kind {
	case ProcessingStandard:
		p, err := pipeline.New(cfg.Stages)
		if err != nil {
			return nil, err
		}
		return &standardProcessing{pipeline: p}, nil
	default:
		return nil, fmt.Errorf("unknown processing kind %q", cfg.Kind)
	}
}

func newStorage(cfg StorageConfig) (StorageManager, error) {
	switch cfg.Kind {
	case StorageSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite storage requires a database path")
		}
		database, err := db.NewDB(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &sqliteStorage{db: database}, nil

	case StorageDiscard:
		return discardStorage{}, nil

	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}

// standardProcessing adapts the stage pipeline to the ProcessingManager
// interface.
type standardProcessing struct {
	pipeline *pipeline.Pipeline
}

func (p *standardProcessing) Process(reading imu.Reading) (*pipeline.Event, error) {
	return p.pipeline.Process(reading)
}

func (p *standardProcessing) StageNames() []string {
	return p.pipeline.StageNames()
}

// sqliteStorage adapts the SQLite layer to the StorageManager interface.
type sqliteStorage struct {
	db *db.DB
}

func (s *sqliteStorage) StoreEvent(event pipeline.Event) error {
	return s.db.StoreEvent(event)
}

func (s *sqliteStorage) Close() error { return s.db.Close() }

// Database returns the SQLite handle backing the storage layer, or nil when
// the configured storage does not use one. Wiring code hands the same handle
// to the camera mapper as its configuration source.
func (s *Set) Database() *db.DB {
	if sqlite, ok := s.Storage.(*sqliteStorage); ok {
		return sqlite.db
	}
	return nil
}

// discardStorage drops every event. Used when persistence is switched off.
type discardStorage struct{}

func (discardStorage) StoreEvent(pipeline.Event) error { return nil }

func (discardStorage) Close() error { return nil }
