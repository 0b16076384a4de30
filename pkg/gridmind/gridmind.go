// Package gridmind provides the public API for gridmind-go.
//
// This package provides a high-level interface for running the continuous
// learning loop: feeding finished games into the experience store, driving
// model update cycles, and observing progress through the event bus.
//
// Example:
//
//	learner, err := gridmind.NewLearner(gridmind.LearnerConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer learner.Close()
//
//	learner.Ingest(game)
//	if learner.ShouldUpdate() {
//	    learner.UpdateModel(ctx, nil)
//	}
package gridmind

import (
	"context"
	"log"

	"github.com/gridmind/gridmind-go/internal/application/learner"
	"github.com/gridmind/gridmind-go/internal/domain/learning"
	"github.com/gridmind/gridmind-go/internal/domain/version"
	"github.com/gridmind/gridmind-go/internal/infrastructure/events"
	"github.com/gridmind/gridmind-go/internal/infrastructure/patterns"
	"github.com/gridmind/gridmind-go/internal/infrastructure/policy"
	"github.com/gridmind/gridmind-go/internal/infrastructure/registry"
	"github.com/gridmind/gridmind-go/internal/infrastructure/replay"
	"github.com/gridmind/gridmind-go/internal/infrastructure/schedule"
	"github.com/gridmind/gridmind-go/internal/infrastructure/stability"
	"github.com/gridmind/gridmind-go/internal/shared"
)

// Re-export types for public API
type (
	// Game and board types
	Board           = learning.Board
	Move            = learning.Move
	GameOutcome     = learning.GameOutcome
	Outcome         = learning.Outcome
	GamePhase       = learning.GamePhase
	LossPattern     = learning.LossPattern
	LossPatternType = learning.LossPatternType
	Position        = learning.Position
	Experience      = learning.Experience

	// Model types
	TrainableModel = learning.TrainableModel
	TestCase       = learning.TestCase
	FitResult      = learning.FitResult

	// Stability types
	StabilityReport     = learning.StabilityReport
	PerformanceSnapshot = learning.PerformanceSnapshot
	PerformanceTrend    = learning.PerformanceTrend
	PatternInsight      = learning.PatternInsight

	// Version types
	ModelVersion    = version.ModelVersion
	VersionMetadata = version.Metadata

	// Configuration types
	Config             = shared.LearnerConfig
	StoreConfig        = shared.StoreConfig
	SchedulerConfig    = shared.SchedulerConfig
	MonitorConfig      = shared.MonitorConfig
	RegistryConfig     = shared.RegistryConfig
	OrchestratorConfig = shared.OrchestratorConfig

	// Event types
	Event     = shared.Event
	EventType = shared.EventType

	// Orchestrator types
	State  = learner.State
	Status = learner.Status
)

// Outcome values.
const (
	OutcomeWin  = learning.OutcomeWin
	OutcomeLoss = learning.OutcomeLoss
	OutcomeDraw = learning.OutcomeDraw
)

// Loss pattern types.
const (
	LossHorizontal   = learning.LossHorizontal
	LossVertical     = learning.LossVertical
	LossDiagonal     = learning.LossDiagonal
	LossAntiDiagonal = learning.LossAntiDiagonal
)

// Event types.
const (
	EventLearningProgress    = shared.EventLearningProgress
	EventPatternInsights     = shared.EventPatternInsights
	EventModelUpdated        = shared.EventModelUpdated
	EventModelUpdateRejected = shared.EventModelUpdateRejected
	EventStabilityReport     = shared.EventStabilityReport
)

// Sentinel errors.
var (
	ErrUpdateInProgress = learner.ErrUpdateInProgress
	ErrVersionNotFound  = version.ErrVersionNotFound
	ErrNoVersions       = version.ErrNoVersions
)

// DefaultConfig returns the default top-level configuration.
func DefaultConfig() Config {
	return shared.DefaultLearnerConfig()
}

// LoadConfig loads configuration from a YAML file, filling unset fields
// with defaults.
func LoadConfig(path string) (Config, error) {
	return shared.LoadConfig(path)
}

// LearnerConfig configures a Learner.
type LearnerConfig struct {
	// Config holds the component configuration. Each component fills its
	// zero fields from the defaults, so a partial config keeps every field
	// the caller did set.
	Config Config

	// Model is the model under training. Nil uses the built-in reference
	// policy model.
	Model TrainableModel

	// InMemoryRegistry selects the non-persistent registry; useful for
	// tests and ephemeral runs.
	InMemoryRegistry bool

	// Logger receives operational logs. Nil uses the standard logger.
	Logger *log.Logger
}

// Learner is the top-level handle over the continuous learning loop.
type Learner struct {
	orchestrator *learner.Orchestrator
	registry     registry.VersionRegistry
	bus          *events.Bus
	model        TrainableModel
}

// NewLearner wires the experience store, pattern analyzer, learning-rate
// scheduler, stability monitor, version registry, and event bus into an
// update orchestrator.
func NewLearner(config LearnerConfig) (*Learner, error) {
	cfg := config.Config

	model := config.Model
	if model == nil {
		model = policy.New(policy.DefaultConfig())
	}

	var reg registry.VersionRegistry
	if config.InMemoryRegistry {
		reg = registry.NewInMemoryRegistry(cfg.Registry.Retention)
	} else {
		sqliteReg, err := registry.NewSQLiteRegistry(cfg.Registry)
		if err != nil {
			return nil, err
		}
		reg = sqliteReg
	}

	bus := events.New(events.WithLogger(config.Logger))

	orchestrator := learner.NewOrchestrator(cfg.Orchestrator, learner.Deps{
		Store:     replay.NewExperienceStore(cfg.Store),
		Analyzer:  patterns.NewAnalyzer(),
		Scheduler: schedule.NewAdaptiveScheduler(cfg.Scheduler),
		Monitor:   stability.NewMonitor(cfg.Monitor),
		Registry:  reg,
		Bus:       bus,
		Model:     model,
		Logger:    config.Logger,
	})

	return &Learner{
		orchestrator: orchestrator,
		registry:     reg,
		bus:          bus,
		model:        model,
	}, nil
}

// Ingest feeds a finished game into the learning loop.
func (l *Learner) Ingest(game GameOutcome) {
	l.orchestrator.Ingest(game)
}

// ShouldUpdate reports whether the update trigger conditions hold.
func (l *Learner) ShouldUpdate() bool {
	return l.orchestrator.ShouldUpdate()
}

// TryUpdate runs an update cycle when the trigger conditions hold.
func (l *Learner) TryUpdate(ctx context.Context, focus *LossPatternType) bool {
	return l.orchestrator.TryUpdate(ctx, focus)
}

// UpdateModel forces a full update cycle regardless of trigger conditions.
func (l *Learner) UpdateModel(ctx context.Context, focus *LossPatternType) error {
	return l.orchestrator.UpdateModel(ctx, focus)
}

// Rollback restores the most recent retained model version.
func (l *Learner) Rollback(ctx context.Context) error {
	return l.orchestrator.Rollback(ctx)
}

// RestoreVersion restores a specific retained model version.
func (l *Learner) RestoreVersion(ctx context.Context, version int64) error {
	return l.orchestrator.RestoreVersion(ctx, version)
}

// Versions lists retained model versions, newest first.
func (l *Learner) Versions(ctx context.Context) ([]ModelVersion, error) {
	return l.registry.List(ctx)
}

// Status returns a point-in-time operational view.
func (l *Learner) Status() Status {
	return l.orchestrator.Status()
}

// Model returns the model under training.
func (l *Learner) Model() TrainableModel {
	return l.model
}

// Subscribe returns a channel receiving events of the given type.
func (l *Learner) Subscribe(eventType EventType) <-chan Event {
	return l.bus.Subscribe(eventType)
}

// SubscribeAll returns a channel receiving all events.
func (l *Learner) SubscribeAll() <-chan Event {
	return l.bus.SubscribeAll()
}

// On registers a handler for events of the given type.
func (l *Learner) On(eventType EventType, handler func(Event)) {
	l.bus.On(eventType, events.Handler(handler))
}

// Close shuts down the event bus and the version registry.
func (l *Learner) Close() error {
	l.bus.Close()
	return l.registry.Close()
}

// Now returns the current timestamp in Unix milliseconds.
func Now() int64 {
	return shared.Now()
}
