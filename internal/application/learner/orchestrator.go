package learner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gridmind/gridmind-go/internal/domain/learning"
	domainVersion "github.com/gridmind/gridmind-go/internal/domain/version"
	"github.com/gridmind/gridmind-go/internal/infrastructure/events"
	"github.com/gridmind/gridmind-go/internal/infrastructure/patterns"
	"github.com/gridmind/gridmind-go/internal/infrastructure/registry"
	"github.com/gridmind/gridmind-go/internal/infrastructure/replay"
	"github.com/gridmind/gridmind-go/internal/infrastructure/schedule"
	"github.com/gridmind/gridmind-go/internal/infrastructure/stability"
	"github.com/gridmind/gridmind-go/internal/shared"
)

// State is the orchestrator's cycle state.
type State string

const (
	StateIdle        State = "idle"
	StateTriggered   State = "triggered"
	StateSampling    State = "sampling"
	StateTraining    State = "training"
	StateValidating  State = "validating"
	StatePromoting   State = "promoting"
	StateRollingBack State = "rolling_back"
)

// Sentinel errors for update cycles.
var (
	// ErrUpdateInProgress means a second trigger arrived while a cycle
	// was active; the trigger is ignored.
	ErrUpdateInProgress = errors.New("update cycle already in progress")

	// ErrBackupRequired means the pre-update backup failed. Training is
	// never started without a safe rollback point.
	ErrBackupRequired = errors.New("pre-update backup failed")

	// ErrTrainingFailed wraps model fit errors.
	ErrTrainingFailed = errors.New("training failed")

	// ErrTrainingTimeout means the supervisory timeout elapsed.
	ErrTrainingTimeout = errors.New("training timed out")

	// ErrValidationFailed means the stability check rejected the candidate.
	ErrValidationFailed = errors.New("stability validation failed")

	// ErrNotEnoughData means the sampled batch was empty.
	ErrNotEnoughData = errors.New("not enough buffered experiences")
)

// Orchestrator composes the learning components and owns all cross-cutting
// state. Ingest is always accepted; at most one update cycle runs at a time.
type Orchestrator struct {
	config    shared.OrchestratorConfig
	store     *replay.ExperienceStore
	analyzer  *patterns.Analyzer
	scheduler *schedule.AdaptiveScheduler
	monitor   *stability.Monitor
	registry  registry.VersionRegistry
	bus       *events.Bus
	model     learning.TrainableModel
	logger    *log.Logger

	// updateMu serializes the entire update cycle, backup through
	// promote/rollback. Registry access only happens under it.
	updateMu sync.Mutex

	stateMu sync.Mutex
	state   State

	statsMu        sync.Mutex
	gamesProcessed int
	wins           int
	lastUpdate     time.Time
	modelVersion   int64
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Store     *replay.ExperienceStore
	Analyzer  *patterns.Analyzer
	Scheduler *schedule.AdaptiveScheduler
	Monitor   *stability.Monitor
	Registry  registry.VersionRegistry
	Bus       *events.Bus
	Model     learning.TrainableModel
	Logger    *log.Logger
}

// NewOrchestrator creates a new orchestrator. Zero config fields fall back
// to the defaults so a partial config cannot zero the batch size, the
// epoch cap, or the replay priorities.
func NewOrchestrator(config shared.OrchestratorConfig, deps Deps) *Orchestrator {
	defaults := shared.DefaultOrchestratorConfig()
	if config.MinGames <= 0 {
		config.MinGames = defaults.MinGames
	}
	if config.UpdateFrequency <= 0 {
		config.UpdateFrequency = defaults.UpdateFrequency
	}
	if config.Cooldown <= 0 {
		config.Cooldown = defaults.Cooldown
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxEpochs <= 0 {
		config.MaxEpochs = defaults.MaxEpochs
	}
	if config.EarlyStopPatience <= 0 {
		config.EarlyStopPatience = defaults.EarlyStopPatience
	}
	if config.TrainingTimeout <= 0 {
		config.TrainingTimeout = defaults.TrainingTimeout
	}
	if config.PatternLossPriority <= 0 {
		config.PatternLossPriority = defaults.PatternLossPriority
	}
	if config.LossPriority <= 0 {
		config.LossPriority = defaults.LossPriority
	}
	if config.BasePriority <= 0 {
		config.BasePriority = defaults.BasePriority
	}
	if config.TerminalLossWindow <= 0 {
		config.TerminalLossWindow = defaults.TerminalLossWindow
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = defaults.ProgressInterval
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "learner: ", log.LstdFlags)
	}

	return &Orchestrator{
		config:    config,
		store:     deps.Store,
		analyzer:  deps.Analyzer,
		scheduler: deps.Scheduler,
		monitor:   deps.Monitor,
		registry:  deps.Registry,
		bus:       deps.Bus,
		model:     deps.Model,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the current cycle state.
func (o *Orchestrator) State() State {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
}

// Ingest converts a game outcome into experiences and pattern updates.
// It never blocks on an in-flight update cycle and never fails.
func (o *Orchestrator) Ingest(game learning.GameOutcome) {
	experiences := BuildExperiences(game, o.config)
	for _, exp := range experiences {
		o.store.Add(exp, exp.Priority)
	}

	o.analyzer.Ingest(game)

	o.statsMu.Lock()
	o.gamesProcessed++
	if game.Outcome == learning.OutcomeWin {
		o.wins++
	}
	processed := o.gamesProcessed
	winRate := float64(o.wins) / float64(o.gamesProcessed)
	o.statsMu.Unlock()

	if o.config.ProgressInterval > 0 && processed%o.config.ProgressInterval == 0 {
		o.bus.PublishLearningProgress(processed, winRate, o.store.Len())
		o.bus.PublishPatternInsights(o.analyzer.Insights(5))
	}
}

// WinRate returns the running win rate over all ingested games.
func (o *Orchestrator) WinRate() float64 {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()

	if o.gamesProcessed == 0 {
		return 0
	}
	return float64(o.wins) / float64(o.gamesProcessed)
}

// GamesProcessed returns the number of ingested games.
func (o *Orchestrator) GamesProcessed() int {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.gamesProcessed
}

// ModelVersion returns the serving model's version counter.
func (o *Orchestrator) ModelVersion() int64 {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.modelVersion
}

// ShouldUpdate reports whether the trigger conditions for an update hold.
func (o *Orchestrator) ShouldUpdate() bool {
	o.statsMu.Lock()
	processed := o.gamesProcessed
	last := o.lastUpdate
	o.statsMu.Unlock()

	if o.store.Len() < o.config.MinGames {
		return false
	}
	if processed == 0 || processed%o.config.UpdateFrequency != 0 {
		return false
	}
	return last.IsZero() || time.Since(last) >= o.config.Cooldown.Std()
}

// TryUpdate runs an update cycle when the trigger conditions hold. It
// returns false when conditions do not hold or a cycle is already active.
func (o *Orchestrator) TryUpdate(ctx context.Context, patternFocus *learning.LossPatternType) bool {
	if !o.ShouldUpdate() {
		return false
	}

	err := o.UpdateModel(ctx, patternFocus)
	if errors.Is(err, ErrUpdateInProgress) {
		return false
	}
	if err != nil {
		o.logger.Printf("update cycle failed: %v", err)
	}
	return true
}

// UpdateModel runs one full update cycle: backup, sample, train, validate,
// then promote or roll back. A second call while a cycle is active returns
// ErrUpdateInProgress. Every in-cycle failure is mapped to rollback or
// log-only; nothing reaches the ingest path.
func (o *Orchestrator) UpdateModel(ctx context.Context, patternFocus *learning.LossPatternType) error {
	if !o.updateMu.TryLock() {
		return ErrUpdateInProgress
	}
	defer o.updateMu.Unlock()
	defer o.setState(StateIdle)
	defer o.markCycleEnd()

	o.setState(StateTriggered)

	// Step 1: pre-update backup. Backup success is a hard precondition:
	// without it there is no safe rollback point.
	preBlob, err := o.model.Snapshot()
	if err != nil {
		o.publishRejected("snapshot_failed", nil)
		return fmt.Errorf("%w: %v", ErrBackupRequired, err)
	}

	preVersion, err := o.registry.Backup(ctx, preBlob, domainVersion.Metadata{
		Kind:         domainVersion.KindPreUpdate,
		ModelVersion: o.ModelVersion(),
	})
	if err != nil {
		o.publishRejected("backup_failed", nil)
		return fmt.Errorf("%w: %v", ErrBackupRequired, err)
	}

	// Step 2: sample the training batch.
	o.setState(StateSampling)
	batch := o.store.Sample(10*o.config.BatchSize, patternFocus)
	if len(batch) == 0 {
		return ErrNotEnoughData
	}

	// Step 3: train on a background worker bounded by the supervisory
	// timeout. A timeout is handled exactly like a training failure.
	o.setState(StateTraining)
	result, err := o.trainSupervised(ctx, batch)
	if err != nil {
		o.rollback(ctx, preVersion, preBlob)
		o.publishRejected(err.Error(), nil)
		o.logger.Printf("warning: %v, rolled back to version %d", err, preVersion)
		return err
	}

	// Step 4: validate the trained candidate.
	o.setState(StateValidating)
	snapshot, err := o.monitor.Evaluate(ctx, o.model, o.ModelVersion()+1, o.WinRate())
	if err != nil {
		o.rollback(ctx, preVersion, preBlob)
		o.publishRejected("evaluation_failed", nil)
		o.logger.Printf("warning: evaluation failed: %v, rolled back", err)
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	report := o.monitor.CheckStability(snapshot)
	o.bus.PublishStabilityReport(report.IsStable, report.StabilityScore,
		string(report.PerformanceTrend), report.RiskFactors, report.Recommendations)

	if !report.IsStable {
		// Step 5b: reject and roll back.
		o.setState(StateRollingBack)
		o.rollback(ctx, preVersion, preBlob)
		o.publishRejected("unstable", report)
		o.logger.Printf("candidate rejected (score %.3f, risks %v), rolled back",
			report.StabilityScore, report.RiskFactors)
		return ErrValidationFailed
	}

	// Step 5a: promote.
	o.setState(StatePromoting)
	newVersion := o.bumpVersion()

	promotedBlob, err := o.model.Snapshot()
	if err == nil {
		_, err = o.registry.Backup(ctx, promotedBlob, domainVersion.Metadata{
			Kind:             domainVersion.KindPromotion,
			ModelVersion:     newVersion,
			TrainingLoss:     result.FinalLoss(),
			TrainingAccuracy: result.FinalAccuracy(),
			Epochs:           len(result.LossPerEpoch),
			OverallAccuracy:  snapshot.OverallAccuracy,
			StabilityScore:   report.StabilityScore,
		})
	}
	if err != nil {
		// Past training there is a safe rollback point, so a persistence
		// failure no longer blocks promotion.
		o.logger.Printf("error: failed to persist promoted version %d: %v", newVersion, err)
	}

	o.bus.PublishModelUpdated(newVersion, report.StabilityScore, result.FinalLoss())
	o.logger.Printf("model promoted to version %d (score %.3f, %d epochs)",
		newVersion, report.StabilityScore, len(result.LossPerEpoch))

	return nil
}

// trainSupervised drives the model through up to MaxEpochs single-epoch
// fits with early stopping, feeding each epoch's accuracy and loss to the
// scheduler. The work runs on its own goroutine under the training timeout.
func (o *Orchestrator) trainSupervised(ctx context.Context, batch []learning.Experience) (*learning.FitResult, error) {
	trainCtx, cancel := context.WithTimeout(ctx, o.config.TrainingTimeout.Std())
	defer cancel()

	type trainOutcome struct {
		result *learning.FitResult
		err    error
	}

	done := make(chan trainOutcome, 1)
	go func() {
		result, err := o.runEpochs(trainCtx, batch)
		done <- trainOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				return nil, ErrTrainingTimeout
			}
			return nil, fmt.Errorf("%w: %v", ErrTrainingFailed, out.err)
		}
		return out.result, nil
	case <-trainCtx.Done():
		return nil, ErrTrainingTimeout
	}
}

func (o *Orchestrator) runEpochs(ctx context.Context, batch []learning.Experience) (*learning.FitResult, error) {
	lr := o.scheduler.OptimalLR()
	combined := &learning.FitResult{}

	bestLoss := 0.0
	sinceImprove := 0

	for epoch := 0; epoch < o.config.MaxEpochs; epoch++ {
		result, err := o.model.Fit(ctx, batch, lr, 1)
		if err != nil {
			return nil, err
		}

		loss := result.FinalLoss()
		accuracy := result.FinalAccuracy()
		combined.LossPerEpoch = append(combined.LossPerEpoch, loss)
		combined.AccuracyPerEpoch = append(combined.AccuracyPerEpoch, accuracy)

		lr = o.scheduler.Update(accuracy, loss)

		if epoch == 0 || loss < bestLoss {
			bestLoss = loss
			sinceImprove = 0
		} else {
			sinceImprove++
			if sinceImprove >= o.config.EarlyStopPatience {
				break
			}
		}
	}

	return combined, nil
}

// rollback restores the pre-update snapshot, preferring the registry copy
// and falling back to the in-memory blob if the read fails.
func (o *Orchestrator) rollback(ctx context.Context, preVersion int64, preBlob []byte) {
	o.setState(StateRollingBack)

	stored, err := o.registry.Get(ctx, preVersion)
	if err == nil {
		if restoreErr := o.model.Restore(stored.State); restoreErr == nil {
			return
		}
		o.logger.Printf("error: restore from registry version %d failed", preVersion)
	} else {
		o.logger.Printf("error: failed to read rollback version %d: %v", preVersion, err)
	}

	if err := o.model.Restore(preBlob); err != nil {
		o.logger.Printf("error: in-memory rollback failed: %v", err)
	}
}

func (o *Orchestrator) publishRejected(reason string, report *learning.StabilityReport) {
	score := 0.0
	var risks []string
	if report != nil {
		score = report.StabilityScore
		risks = report.RiskFactors
	}
	o.bus.PublishModelUpdateRejected(reason, score, risks)
}

func (o *Orchestrator) bumpVersion() int64 {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	o.modelVersion++
	return o.modelVersion
}

func (o *Orchestrator) markCycleEnd() {
	o.statsMu.Lock()
	o.lastUpdate = time.Now()
	o.statsMu.Unlock()
}

// RestoreVersion is the operator-triggered recovery path: it restores an
// arbitrary retained version onto the serving model.
func (o *Orchestrator) RestoreVersion(ctx context.Context, version int64) error {
	o.updateMu.Lock()
	defer o.updateMu.Unlock()

	if err := registry.Restore(ctx, o.registry, o.model, version); err != nil {
		return fmt.Errorf("restore version %d: %w", version, err)
	}

	o.logger.Printf("restored model from version %d", version)
	return nil
}

// Rollback restores the most recent retained version.
func (o *Orchestrator) Rollback(ctx context.Context) error {
	o.updateMu.Lock()
	defer o.updateMu.Unlock()

	latest, err := o.registry.Latest(ctx)
	if err != nil {
		return err
	}
	if err := o.model.Restore(latest.State); err != nil {
		return fmt.Errorf("rollback to version %d: %w", latest.Version, err)
	}

	o.logger.Printf("rolled back model to version %d", latest.Version)
	return nil
}

// Status is a point-in-time view for operators.
type Status struct {
	State          State     `json:"state"`
	GamesProcessed int       `json:"gamesProcessed"`
	WinRate        float64   `json:"winRate"`
	BufferLen      int       `json:"bufferLen"`
	ModelVersion   int64     `json:"modelVersion"`
	CurrentLR      float64   `json:"currentLR"`
	LastUpdate     time.Time `json:"lastUpdate,omitempty"`
	DroppedEvents  int64     `json:"droppedEvents"`
}

// Status returns the orchestrator's current status.
func (o *Orchestrator) Status() Status {
	o.statsMu.Lock()
	processed := o.gamesProcessed
	wins := o.wins
	last := o.lastUpdate
	version := o.modelVersion
	o.statsMu.Unlock()

	winRate := 0.0
	if processed > 0 {
		winRate = float64(wins) / float64(processed)
	}

	return Status{
		State:          o.State(),
		GamesProcessed: processed,
		WinRate:        winRate,
		BufferLen:      o.store.Len(),
		ModelVersion:   version,
		CurrentLR:      o.scheduler.CurrentLR(),
		LastUpdate:     last,
		DroppedEvents:  o.bus.Dropped(),
	}
}
