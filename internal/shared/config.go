package shared

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use Go duration strings
// like "5m" or "30s".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration in Go's duration syntax.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML emits the duration in Go's duration syntax.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// StoreConfig configures the experience replay store.
type StoreConfig struct {
	// Capacity is the maximum number of experiences held.
	Capacity int `json:"capacity" yaml:"capacity"`

	// PatternCapacityDivisor bounds each pattern sub-buffer to Capacity/divisor.
	PatternCapacityDivisor int `json:"patternCapacityDivisor" yaml:"patternCapacityDivisor"`

	// BetaInitial is the starting importance-sampling exponent.
	BetaInitial float64 `json:"betaInitial" yaml:"betaInitial"`

	// BetaIncrement is added to beta on every sample call.
	BetaIncrement float64 `json:"betaIncrement" yaml:"betaIncrement"`

	// PriorityEpsilon keeps stored priorities strictly positive.
	PriorityEpsilon float64 `json:"priorityEpsilon" yaml:"priorityEpsilon"`

	// PatternSampleFraction is the share of a pattern-focused batch drawn
	// from the matching sub-buffer.
	PatternSampleFraction float64 `json:"patternSampleFraction" yaml:"patternSampleFraction"`
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Capacity:               10000,
		PatternCapacityDivisor: 4,
		BetaInitial:            0.4,
		BetaIncrement:          0.001,
		PriorityEpsilon:        0.01,
		PatternSampleFraction:  0.7,
	}
}

// SchedulerConfig configures the adaptive learning-rate scheduler.
type SchedulerConfig struct {
	InitialLR        float64 `json:"initialLR" yaml:"initialLR"`
	MinLR            float64 `json:"minLR" yaml:"minLR"`
	MaxLR            float64 `json:"maxLR" yaml:"maxLR"`
	Patience         int     `json:"patience" yaml:"patience"`
	PlateauStdDev    float64 `json:"plateauStdDev" yaml:"plateauStdDev"`
	DecayFactor      float64 `json:"decayFactor" yaml:"decayFactor"`
	GrowthFactor     float64 `json:"growthFactor" yaml:"growthFactor"`
	HistorySize      int     `json:"historySize" yaml:"historySize"`
	OptimalLRMinimum int     `json:"optimalLRMinimum" yaml:"optimalLRMinimum"`
}

// DefaultSchedulerConfig returns the default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		InitialLR:        0.001,
		MinLR:            1e-6,
		MaxLR:            0.01,
		Patience:         5,
		PlateauStdDev:    0.01,
		DecayFactor:      0.5,
		GrowthFactor:     1.1,
		HistorySize:      50,
		OptimalLRMinimum: 10,
	}
}

// MonitorConfig configures the stability monitor.
type MonitorConfig struct {
	// CatastrophicThreshold is the baseline-accuracy drop treated as
	// catastrophic forgetting.
	CatastrophicThreshold float64 `json:"catastrophicThreshold" yaml:"catastrophicThreshold"`

	// StabilityFloor is the minimum stability score for promotion.
	StabilityFloor float64 `json:"stabilityFloor" yaml:"stabilityFloor"`

	// PatternDegradedRatio flags a pattern whose defense rate fell below
	// this fraction of its baseline.
	PatternDegradedRatio float64 `json:"patternDegradedRatio" yaml:"patternDegradedRatio"`

	// VariabilityThreshold flags high variance over the last ten snapshots.
	VariabilityThreshold float64 `json:"variabilityThreshold" yaml:"variabilityThreshold"`

	// SuiteFloor flags any test suite scoring below this value.
	SuiteFloor float64 `json:"suiteFloor" yaml:"suiteFloor"`

	// HistorySize bounds the retained snapshot history.
	HistorySize int `json:"historySize" yaml:"historySize"`
}

// DefaultMonitorConfig returns the default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		CatastrophicThreshold: 0.15,
		StabilityFloor:        0.7,
		PatternDegradedRatio:  0.8,
		VariabilityThreshold:  0.1,
		SuiteFloor:            0.7,
		HistorySize:           100,
	}
}

// RegistryConfig configures the model version registry.
type RegistryConfig struct {
	// Path is the SQLite database path.
	Path string `json:"path" yaml:"path"`

	// Retention is the number of versions kept.
	Retention int `json:"retention" yaml:"retention"`
}

// DefaultRegistryConfig returns the default registry configuration.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		Path:      ".data/versions.db",
		Retention: 20,
	}
}

// OrchestratorConfig configures the update orchestrator.
type OrchestratorConfig struct {
	// MinGames is the minimum buffered experience count before an update.
	MinGames int `json:"minGames" yaml:"minGames"`

	// UpdateFrequency triggers an update every N processed games.
	UpdateFrequency int `json:"updateFrequency" yaml:"updateFrequency"`

	// Cooldown is the minimum time between update cycles.
	Cooldown Duration `json:"cooldown" yaml:"cooldown"`

	// BatchSize scales the training batch; the sampled batch is 10x this.
	BatchSize int `json:"batchSize" yaml:"batchSize"`

	// MaxEpochs caps training epochs per cycle.
	MaxEpochs int `json:"maxEpochs" yaml:"maxEpochs"`

	// EarlyStopPatience stops training after this many epochs without
	// loss improvement.
	EarlyStopPatience int `json:"earlyStopPatience" yaml:"earlyStopPatience"`

	// TrainingTimeout bounds a single training call; timing out is
	// treated the same as a training failure.
	TrainingTimeout Duration `json:"trainingTimeout" yaml:"trainingTimeout"`

	// PatternLossPriority is the replay priority for losses along a
	// diagonal or anti-diagonal line.
	PatternLossPriority float64 `json:"patternLossPriority" yaml:"patternLossPriority"`

	// LossPriority is the replay priority for any other loss.
	LossPriority float64 `json:"lossPriority" yaml:"lossPriority"`

	// BasePriority is the replay priority for wins and draws.
	BasePriority float64 `json:"basePriority" yaml:"basePriority"`

	// TerminalLossWindow is the number of final moves whose reward is
	// doubled on a loss.
	TerminalLossWindow int `json:"terminalLossWindow" yaml:"terminalLossWindow"`

	// ProgressInterval emits a learning_progress event every N games.
	ProgressInterval int `json:"progressInterval" yaml:"progressInterval"`
}

// DefaultOrchestratorConfig returns the default orchestrator configuration.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		MinGames:            50,
		UpdateFrequency:     100,
		Cooldown:            Duration(5 * time.Minute),
		BatchSize:           32,
		MaxEpochs:           10,
		EarlyStopPatience:   3,
		TrainingTimeout:     Duration(2 * time.Minute),
		PatternLossPriority: 3.0,
		LossPriority:        2.0,
		BasePriority:        1.0,
		TerminalLossWindow:  5,
		ProgressInterval:    25,
	}
}

// LearnerConfig is the top-level configuration for the learner.
type LearnerConfig struct {
	Store        StoreConfig        `json:"store" yaml:"store"`
	Scheduler    SchedulerConfig    `json:"scheduler" yaml:"scheduler"`
	Monitor      MonitorConfig      `json:"monitor" yaml:"monitor"`
	Registry     RegistryConfig     `json:"registry" yaml:"registry"`
	Orchestrator OrchestratorConfig `json:"orchestrator" yaml:"orchestrator"`
}

// DefaultLearnerConfig returns the default learner configuration.
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		Store:        DefaultStoreConfig(),
		Scheduler:    DefaultSchedulerConfig(),
		Monitor:      DefaultMonitorConfig(),
		Registry:     DefaultRegistryConfig(),
		Orchestrator: DefaultOrchestratorConfig(),
	}
}

// LoadConfig reads a YAML learner configuration, starting from defaults.
func LoadConfig(path string) (LearnerConfig, error) {
	config := DefaultLearnerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}
