package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultLearnerConfig(t *testing.T) {
	config := DefaultLearnerConfig()

	if config.Store.Capacity != 10000 {
		t.Errorf("expected store capacity 10000, got %d", config.Store.Capacity)
	}
	if config.Scheduler.InitialLR != 0.001 {
		t.Errorf("expected initial LR 0.001, got %v", config.Scheduler.InitialLR)
	}
	if config.Monitor.CatastrophicThreshold != 0.15 {
		t.Errorf("expected catastrophic threshold 0.15, got %v", config.Monitor.CatastrophicThreshold)
	}
	if config.Orchestrator.Cooldown.Std() != 5*time.Minute {
		t.Errorf("expected 5m cooldown, got %v", config.Orchestrator.Cooldown)
	}
	if config.Registry.Retention != 20 {
		t.Errorf("expected retention 20, got %d", config.Registry.Retention)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
store:
  capacity: 500
orchestrator:
  minGames: 10
  cooldown: 30s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if config.Store.Capacity != 500 {
		t.Errorf("expected capacity override 500, got %d", config.Store.Capacity)
	}
	if config.Orchestrator.MinGames != 10 {
		t.Errorf("expected minGames override 10, got %d", config.Orchestrator.MinGames)
	}
	if config.Orchestrator.Cooldown.Std() != 30*time.Second {
		t.Errorf("expected cooldown 30s, got %v", config.Orchestrator.Cooldown)
	}
	// Untouched sections keep their defaults.
	if config.Scheduler.Patience != 5 {
		t.Errorf("expected default patience 5, got %d", config.Scheduler.Patience)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClonePayloadIsolatesMutations(t *testing.T) {
	original := map[string]interface{}{
		"risks":  []string{"catastrophic_forgetting"},
		"scores": []float64{0.9, 0.8},
		"nested": map[string]interface{}{"count": 3},
	}

	cloned := ClonePayload(original)

	original["risks"].([]string)[0] = "mutated"
	original["nested"].(map[string]interface{})["count"] = 99

	if cloned["risks"].([]string)[0] != "catastrophic_forgetting" {
		t.Error("string slice not deep-copied")
	}
	if cloned["nested"].(map[string]interface{})["count"] != 3 {
		t.Error("nested map not deep-copied")
	}
}

func TestClonePayloadNil(t *testing.T) {
	if got := ClonePayload(nil); got != nil {
		t.Errorf("expected nil clone, got %v", got)
	}
}

func TestNowIsMilliseconds(t *testing.T) {
	before := time.Now().UnixMilli()
	got := Now()
	after := time.Now().UnixMilli()

	if got < before || got > after {
		t.Errorf("Now() = %d outside [%d, %d]", got, before, after)
	}
}
