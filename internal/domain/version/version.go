// Package version provides domain types for model version snapshots.
package version

import (
	"errors"
	"time"
)

// Sentinel errors for registry implementations.
var (
	ErrStoreInitFailed = errors.New("version store initialization failed")
	ErrStoreClosed     = errors.New("version store is closed")
	ErrVersionNotFound = errors.New("version not found")
	ErrBackupFailed    = errors.New("version backup failed")
	ErrNoVersions      = errors.New("no versions stored")
)

// Kind distinguishes why a snapshot was taken.
type Kind string

const (
	// KindPreUpdate is the safety snapshot taken before training starts.
	KindPreUpdate Kind = "pre_update"

	// KindPromotion is a validated candidate promoted to serving.
	KindPromotion Kind = "promotion"
)

// Metadata is the sidecar record stored alongside each snapshot blob.
type Metadata struct {
	// Kind is the snapshot reason.
	Kind Kind `json:"kind"`

	// ModelVersion is the serving model's version counter at creation.
	ModelVersion int64 `json:"modelVersion"`

	// TrainingLoss is the final training loss, for promotions.
	TrainingLoss float64 `json:"trainingLoss,omitempty"`

	// TrainingAccuracy is the final training accuracy, for promotions.
	TrainingAccuracy float64 `json:"trainingAccuracy,omitempty"`

	// Epochs is the number of training epochs run, for promotions.
	Epochs int `json:"epochs,omitempty"`

	// OverallAccuracy is the evaluation accuracy at creation.
	OverallAccuracy float64 `json:"overallAccuracy,omitempty"`

	// StabilityScore is the stability verdict at creation.
	StabilityScore float64 `json:"stabilityScore,omitempty"`
}

// ModelVersion is one retained snapshot. Owned exclusively by the registry.
type ModelVersion struct {
	// Version is the registry's monotonically increasing handle.
	Version int64 `json:"version"`

	// State is the opaque serialized model.
	State []byte `json:"-"`

	// Metadata is the sidecar record.
	Metadata Metadata `json:"metadata"`

	// CreatedAt is when the snapshot was persisted.
	CreatedAt time.Time `json:"createdAt"`
}
