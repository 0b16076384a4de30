// Package shared provides shared types used across all modules in gridmind-go.
package shared

import (
	"time"
)

// ============================================================================
// Event Types
// ============================================================================

// EventType represents the type of an event.
type EventType string

const (
	EventLearningProgress    EventType = "learning:progress"
	EventPatternInsights     EventType = "learning:patternInsights"
	EventModelUpdated        EventType = "model:updated"
	EventModelUpdateRejected EventType = "model:updateRejected"
	EventStabilityReport     EventType = "model:stabilityReport"
)

// Severity classifies operator-visible failures carried on events.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event represents a generic event in the system.
type Event struct {
	ID        string                 `json:"id,omitempty"`
	Type      EventType              `json:"type"`
	Severity  Severity               `json:"severity,omitempty"`
	Timestamp int64                  `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// Now returns the current time in milliseconds.
func Now() int64 {
	return time.Now().UnixMilli()
}
