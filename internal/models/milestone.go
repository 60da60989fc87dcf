// ABOUTME: Derived timeline types; milestone periods are computed, never stored
// ABOUTME: Each period groups deltas with its confidence and significance summary
package models

import "time"

// Granularity picks how deltas are grouped into periods
type Granularity string

const (
	GranularityMonth   Granularity = "month"
	GranularitySession Granularity = "session"
)

// UnattributedPeriod keys deltas without a source session at session granularity
const UnattributedPeriod = "unattributed"

// TimelineEntry is one delta annotated for display
type TimelineEntry struct {
	Delta    FieldDelta `json:"delta" yaml:"delta"`
	Category Category   `json:"category" yaml:"category"`
	Added    []string   `json:"added,omitempty" yaml:"added,omitempty"`
}

// MilestonePeriod summarises the deltas of one month or one session
type MilestonePeriod struct {
	PeriodKey     string          `json:"period_key" yaml:"period_key"`
	Deltas        []TimelineEntry `json:"deltas" yaml:"deltas"`
	AvgConfidence float64         `json:"avg_confidence" yaml:"avg_confidence"`
	CategoryCount int             `json:"category_count" yaml:"category_count"`
	Categories    []Category      `json:"categories" yaml:"categories"`
	IsSignificant bool            `json:"is_significant" yaml:"is_significant"`
	StartedAt     time.Time       `json:"started_at" yaml:"started_at"`
	EndedAt       time.Time       `json:"ended_at" yaml:"ended_at"`
}
