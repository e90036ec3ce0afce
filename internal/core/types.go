package core

import (
	"strings"
	"time"
)

// Frequency is the temporal granularity of a table's observations.
type Frequency int

const (
	FrequencyUnknown Frequency = iota
	FrequencyMonthly
	FrequencyQuarterly
	FrequencyAnnually
)

// ParseFrequency converts configuration text to a Frequency.
// Matching is case-insensitive; unrecognised text yields FrequencyUnknown.
func ParseFrequency(s string) Frequency {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly":
		return FrequencyMonthly
	case "quarterly":
		return FrequencyQuarterly
	case "annually":
		return FrequencyAnnually
	default:
		return FrequencyUnknown
	}
}

func (f Frequency) String() string {
	switch f {
	case FrequencyMonthly:
		return "MONTHLY"
	case FrequencyQuarterly:
		return "QUARTERLY"
	case FrequencyAnnually:
		return "ANNUALLY"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler so frequencies serialize by name.
func (f Frequency) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// SourceType identifies the publisher a table is fetched from.
type SourceType int

const (
	SourceUnknown SourceType = iota
	SourceStatsCan
)

// ParseSourceType converts configuration text to a SourceType.
// The literal "unknown" maps to SourceUnknown; any other unrecognised
// text maps to fallback.
func ParseSourceType(s string, fallback SourceType) SourceType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unknown":
		return SourceUnknown
	case "statscan":
		return SourceStatsCan
	default:
		return fallback
	}
}

func (s SourceType) String() string {
	if s == SourceStatsCan {
		return "STATSCAN"
	}
	return "UNKNOWN"
}

// TableDescriptor describes one dataset to acquire.
// It is built once from configuration and treated as read-only afterwards.
type TableDescriptor struct {
	Name       string     // Unique within a run
	URL        string     // Location of the zip archive
	Category   string     // Label attached to every emitted record
	Indicator  string     // Label attached to every emitted record
	Frequency  Frequency  // Observation frequency of the table
	Source     SourceType // Publisher; only SourceStatsCan is actionable
	Enabled    bool       // Disabled tables are skipped
	DataFilter string     // Registry key of the data CSV filter
	MetaFilter string     // Registry key of the metadata CSV filter (unused by the pipeline)
}

// Record is the canonical unit emitted by a filter for one qualifying row.
// Storage keys on (Indicator, Category, Date); Frequency is informational.
type Record struct {
	Value     int64
	Indicator string
	Category  string
	Date      time.Time
	Frequency Frequency
}

// Row is one CSV data row keyed by exact header name.
// Columns absent from a short row are absent from the map.
type Row map[string]string

// Column names shared by StatsCan full-table CSVs.
const (
	ColumnRefDate      = "REF_DATE"
	ColumnGeo          = "GEO"
	ColumnValue        = "VALUE"
	ColumnScalarFactor = "SCALAR_FACTOR"
)
