package batch

import (
	"strings"
	"time"
)

// Record represents a single row from the input dataset
type Record struct {
	Text   string `csv:"text" parquet:"text" json:"text"`
	Source string `csv:"source" parquet:"source" json:"source"`
}

// Result represents the outcome of processing one dataset file
type Result struct {
	TotalRecords   int64            `json:"total_records"`
	MaskedRecords  int64            `json:"masked_records"`
	Skipped        int64            `json:"skipped"`
	TotalFindings  int64            `json:"total_findings"`
	FindingsByType map[string]int64 `json:"findings_by_type"`
	Duration       time.Duration    `json:"duration"`
	Errors         []string         `json:"errors,omitempty"`
}

// Config contains batch pipeline configuration
type Config struct {
	BatchSize      int  `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	ValidateData   bool `yaml:"validate_data" mapstructure:"validate_data"`     // true
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"` // 1000
	RecordHistory  bool `yaml:"record_history" mapstructure:"record_history"`   // false
}

// DefaultConfig returns pipeline defaults
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      1000,
		ValidateData:   true,
		ProgressReport: 1000,
	}
}

// FileFormat represents supported dataset file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSONL   FileFormat = "jsonl"
)

// DetectFileFormat detects file format from extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case strings.HasSuffix(filename, ".parquet"):
		return FormatParquet
	case strings.HasSuffix(filename, ".jsonl"), strings.HasSuffix(filename, ".json"):
		return FormatJSONL
	default:
		return FormatCSV
	}
}
