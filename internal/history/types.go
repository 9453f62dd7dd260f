package history

import "time"

// Entry is one recorded conversion or masking request. Input text is never
// stored, only its hash and size.
type Entry struct {
	ID          int64     `db:"id" json:"id"`
	Operation   string    `db:"operation" json:"operation"`
	InputHash   string    `db:"input_hash" json:"input_hash"`
	InputBytes  int       `db:"input_bytes" json:"input_bytes"`
	OutputBytes int       `db:"output_bytes" json:"output_bytes"`
	Success     bool      `db:"success" json:"success"`
	ErrorKind   string    `db:"error_kind" json:"error_kind,omitempty"`
	Findings    int       `db:"findings" json:"findings"`
	DurationMS  float64   `db:"duration_ms" json:"duration_ms"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Stats summarizes recorded usage.
type Stats struct {
	TotalEntries  int64   `db:"total_entries" json:"total_entries"`
	FailedEntries int64   `db:"failed_entries" json:"failed_entries"`
	TotalFindings int64   `db:"total_findings" json:"total_findings"`
	AvgDurationMS float64 `db:"avg_duration_ms" json:"avg_duration_ms"`
}

// OperationCount is one row of the per-operation usage breakdown.
type OperationCount struct {
	Operation string `db:"operation" json:"operation"`
	Count     int64  `db:"count" json:"count"`
}
