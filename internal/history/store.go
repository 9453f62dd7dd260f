package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/textmill/textmill/internal/config"
)

// Store records conversion usage in PostgreSQL
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS conversion_history (
	id           BIGSERIAL PRIMARY KEY,
	operation    TEXT NOT NULL,
	input_hash   TEXT NOT NULL,
	input_bytes  INTEGER NOT NULL,
	output_bytes INTEGER NOT NULL,
	success      BOOLEAN NOT NULL,
	error_kind   TEXT NOT NULL DEFAULT '',
	findings     INTEGER NOT NULL DEFAULT 0,
	duration_ms  DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversion_history_operation_idx ON conversion_history (operation);
CREATE INDEX IF NOT EXISTS conversion_history_created_at_idx ON conversion_history (created_at);`

// NewStore creates a new history store instance
func NewStore(cfg *config.HistoryConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("History store initialized successfully",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns))

	return store, nil
}

// initialize checks the database connection and ensures the schema exists
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// Record inserts a single usage entry
func (s *Store) Record(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO conversion_history (operation, input_hash, input_bytes, output_bytes, success, error_kind, findings, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		entry.Operation,
		entry.InputHash,
		entry.InputBytes,
		entry.OutputBytes,
		entry.Success,
		entry.ErrorKind,
		entry.Findings,
		entry.DurationMS,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		s.logger.Error("Failed to record history entry",
			zap.Error(err),
			zap.String("operation", entry.Operation))
		return fmt.Errorf("failed to record history entry: %w", err)
	}

	s.logger.Debug("History entry recorded",
		zap.Int64("id", entry.ID),
		zap.String("operation", entry.Operation))

	return nil
}

// BatchInsert inserts multiple usage entries efficiently
func (s *Store) BatchInsert(ctx context.Context, entries []*Entry) error {
	if len(entries) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(entries))
	valueArgs := make([]interface{}, 0, len(entries)*8)

	for i, entry := range entries {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*8+1, i*8+2, i*8+3, i*8+4, i*8+5, i*8+6, i*8+7, i*8+8))
		valueArgs = append(valueArgs,
			entry.Operation,
			entry.InputHash,
			entry.InputBytes,
			entry.OutputBytes,
			entry.Success,
			entry.ErrorKind,
			entry.Findings,
			entry.DurationMS,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO conversion_history (operation, input_hash, input_bytes, output_bytes, success, error_kind, findings, duration_ms)
		VALUES %s`,
		strings.Join(valueStrings, ","))

	if _, err := s.db.ExecContext(ctx, query, valueArgs...); err != nil {
		s.logger.Error("Batch history insert failed", zap.Error(err))
		return fmt.Errorf("batch history insert failed: %w", err)
	}

	s.logger.Debug("Batch history insert completed", zap.Int("entries", len(entries)))
	return nil
}

// Recent returns the most recent entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []*Entry
	query := `
		SELECT id, operation, input_hash, input_bytes, output_bytes, success, error_kind, findings, duration_ms, created_at
		FROM conversion_history
		ORDER BY created_at DESC
		LIMIT $1`

	if err := s.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent entries: %w", err)
	}

	return entries, nil
}

// GetStats returns aggregate usage statistics
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	query := `
		SELECT
			COUNT(*) AS total_entries,
			COUNT(*) FILTER (WHERE NOT success) AS failed_entries,
			COALESCE(SUM(findings), 0) AS total_findings,
			COALESCE(AVG(duration_ms), 0) AS avg_duration_ms
		FROM conversion_history`

	if err := s.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	return &stats, nil
}

// CountByOperation returns usage counts grouped by operation
func (s *Store) CountByOperation(ctx context.Context) ([]*OperationCount, error) {
	var counts []*OperationCount
	query := `
		SELECT operation, COUNT(*) AS count
		FROM conversion_history
		GROUP BY operation
		ORDER BY count DESC`

	if err := s.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to query operation counts: %w", err)
	}

	return counts, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// HashInput computes the SHA-256 hash stored in place of input text
func HashInput(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// maskDatabaseURL masks credentials in a database URL for logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
