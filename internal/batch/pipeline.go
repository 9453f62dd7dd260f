package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/textmill/textmill/internal/convert"
	"github.com/textmill/textmill/internal/history"
	"github.com/textmill/textmill/internal/masking"
)

// records longer than this are skipped during validation
const maxTextBytes = 1 << 20

// Pipeline masks PII in dataset files record by record
type Pipeline struct {
	engine  *masking.Engine
	history *history.Store // optional, nil when disabled
	config  *Config
	logger  *zap.Logger
	mu      sync.RWMutex
	stats   *Result
}

// NewPipeline creates a new batch masking pipeline
func NewPipeline(engine *masking.Engine, store *history.Store, config *Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		engine:  engine,
		history: store,
		config:  config,
		logger:  logger,
		stats:   newResult(),
	}
}

func newResult() *Result {
	return &Result{FindingsByType: make(map[string]int64)}
}

// ProcessFile masks the text column of a dataset file and writes the
// result to outputPath in the same format
func (p *Pipeline) ProcessFile(ctx context.Context, inputPath, outputPath string) (*Result, error) {
	start := time.Now()
	format := DetectFileFormat(inputPath)

	p.logger.Info("Starting batch masking",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.String("format", string(format)),
		zap.Int("batch_size", p.config.BatchSize))

	result := newResult()
	p.mu.Lock()
	p.stats = result
	p.mu.Unlock()

	var err error
	switch format {
	case FormatCSV:
		err = p.processCSV(ctx, inputPath, outputPath, result)
	case FormatParquet:
		err = p.processParquet(ctx, inputPath, outputPath, result)
	case FormatJSONL:
		err = p.processJSONL(ctx, inputPath, outputPath, result)
	default:
		err = fmt.Errorf("unsupported file format: %s", format)
	}
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}

	p.logger.Info("Batch masking completed",
		zap.Int64("total_records", result.TotalRecords),
		zap.Int64("masked_records", result.MaskedRecords),
		zap.Int64("skipped", result.Skipped),
		zap.Int64("total_findings", result.TotalFindings),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// processCSV masks the "text" column of a CSV file. The whole file is
// parsed with the same CSV semantics the conversion endpoints use.
func (p *Pipeline) processCSV(ctx context.Context, inputPath, outputPath string, result *Result) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read CSV file: %w", err)
	}

	rows := convert.ParseCSV(string(data))
	if len(rows) == 0 {
		return fmt.Errorf("CSV file has no rows")
	}

	header := rows[0]
	textCol := 0
	for i, name := range header {
		if strings.EqualFold(name, "text") {
			textCol = i
			break
		}
	}
	p.logger.Info("CSV header detected", zap.Strings("columns", header), zap.Int("text_column", textCol))

	// mask the text cell in place; all other columns pass through untouched
	out := make([][]string, 0, len(rows))
	out = append(out, header)

	batchRows := make([][]string, 0, p.config.BatchSize)
	flush := func() error {
		batch := make([]Record, len(batchRows))
		for i, row := range batchRows {
			batch[i] = Record{Text: row[textCol]}
		}
		masked, err := p.maskBatch(ctx, batch, result)
		if err != nil {
			return err
		}
		for i, row := range batchRows {
			row[textCol] = masked[i].Text
			out = append(out, row)
		}
		batchRows = batchRows[:0]
		return nil
	}

	for _, row := range rows[1:] {
		if len(row) <= textCol {
			result.Skipped++
			continue
		}
		rec := Record{Text: row[textCol]}
		if !p.validateRecord(&rec) {
			result.Skipped++
			continue
		}
		batchRows = append(batchRows, row)
		if len(batchRows) >= p.config.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	return os.WriteFile(outputPath, []byte(convert.SerializeCSV(out)), 0644)
}

// processJSONL masks records in a JSON-lines file
func (p *Pipeline) processJSONL(ctx context.Context, inputPath, outputPath string, result *Result) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	decoder := json.NewDecoder(in)
	encoder := json.NewEncoder(out)

	batch := make([]Record, 0, p.config.BatchSize)
	flush := func() error {
		masked, err := p.maskBatch(ctx, batch, result)
		if err != nil {
			return err
		}
		for i := range masked {
			if err := encoder.Encode(&masked[i]); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
		batch = batch[:0]
		return nil
	}

	for {
		var rec Record
		if err := decoder.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			p.logger.Warn("Failed to read JSONL record", zap.Error(err))
			result.Skipped++
			result.Errors = append(result.Errors, err.Error())
			break
		}
		if !p.validateRecord(&rec) {
			result.Skipped++
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= p.config.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// processParquet masks records in a Parquet file
func (p *Pipeline) processParquet(ctx context.Context, inputPath, outputPath string, result *Result) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	reader := parquet.NewReader(in)
	defer reader.Close()

	writer := parquet.NewWriter(out, parquet.SchemaOf(Record{}))

	batch := make([]Record, 0, p.config.BatchSize)
	flush := func() error {
		masked, err := p.maskBatch(ctx, batch, result)
		if err != nil {
			return err
		}
		for i := range masked {
			if err := writer.Write(&masked[i]); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
		batch = batch[:0]
		return nil
	}

	for {
		var rec Record
		if err := reader.Read(&rec); err == io.EOF {
			break
		} else if err != nil {
			p.logger.Warn("Failed to read Parquet record", zap.Error(err))
			result.Skipped++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if !p.validateRecord(&rec) {
			result.Skipped++
			continue
		}
		batch = append(batch, rec)
		if len(batch) >= p.config.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return writer.Close()
}

// maskBatch masks one batch of records and updates counters
func (p *Pipeline) maskBatch(ctx context.Context, batch []Record, result *Result) ([]Record, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	masked := make([]Record, len(batch))
	var entries []*history.Entry

	for i, rec := range batch {
		maskResult := p.engine.Mask(rec.Text)
		masked[i] = Record{Text: maskResult.MaskedText, Source: rec.Source}

		result.TotalRecords++
		findings := 0
		for _, f := range maskResult.Findings {
			result.FindingsByType[f.EntityType] += int64(f.Count)
			findings += f.Count
		}
		if findings > 0 {
			result.MaskedRecords++
			result.TotalFindings += int64(findings)
		}

		if p.config.RecordHistory && p.history != nil {
			entries = append(entries, &history.Entry{
				Operation:  "batch-mask",
				InputHash:  history.HashInput(rec.Text),
				InputBytes: len(rec.Text),
				Success:    true,
				Findings:   findings,
			})
		}
	}

	if len(entries) > 0 {
		if err := p.history.BatchInsert(ctx, entries); err != nil {
			p.logger.Warn("Failed to record batch history", zap.Error(err))
		}
	}

	if p.config.ProgressReport > 0 && result.TotalRecords%int64(p.config.ProgressReport) < int64(len(batch)) {
		p.reportProgress(result)
	}

	p.mu.Lock()
	p.stats = result
	p.mu.Unlock()

	return masked, nil
}

// validateRecord checks a record before masking
func (p *Pipeline) validateRecord(record *Record) bool {
	if !p.config.ValidateData {
		return true
	}
	if strings.TrimSpace(record.Text) == "" {
		p.logger.Debug("Invalid record: empty text")
		return false
	}
	if len(record.Text) > maxTextBytes {
		p.logger.Debug("Invalid record: text too long", zap.Int("length", len(record.Text)))
		return false
	}
	return true
}

// reportProgress logs current processing progress
func (p *Pipeline) reportProgress(result *Result) {
	p.logger.Info("Masking progress",
		zap.Int64("records_processed", result.TotalRecords),
		zap.Int64("masked_records", result.MaskedRecords),
		zap.Int64("total_findings", result.TotalFindings),
		zap.Int64("skipped", result.Skipped))
}

// GetStats returns a snapshot of the current run's counters
func (p *Pipeline) GetStats() *Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stats := *p.stats
	return &stats
}
