package runtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rgehrsitz/rexscan/pkg/logging"
	"rgehrsitz/rexscan/pkg/resource"
)

// RecordSource supplies the records of one category. The caller owns its
// lifecycle; the engine never opens or closes it.
type RecordSource interface {
	Records(ctx context.Context, category resource.Category) ([]resource.Record, error)
}

// ScanResult is one filtered report plus the facts needed to reproduce it.
type ScanResult struct {
	RunID    string
	Category resource.Category
	MinScore int
	Records  int
	Rules    int
	Report   Report
}

// Scan scores every record of category with the catalog's rules for that
// category and keeps the profiles scoring at least minScore.
func (e *Engine) Scan(ctx context.Context, src RecordSource, category resource.Category, minScore int) (*ScanResult, error) {
	if _, err := Filter(nil, minScore); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	logger := logging.Logger.With().Str("run_id", runID).Str("category", string(category)).Logger()
	start := time.Now()

	records, err := src.Records(ctx, category)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to read records", err,
			map[string]interface{}{"category": string(category)})
	}
	rules := e.catalog.RulesFor(category)

	report, err := e.Aggregate(ctx, rules, records)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeRuntime, "aggregation aborted", err,
			map[string]interface{}{"run_id": runID})
	}
	filtered, err := Filter(report, minScore)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("records", len(records)).
		Int("rules", len(rules)).
		Int("reported", len(filtered)).
		Dur("elapsed", time.Since(start)).
		Msg("Scan complete")

	return &ScanResult{
		RunID:    runID,
		Category: category,
		MinScore: minScore,
		Records:  len(records),
		Rules:    len(rules),
		Report:   filtered,
	}, nil
}
