package storage

import (
	"context"

	"myrmex/internal/model"
)

// Store defines persistence operations for exploration runs: the run
// summary, the full per-generation record history, and the best individual
// found over the run.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunSummary) error
	GetRun(ctx context.Context, runID string) (model.RunSummary, bool, error)
	ListRuns(ctx context.Context) ([]model.RunSummary, error)
	SaveHistory(ctx context.Context, runID string, history []model.GenerationRecord) error
	GetHistory(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
	SaveBest(ctx context.Context, runID string, best model.GenerationRecord) error
	GetBest(ctx context.Context, runID string) (model.GenerationRecord, bool, error)
}
