package storage

import (
	"context"
	"testing"

	"myrmex/internal/model"
)

func TestMemoryStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	run := model.RunSummary{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		RunID:           "run-1",
		CreatedAtUTC:    "2026-08-24T10:00:00Z",
		PopulationSize:  10,
		Processes:       4,
		StopReason:      model.StopReasonFitnessReached,
		BestFitness:     0.92,
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	loaded, ok, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run")
	}
	if loaded.RunID != run.RunID || loaded.StopReason != run.StopReason {
		t.Fatalf("unexpected run: %+v", loaded)
	}
}

func TestMemoryStoreListRunsOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	newer := model.RunSummary{RunID: "run-b", CreatedAtUTC: "2026-08-24T11:00:00Z"}
	older := model.RunSummary{RunID: "run-a", CreatedAtUTC: "2026-08-24T10:00:00Z"}
	if err := store.SaveRun(ctx, newer); err != nil {
		t.Fatalf("save run: %v", err)
	}
	if err := store.SaveRun(ctx, older); err != nil {
		t.Fatalf("save run: %v", err)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-a" || runs[1].RunID != "run-b" {
		t.Fatalf("unexpected run ordering: %+v", runs)
	}
}

func TestMemoryStoreHistoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	input := []model.GenerationRecord{
		{Generation: 1, Index: 0, Fitness: 0.4, Individual: "a"},
		{Generation: 1, Index: 1, Fitness: 0.6, Individual: "b"},
		{Generation: 2, Index: 0, Fitness: 0.8, Individual: "a'"},
	}
	if err := store.SaveHistory(ctx, "run-1", input); err != nil {
		t.Fatalf("save history: %v", err)
	}

	output, ok, err := store.GetHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted history")
	}
	if len(output) != len(input) || output[2].Fitness != input[2].Fitness {
		t.Fatalf("unexpected history: %+v", output)
	}

	// Returned slices are copies of the stored state.
	output[0].Fitness = -1
	again, _, err := store.GetHistory(ctx, "run-1")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if again[0].Fitness != input[0].Fitness {
		t.Fatalf("stored history mutated through returned slice: %+v", again)
	}
}

func TestMemoryStoreBestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	best := model.GenerationRecord{Generation: 3, Index: 7, Fitness: 0.95, Individual: "champion"}
	if err := store.SaveBest(ctx, "run-1", best); err != nil {
		t.Fatalf("save best: %v", err)
	}

	loaded, ok, err := store.GetBest(ctx, "run-1")
	if err != nil {
		t.Fatalf("get best: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted best")
	}
	if loaded != best {
		t.Fatalf("unexpected best: %+v", loaded)
	}

	_, ok, err = store.GetBest(ctx, "run-missing")
	if err != nil {
		t.Fatalf("get missing best: %v", err)
	}
	if ok {
		t.Fatal("expected no best for unknown run")
	}
}
