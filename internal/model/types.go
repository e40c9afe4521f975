package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// GenerationRecord is the result of evaluating one individual in one
// generation. Index is local to the evaluating shard until the root rewrites
// it into the global population index space during the gather.
type GenerationRecord struct {
	Generation uint32  `json:"generation"`
	Index      int32   `json:"index"`
	Fitness    float32 `json:"fitness"`
	Individual string  `json:"individual,omitempty"`
}

// BestTracker keeps the running maximum over all observed records.
// Replacement happens only on strictly greater fitness, so ties keep the
// first-seen record.
type BestTracker struct {
	best GenerationRecord
	seen bool
}

func (t *BestTracker) Observe(rec GenerationRecord) {
	if !t.seen || rec.Fitness > t.best.Fitness {
		t.best = rec
		t.seen = true
	}
}

func (t *BestTracker) Best() (GenerationRecord, bool) {
	return t.best, t.seen
}

// StopReason reports why an exploration run terminated.
type StopReason string

const (
	StopReasonGenerationCap      StopReason = "generation_cap"
	StopReasonFitnessReached     StopReason = "fitness_reached"
	StopReasonPopulationCollapse StopReason = "population_collapse"
	StopReasonEmptyPopulation    StopReason = "empty_population"
)

// RunSummary is the persisted description of one exploration run.
type RunSummary struct {
	VersionedRecord
	RunID          string     `json:"run_id"`
	CreatedAtUTC   string     `json:"created_at_utc"`
	PopulationSize int        `json:"population_size"`
	Processes      int        `json:"processes"`
	Generations    uint32     `json:"generations"`
	DesiredFitness float32    `json:"desired_fitness"`
	StepBudget     int        `json:"step_budget"`
	StopReason     StopReason `json:"stop_reason"`
	BestFitness    float32    `json:"best_fitness"`
	BestGeneration uint32     `json:"best_generation"`
}
