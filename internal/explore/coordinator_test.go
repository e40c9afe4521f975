package explore

import (
	"context"
	"strconv"
	"testing"

	"myrmex/internal/model"
	"myrmex/internal/sim"
)

// counterSim parses its individual as an integer and scores it as value/3.
// With a mutation that increments every survivor, generation g evaluates
// value g, so a desired fitness of 1.0 is reached exactly in generation 3.
type counterSim struct {
	value int
}

func newCounterSim(params string) (sim.Simulation, error) {
	v, err := strconv.Atoi(params)
	if err != nil {
		return nil, err
	}
	return &counterSim{value: v}, nil
}

func (s *counterSim) Init(sim.Scheduler) {}

func (s *counterSim) EndCondition(sim.Scheduler) bool { return true }

func counterFitness(s sim.Simulation, _ sim.Scheduler) float32 {
	return float32(s.(*counterSim).value) / 3
}

func counterConfig(populationSize int) Config {
	return Config{
		InitPopulation: func() []string {
			population := make([]string, populationSize)
			for i := range population {
				population[i] = "1"
			}
			return population
		},
		NewSimulation: newCounterSim,
		Fitness:       counterFitness,
		Selection:     func(*[]Scored) {},
		Mutation: func(individual *string) {
			v, _ := strconv.Atoi(*individual)
			*individual = strconv.Itoa(v + 1)
		},
		Crossover:      func(*[]string) {},
		DesiredFitness: 1.0,
		Steps:          1,
	}
}

func runGroup(t *testing.T, p int, cfg Config) []Result {
	t.Helper()
	results := make([]Result, p)
	err := LaunchGroup(context.Background(), p, func(ctx context.Context, tr Transport) error {
		c, err := New(cfg)
		if err != nil {
			return err
		}
		res, err := c.Run(ctx, tr)
		if err != nil {
			return err
		}
		results[tr.Rank()] = res
		return nil
	})
	if err != nil {
		t.Fatalf("group run: %v", err)
	}
	return results
}

func checkGlobalIndices(t *testing.T, history []model.GenerationRecord, populationSize int) {
	t.Helper()
	seen := make(map[uint32]map[int32]bool)
	for _, rec := range history {
		if seen[rec.Generation] == nil {
			seen[rec.Generation] = make(map[int32]bool)
		}
		if seen[rec.Generation][rec.Index] {
			t.Fatalf("generation %d has duplicate index %d", rec.Generation, rec.Index)
		}
		seen[rec.Generation][rec.Index] = true
		if rec.Index < 0 || rec.Index >= int32(populationSize) {
			t.Fatalf("generation %d index %d out of range [0, %d)", rec.Generation, rec.Index, populationSize)
		}
	}
	for gen, indices := range seen {
		if len(indices) != populationSize {
			t.Fatalf("generation %d has %d records, want %d", gen, len(indices), populationSize)
		}
	}
}

func TestRunFitnessReachedAllRanks(t *testing.T) {
	const p, populationSize = 3, 7
	results := runGroup(t, p, counterConfig(populationSize))

	for rank, res := range results {
		if res.StopReason != model.StopReasonFitnessReached {
			t.Errorf("rank %d stopped with %q, want %q", rank, res.StopReason, model.StopReasonFitnessReached)
		}
		if res.Generations != 3 {
			t.Errorf("rank %d stopped in generation %d, want 3", rank, res.Generations)
		}
	}

	root := results[0]
	if len(root.History) != 3*populationSize {
		t.Fatalf("root history has %d records, want %d", len(root.History), 3*populationSize)
	}
	checkGlobalIndices(t, root.History, populationSize)
	if !root.BestFound {
		t.Fatal("root has no best record")
	}
	if root.Best.Generation != 3 || root.Best.Fitness != 1.0 {
		t.Fatalf("best = generation %d fitness %v, want generation 3 fitness 1", root.Best.Generation, root.Best.Fitness)
	}
	for rank := 1; rank < p; rank++ {
		if len(results[rank].History) != 0 || results[rank].BestFound {
			t.Errorf("rank %d accumulated history, workers must not", rank)
		}
	}
}

func TestRunGenerationCap(t *testing.T) {
	const p, populationSize = 3, 7
	cfg := counterConfig(populationSize)
	cfg.DesiredFitness = 10
	cfg.Generations = 2
	results := runGroup(t, p, cfg)

	for rank, res := range results {
		if res.StopReason != model.StopReasonGenerationCap {
			t.Errorf("rank %d stopped with %q, want %q", rank, res.StopReason, model.StopReasonGenerationCap)
		}
		if res.Generations != 2 {
			t.Errorf("rank %d stopped in generation %d, want 2", rank, res.Generations)
		}
	}
	if len(results[0].History) != 2*populationSize {
		t.Fatalf("root history has %d records, want %d", len(results[0].History), 2*populationSize)
	}
}

func TestRunPopulationCollapse(t *testing.T) {
	const p, populationSize = 2, 6
	cfg := counterConfig(populationSize)
	cfg.DesiredFitness = 10
	cfg.Selection = func(population *[]Scored) {
		*population = (*population)[:1]
	}
	results := runGroup(t, p, cfg)

	for rank, res := range results {
		if res.StopReason != model.StopReasonPopulationCollapse {
			t.Errorf("rank %d stopped with %q, want %q", rank, res.StopReason, model.StopReasonPopulationCollapse)
		}
		if res.Generations != 1 {
			t.Errorf("rank %d stopped in generation %d, want 1", rank, res.Generations)
		}
	}
}

func TestRunCollapseAtGenerationCap(t *testing.T) {
	const p = 3
	cfg := counterConfig(6)
	cfg.DesiredFitness = 10
	cfg.Generations = 1
	cfg.Selection = func(population *[]Scored) {
		*population = (*population)[:1]
	}
	results := runGroup(t, p, cfg)

	// Workers stop at the cap without reading another dispatch, so the root
	// must report the cap too instead of sending an unconsumable stop notice.
	for rank, res := range results {
		if res.StopReason != model.StopReasonGenerationCap {
			t.Errorf("rank %d stopped with %q, want %q", rank, res.StopReason, model.StopReasonGenerationCap)
		}
		if res.Generations != 1 {
			t.Errorf("rank %d stopped in generation %d, want 1", rank, res.Generations)
		}
	}
}

func TestRunEmptyPopulation(t *testing.T) {
	cfg := counterConfig(0)
	cfg.InitPopulation = func() []string { return nil }
	results := runGroup(t, 3, cfg)

	for rank, res := range results {
		if res.StopReason != model.StopReasonEmptyPopulation {
			t.Errorf("rank %d stopped with %q, want %q", rank, res.StopReason, model.StopReasonEmptyPopulation)
		}
		if res.Generations != 0 {
			t.Errorf("rank %d stopped in generation %d, want 0", rank, res.Generations)
		}
	}
}

func TestRunMoreRanksThanPopulation(t *testing.T) {
	const p, populationSize = 4, 2
	cfg := counterConfig(populationSize)
	cfg.DesiredFitness = 10
	cfg.Generations = 1
	results := runGroup(t, p, cfg)

	if len(results[0].History) != populationSize {
		t.Fatalf("root history has %d records, want %d", len(results[0].History), populationSize)
	}
	checkGlobalIndices(t, results[0].History, populationSize)
}

func TestRunSingleRank(t *testing.T) {
	results := runGroup(t, 1, counterConfig(5))
	res := results[0]
	if res.StopReason != model.StopReasonFitnessReached || res.Generations != 3 {
		t.Fatalf("single-rank run: stop %q generation %d, want %q generation 3", res.StopReason, res.Generations, model.StopReasonFitnessReached)
	}
	if len(res.History) != 15 {
		t.Fatalf("history has %d records, want 15", len(res.History))
	}
}

func TestRunIndexRewriteMatchesPopulationOrder(t *testing.T) {
	const p, populationSize = 3, 7
	cfg := counterConfig(populationSize)
	cfg.DesiredFitness = 10
	cfg.Generations = 1
	cfg.InitPopulation = func() []string {
		population := make([]string, populationSize)
		for i := range population {
			population[i] = strconv.Itoa(100 + i)
		}
		return population
	}
	results := runGroup(t, p, cfg)

	for _, rec := range results[0].History {
		want := strconv.Itoa(100 + int(rec.Index))
		if rec.Individual != want {
			t.Errorf("index %d carries individual %q, want %q", rec.Index, rec.Individual, want)
		}
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Fitness: counterFitness}); err == nil {
		t.Error("missing simulation factory accepted")
	}
	if _, err := New(Config{NewSimulation: newCounterSim}); err == nil {
		t.Error("missing fitness callback accepted")
	}
	if _, err := New(Config{NewSimulation: newCounterSim, Fitness: counterFitness, Steps: -1}); err == nil {
		t.Error("negative step budget accepted")
	}
}

func TestRunRootRequiresCallbacks(t *testing.T) {
	cfg := counterConfig(4)
	cfg.Selection = nil
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr := NewChannelGroup(1)[0]
	if _, err := c.Run(context.Background(), tr); err == nil {
		t.Fatal("root ran without a selection callback")
	}
}
