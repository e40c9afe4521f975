package explore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"myrmex/internal/model"
	"myrmex/internal/sim"
)

// Scored pairs an individual with the fitness it reached this generation.
// The user selection callback receives the whole population as Scored pairs
// and may shrink it in place.
type Scored struct {
	Individual string
	Fitness    float32
}

// Config holds the user-supplied genetic operators and run bounds for one
// exploration. Every rank of the group is constructed with the same config;
// the population callbacks (InitPopulation, Selection, Mutation, Crossover)
// are only invoked on the root.
type Config struct {
	// InitPopulation produces the initial ordered population of serialized
	// individuals. Root only.
	InitPopulation func() []string

	// NewSimulation constructs a simulation from an individual's
	// serialized parameters. Required on every rank.
	NewSimulation sim.Factory

	// NewSchedule builds the scheduler driving one individual's
	// simulation. Defaults to sim.NewSchedule.
	NewSchedule func() sim.Scheduler

	// Fitness scores a completed simulation. Required on every rank.
	Fitness sim.Fitness

	// Selection may shrink the population in place; a result of size <= 1
	// terminates the run with a population collapse. Root only.
	Selection func(population *[]Scored)

	// Mutation is applied to each surviving individual. Root only.
	Mutation func(individual *string)

	// Crossover is applied over the full post-mutation population.
	// Root only.
	Crossover func(population *[]string)

	// DesiredFitness terminates the run once any individual reaches it.
	DesiredFitness float32

	// Generations caps the number of generations; 0 means unbounded.
	Generations uint32

	// Steps is the per-individual simulation step budget.
	Steps int

	// Logger defaults to a disabled logger.
	Logger *zerolog.Logger
}

// Result is the outcome of a run. History and the best-ever record are
// accumulated on the root; worker ranks return only the stop reason and the
// generation they stopped in.
type Result struct {
	History     []model.GenerationRecord
	Best        model.GenerationRecord
	BestFound   bool
	StopReason  model.StopReason
	Generations uint32
}

// Coordinator drives the generational search loop over a Transport:
// dispatch, evaluate, gather, then selection/mutation/crossover on the root.
type Coordinator struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config) (*Coordinator, error) {
	if cfg.NewSimulation == nil {
		return nil, fmt.Errorf("simulation factory is required")
	}
	if cfg.Fitness == nil {
		return nil, fmt.Errorf("fitness callback is required")
	}
	if cfg.Steps < 0 {
		return nil, fmt.Errorf("step budget must be >= 0")
	}
	if cfg.NewSchedule == nil {
		cfg.NewSchedule = func() sim.Scheduler { return sim.NewSchedule() }
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Coordinator{cfg: cfg, log: log}, nil
}

// Run executes the exploration on this rank's side of the transport and
// blocks until the whole group terminates. All ranks terminate in the same
// generation: the post-gather flag broadcast is the only generation-boundary
// barrier, and stop notices replace the dispatch when the root ends the run
// between boundaries.
func (c *Coordinator) Run(ctx context.Context, t Transport) (Result, error) {
	if t.Rank() == 0 {
		return c.runRoot(ctx, t)
	}
	return c.runWorker(ctx, t)
}

func (c *Coordinator) runRoot(ctx context.Context, t Transport) (Result, error) {
	if c.cfg.InitPopulation == nil {
		return Result{}, fmt.Errorf("init population callback is required on the root")
	}
	if c.cfg.Selection == nil {
		return Result{}, fmt.Errorf("selection callback is required on the root")
	}
	if c.cfg.Mutation == nil {
		return Result{}, fmt.Errorf("mutation callback is required on the root")
	}
	if c.cfg.Crossover == nil {
		return Result{}, fmt.Errorf("crossover callback is required on the root")
	}

	size := t.Size()
	population := c.cfg.InitPopulation()

	var history []model.GenerationRecord
	var tracker model.BestTracker

	finish := func(reason model.StopReason, generations uint32) Result {
		result := Result{
			History:     history,
			StopReason:  reason,
			Generations: generations,
		}
		result.Best, result.BestFound = tracker.Best()
		return result
	}

	if len(population) == 0 {
		if err := c.stopAll(ctx, t, model.StopReasonEmptyPopulation); err != nil {
			return Result{}, err
		}
		return finish(model.StopReasonEmptyPopulation, 0), nil
	}

	generation := uint32(0)
	for {
		if c.cfg.Generations != 0 && generation == c.cfg.Generations {
			// Workers share the config and detect the cap locally.
			c.log.Info().Uint32("generations", generation).Msg("generation cap reached")
			return finish(model.StopReasonGenerationCap, generation), nil
		}
		generation++

		sizes := ShardSizes(len(population), size)
		offsets := ShardOffsets(sizes)
		for rank := 1; rank < size; rank++ {
			shard := population[offsets[rank] : offsets[rank]+sizes[rank]]
			if err := t.SendDispatch(ctx, rank, Dispatch{Shard: shard}); err != nil {
				return Result{}, err
			}
		}

		local, err := c.evaluateShard(ctx, population[:sizes[0]], generation)
		if err != nil {
			return Result{}, err
		}
		gathered, err := t.GatherRecords(ctx, local, sizes)
		if err != nil {
			return Result{}, err
		}

		// Rewrite each shard's local indices into the global population
		// index space and scan for the generation best.
		bestOfGeneration := float32(0)
		reached := false
		rank, within := 0, 0
		for i := range gathered {
			for within >= sizes[rank] {
				rank++
				within = 0
			}
			gathered[i].Index += int32(offsets[rank])
			within++

			if i == 0 || gathered[i].Fitness > bestOfGeneration {
				bestOfGeneration = gathered[i].Fitness
			}
			tracker.Observe(gathered[i])
			if gathered[i].Fitness >= c.cfg.DesiredFitness {
				reached = true
			}
		}
		history = append(history, gathered...)

		best, _ := tracker.Best()
		c.log.Info().
			Uint32("generation", generation).
			Float32("best", bestOfGeneration).
			Float32("best_ever", best.Fitness).
			Msg("generation complete")

		// The flag broadcast is the generation-boundary barrier: every
		// rank observes the same value before advancing.
		if _, err := t.BroadcastFlag(ctx, reached); err != nil {
			return Result{}, err
		}
		if reached {
			return finish(model.StopReasonFitnessReached, generation), nil
		}

		scored := make([]Scored, 0, len(gathered))
		for _, rec := range gathered {
			scored = append(scored, Scored{Individual: rec.Individual, Fitness: rec.Fitness})
		}
		c.cfg.Selection(&scored)
		if len(scored) <= 1 {
			if c.cfg.Generations != 0 && generation == c.cfg.Generations {
				// Workers exit at the cap check without reading another
				// dispatch; a stop notice here would never be consumed.
				return finish(model.StopReasonGenerationCap, generation), nil
			}
			if err := c.stopAll(ctx, t, model.StopReasonPopulationCollapse); err != nil {
				return Result{}, err
			}
			return finish(model.StopReasonPopulationCollapse, generation), nil
		}

		next := make([]string, len(scored))
		for i := range scored {
			individual := scored[i].Individual
			c.cfg.Mutation(&individual)
			next[i] = individual
		}
		c.cfg.Crossover(&next)
		population = next
	}
}

func (c *Coordinator) runWorker(ctx context.Context, t Transport) (Result, error) {
	generation := uint32(0)
	for {
		if c.cfg.Generations != 0 && generation == c.cfg.Generations {
			return Result{StopReason: model.StopReasonGenerationCap, Generations: generation}, nil
		}
		generation++

		d, err := t.RecvDispatch(ctx)
		if err != nil {
			return Result{}, err
		}
		if d.Stop {
			return Result{StopReason: d.Reason, Generations: generation - 1}, nil
		}

		records, err := c.evaluateShard(ctx, d.Shard, generation)
		if err != nil {
			return Result{}, err
		}
		if _, err := t.GatherRecords(ctx, records, nil); err != nil {
			return Result{}, err
		}

		flag, err := t.BroadcastFlag(ctx, false)
		if err != nil {
			return Result{}, err
		}
		if flag {
			return Result{StopReason: model.StopReasonFitnessReached, Generations: generation}, nil
		}
	}
}

// evaluateShard runs every individual of the shard for the configured step
// budget and emits one record per individual, indexed locally within the
// shard.
func (c *Coordinator) evaluateShard(ctx context.Context, shard []string, generation uint32) ([]model.GenerationRecord, error) {
	records := make([]model.GenerationRecord, 0, len(shard))
	for i, params := range shard {
		simulation, err := c.cfg.NewSimulation(params)
		if err != nil {
			return nil, fmt.Errorf("construct individual %d of generation %d: %w", i, generation, err)
		}
		sched := c.cfg.NewSchedule()
		simulation.Init(sched)
		if err := sim.RunBounded(ctx, simulation, sched, c.cfg.Steps); err != nil {
			return nil, err
		}
		records = append(records, model.GenerationRecord{
			Generation: generation,
			Index:      int32(i),
			Fitness:    c.cfg.Fitness(simulation, sched),
			Individual: params,
		})
	}
	return records, nil
}

func (c *Coordinator) stopAll(ctx context.Context, t Transport, reason model.StopReason) error {
	for rank := 1; rank < t.Size(); rank++ {
		if err := t.SendDispatch(ctx, rank, Dispatch{Stop: true, Reason: reason}); err != nil {
			return err
		}
	}
	return nil
}
