package myrmex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"myrmex/internal/explore"
	"myrmex/internal/logging"
	"myrmex/internal/model"
	"myrmex/internal/sim"
	"myrmex/internal/storage"
)

const defaultDBPath = "myrmex.db"

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zerolog.Logger
}

// Client is the embedding surface of the toolkit: it runs explorations over
// an in-process group and answers queries against the persisted run store.
type Client struct {
	store storage.Store
	log   zerolog.Logger
}

// ExploreRequest configures one distributed exploration. The four population
// callbacks plus NewSimulation and Fitness mirror the coordinator config; the
// remaining fields are run bounds with client-side defaults.
type ExploreRequest struct {
	InitPopulation func() []string
	NewSimulation  func(params string) (Simulation, error)
	Fitness        func(s Simulation, sched Scheduler) float32
	Selection      func(population *[]Scored)
	Mutation       func(individual *string)
	Crossover      func(population *[]string)

	Processes      int
	Generations    uint32
	DesiredFitness float32
	Steps          int
}

// Re-exported coordinator and simulation types so embedders only import this
// package.
type (
	Simulation = sim.Simulation
	Scheduler  = sim.Scheduler
	Agent      = sim.Agent
	Schedule   = sim.Schedule
	Scored     = explore.Scored
	Transport  = explore.Transport
)

// NewSchedule builds the default sequential scheduler.
func NewSchedule() *Schedule {
	return sim.NewSchedule()
}

type ExploreSummary struct {
	RunID          string
	StopReason     model.StopReason
	Generations    uint32
	BestFitness    float32
	BestIndividual string
	BestGeneration uint32
	BestFound      bool
	Evaluations    int
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}

	log := logging.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Client{store: store, log: log}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Explore runs one exploration over an in-process group of req.Processes
// ranks and persists the summary, history, and best individual under a fresh
// run id.
func (c *Client) Explore(ctx context.Context, req ExploreRequest) (ExploreSummary, error) {
	if req.Processes <= 0 {
		req.Processes = 1
	}
	coordinator, runID, sizeRef, err := c.buildCoordinator(req)
	if err != nil {
		return ExploreSummary{}, err
	}

	var rootResult explore.Result
	err = explore.LaunchGroup(ctx, req.Processes, func(ctx context.Context, t explore.Transport) error {
		result, err := coordinator.Run(ctx, t)
		if err != nil {
			return fmt.Errorf("rank %d: %w", t.Rank(), err)
		}
		if t.Rank() == 0 {
			rootResult = result
		}
		return nil
	})
	if err != nil {
		return ExploreSummary{}, err
	}
	return c.persistRun(ctx, runID, req, *sizeRef, req.Processes, rootResult)
}

// ExploreOver runs one rank of an exploration on a caller-provided transport.
// Root ranks persist the run and return a full summary; worker ranks return a
// summary carrying only the stop reason.
func (c *Client) ExploreOver(ctx context.Context, req ExploreRequest, t Transport) (ExploreSummary, error) {
	coordinator, runID, sizeRef, err := c.buildCoordinator(req)
	if err != nil {
		return ExploreSummary{}, err
	}
	result, err := coordinator.Run(ctx, t)
	if err != nil {
		return ExploreSummary{}, fmt.Errorf("rank %d: %w", t.Rank(), err)
	}
	if t.Rank() != 0 {
		return ExploreSummary{StopReason: result.StopReason, Generations: result.Generations}, nil
	}
	return c.persistRun(ctx, runID, req, *sizeRef, t.Size(), result)
}

func (c *Client) buildCoordinator(req ExploreRequest) (*explore.Coordinator, string, *int, error) {
	if req.NewSimulation == nil {
		return nil, "", nil, errors.New("simulation factory is required")
	}
	if req.Fitness == nil {
		return nil, "", nil, errors.New("fitness callback is required")
	}
	if req.Steps <= 0 {
		req.Steps = 100
	}

	runID := uuid.NewString()
	log := c.log.With().Str("run_id", runID).Logger()

	populationSize := new(int)
	cfg := explore.Config{
		NewSimulation:  req.NewSimulation,
		Fitness:        req.Fitness,
		Selection:      req.Selection,
		Mutation:       req.Mutation,
		Crossover:      req.Crossover,
		DesiredFitness: req.DesiredFitness,
		Generations:    req.Generations,
		Steps:          req.Steps,
		Logger:         &log,
	}
	if req.InitPopulation != nil {
		initPopulation := req.InitPopulation
		cfg.InitPopulation = func() []string {
			population := initPopulation()
			*populationSize = len(population)
			return population
		}
	}
	coordinator, err := explore.New(cfg)
	if err != nil {
		return nil, "", nil, err
	}
	return coordinator, runID, populationSize, nil
}

func (c *Client) persistRun(ctx context.Context, runID string, req ExploreRequest, populationSize, processes int, result explore.Result) (ExploreSummary, error) {
	steps := req.Steps
	if steps <= 0 {
		steps = 100
	}
	summary := model.RunSummary{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:          runID,
		CreatedAtUTC:   time.Now().UTC().Format(time.RFC3339Nano),
		PopulationSize: populationSize,
		Processes:      processes,
		Generations:    result.Generations,
		DesiredFitness: req.DesiredFitness,
		StepBudget:     steps,
		StopReason:     result.StopReason,
	}
	if result.BestFound {
		summary.BestFitness = result.Best.Fitness
		summary.BestGeneration = result.Best.Generation
	}
	if err := c.store.SaveRun(ctx, summary); err != nil {
		return ExploreSummary{}, err
	}
	if err := c.store.SaveHistory(ctx, runID, result.History); err != nil {
		return ExploreSummary{}, err
	}
	if result.BestFound {
		if err := c.store.SaveBest(ctx, runID, result.Best); err != nil {
			return ExploreSummary{}, err
		}
	}

	return ExploreSummary{
		RunID:          runID,
		StopReason:     result.StopReason,
		Generations:    result.Generations,
		BestFitness:    result.Best.Fitness,
		BestIndividual: result.Best.Individual,
		BestGeneration: result.Best.Generation,
		BestFound:      result.BestFound,
		Evaluations:    len(result.History),
	}, nil
}

func (c *Client) Runs(ctx context.Context, limit int) ([]model.RunSummary, error) {
	if limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[len(runs)-limit:]
	}
	return runs, nil
}

func (c *Client) History(ctx context.Context, runID string) ([]model.GenerationRecord, error) {
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	history, ok, err := c.store.GetHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("history not found for run id: %s", runID)
	}
	return history, nil
}

func (c *Client) Best(ctx context.Context, runID string) (model.GenerationRecord, error) {
	if runID == "" {
		return model.GenerationRecord{}, errors.New("run id is required")
	}
	best, ok, err := c.store.GetBest(ctx, runID)
	if err != nil {
		return model.GenerationRecord{}, err
	}
	if !ok {
		return model.GenerationRecord{}, fmt.Errorf("best not found for run id: %s", runID)
	}
	return best, nil
}
