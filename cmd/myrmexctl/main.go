package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"myrmex/internal/explore"
	"myrmex/internal/logging"
	"myrmex/pkg/myrmex"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "worker":
		return runWorker(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "history":
		return runHistory(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: myrmexctl <run|worker|runs|history|best> [flags]", msg)
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config TOML path")
	processes := fs.Int("processes", 0, "in-process rank count (overrides config)")
	population := fs.Int("pop", 0, "population size (overrides config)")
	generations := fs.Int("gens", -1, "generation cap, 0 for unbounded (overrides config)")
	desiredFitness := fs.Float64("desired-fitness", -1, "early-stop fitness target (overrides config)")
	steps := fs.Int("steps", 0, "per-individual step budget (overrides config)")
	sites := fs.Int("sites", 0, "colony site count (overrides config)")
	ants := fs.Int("ants", 0, "colony ant count (overrides config)")
	seed := fs.Int64("seed", 0, "rng seed (overrides config)")
	storeKind := fs.String("store", "", "store backend: memory|sqlite (overrides config)")
	dbPath := fs.String("db-path", "", "sqlite database path (overrides config)")
	listen := fs.String("listen", "", "run as TCP root on this address instead of in-process ranks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := defaultRunConfig()
	if *configPath != "" {
		loaded, err := loadRunConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "processes":
			cfg.Processes = *processes
		case "pop":
			cfg.Population = *population
		case "gens":
			cfg.Generations = *generations
		case "desired-fitness":
			cfg.DesiredFitness = *desiredFitness
		case "steps":
			cfg.Steps = *steps
		case "sites":
			cfg.Sites = *sites
		case "ants":
			cfg.Ants = *ants
		case "seed":
			cfg.Seed = *seed
		case "store":
			cfg.Store = *storeKind
		case "db-path":
			cfg.DBPath = *dbPath
		}
	})
	if err := cfg.validate(); err != nil {
		return err
	}

	log := logging.New("myrmexctl", logging.ProfileRuntime)
	client, err := myrmex.New(myrmex.Options{
		StoreKind: cfg.Store,
		DBPath:    cfg.DBPath,
		Logger:    &log,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	req := colonyExploreRequest(cfg)

	var summary myrmex.ExploreSummary
	if *listen != "" {
		t, err := explore.ListenAndAccept(ctx, *listen, cfg.Processes, log)
		if err != nil {
			return err
		}
		defer func() {
			_ = t.Close()
		}()
		summary, err = client.ExploreOver(ctx, req, t)
		if err != nil {
			return err
		}
	} else {
		summary, err = client.Explore(ctx, req)
		if err != nil {
			return err
		}
	}

	fmt.Printf("run completed run_id=%s stop_reason=%s generations=%d evaluations=%d\n",
		summary.RunID, summary.StopReason, summary.Generations, summary.Evaluations)
	if summary.BestFound {
		fmt.Printf("best fitness=%.6f generation=%d individual=%s\n",
			summary.BestFitness, summary.BestGeneration, summary.BestIndividual)
	}
	return nil
}

func runWorker(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config TOML path (must match the root's)")
	connect := fs.String("connect", "", "root address to join")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *connect == "" {
		return errors.New("worker requires -connect")
	}

	cfg := defaultRunConfig()
	if *configPath != "" {
		loaded, err := loadRunConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	log := logging.New("myrmexctl", logging.ProfileRuntime)
	t, err := explore.DialRoot(ctx, *connect, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = t.Close()
	}()

	client, err := myrmex.New(myrmex.Options{Logger: &log})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	summary, err := client.ExploreOver(ctx, colonyExploreRequest(cfg), t)
	if err != nil {
		return err
	}
	fmt.Printf("worker done rank=%d stop_reason=%s\n", t.Rank(), summary.StopReason)
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs as JSON")
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "myrmex.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := queryClient(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s pop=%d processes=%d gens=%d stop_reason=%s best_fitness=%.6f\n",
			r.RunID, r.CreatedAtUTC, r.PopulationSize, r.Processes, r.Generations, r.StopReason, r.BestFitness)
	}
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	limit := fs.Int("limit", 50, "max records to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit history as JSON")
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "myrmex.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("history requires -run-id")
	}

	client, err := queryClient(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.History(ctx, *runID)
	if err != nil {
		return err
	}
	if *limit > 0 && len(history) > *limit {
		history = history[:*limit]
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}
	for _, rec := range history {
		fmt.Printf("generation=%d index=%d fitness=%.6f individual=%s\n",
			rec.Generation, rec.Index, rec.Fitness, rec.Individual)
	}
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit best record as JSON")
	storeKind := fs.String("store", "sqlite", "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "myrmex.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("best requires -run-id")
	}

	client, err := queryClient(ctx, *storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	best, err := client.Best(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(best)
	}
	fmt.Printf("generation=%d index=%d fitness=%.6f individual=%s\n",
		best.Generation, best.Index, best.Fitness, best.Individual)
	return nil
}

func queryClient(ctx context.Context, storeKind, dbPath string) (*myrmex.Client, error) {
	client, err := myrmex.New(myrmex.Options{StoreKind: storeKind, DBPath: dbPath})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
