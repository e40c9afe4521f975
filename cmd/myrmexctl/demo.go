package main

import (
	"math/rand"
	"sort"

	"myrmex/internal/sim"
	"myrmex/pkg/myrmex"
)

// colonyExploreRequest wires the foraging benchmark into an exploration: the
// population explores the colony's explore-rate parameter, spread evenly at
// the start and then jittered and recombined between generations.
func colonyExploreRequest(cfg runConfig) myrmex.ExploreRequest {
	rng := rand.New(rand.NewSource(cfg.Seed))

	encode := func(explore float32, seed int64) string {
		params, err := sim.ColonyParams{
			Sites:   cfg.Sites,
			Ants:    cfg.Ants,
			Explore: explore,
			Seed:    seed,
		}.Encode()
		if err != nil {
			// ColonyParams carries only scalars; Marshal cannot fail.
			panic(err)
		}
		return params
	}
	decode := func(individual string) sim.ColonyParams {
		p, err := sim.DecodeColonyParams(individual)
		if err != nil {
			panic(err)
		}
		return p
	}

	return myrmex.ExploreRequest{
		InitPopulation: func() []string {
			population := make([]string, cfg.Population)
			for i := range population {
				explore := 0.05 + 0.45*float32(i)/float32(cfg.Population)
				population[i] = encode(explore, cfg.Seed+int64(i))
			}
			return population
		},
		NewSimulation: sim.NewColony,
		Fitness:       sim.ColonyFitness,
		Selection: func(population *[]myrmex.Scored) {
			scored := *population
			sort.SliceStable(scored, func(i, j int) bool {
				return scored[i].Fitness > scored[j].Fitness
			})
			keep := len(scored) / 2
			if keep < 2 {
				keep = len(scored)
			}
			*population = scored[:keep]
		},
		Mutation: func(individual *string) {
			p := decode(*individual)
			p.Explore += (rng.Float32() - 0.5) * 0.1
			if p.Explore < 0 {
				p.Explore = 0
			}
			if p.Explore > 1 {
				p.Explore = 1
			}
			p.Seed = rng.Int63()
			*individual = encode(p.Explore, p.Seed)
		},
		Crossover: func(population *[]string) {
			parents := *population
			for len(*population) < cfg.Population {
				a := decode(parents[rng.Intn(len(parents))])
				b := decode(parents[rng.Intn(len(parents))])
				child := (a.Explore + b.Explore) / 2
				*population = append(*population, encode(child, rng.Int63()))
			}
		},
		Processes:      cfg.Processes,
		Generations:    uint32(cfg.Generations),
		DesiredFitness: float32(cfg.DesiredFitness),
		Steps:          cfg.Steps,
	}
}
