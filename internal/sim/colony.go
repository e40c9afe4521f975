package sim

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"myrmex/internal/field"
)

// ColonyParams is the serialized individual of the built-in foraging
// benchmark: a colony of ants covering a hypergraph of sites. Explore is the
// probability of a random jump instead of following an incident trail.
type ColonyParams struct {
	Sites   int     `json:"sites"`
	Ants    int     `json:"ants"`
	Explore float32 `json:"explore"`
	Seed    int64   `json:"seed"`
}

func (p ColonyParams) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func DecodeColonyParams(individual string) (ColonyParams, error) {
	var p ColonyParams
	if err := json.Unmarshal([]byte(individual), &p); err != nil {
		return ColonyParams{}, err
	}
	return p, nil
}

// Colony is the foraging benchmark simulation. Sites form a ring with a
// three-endpoint trail hyperedge every third site; ants walk the published
// edge generation and the run ends when every site has been visited.
type Colony struct {
	params  ColonyParams
	graph   *field.Hypergraph[int, string]
	siteIDs []uint32
	rng     *rand.Rand
	visited map[int]struct{}
}

func NewColony(params string) (Simulation, error) {
	var p ColonyParams
	if err := json.Unmarshal([]byte(params), &p); err != nil {
		return nil, fmt.Errorf("parse colony params: %w", err)
	}
	if p.Sites <= 0 {
		return nil, fmt.Errorf("colony needs sites > 0, got %d", p.Sites)
	}
	if p.Ants <= 0 {
		return nil, fmt.Errorf("colony needs ants > 0, got %d", p.Ants)
	}
	if p.Explore < 0 || p.Explore > 1 {
		return nil, fmt.Errorf("explore must be in [0, 1], got %v", p.Explore)
	}
	return &Colony{params: p}, nil
}

func (c *Colony) Init(sched Scheduler) {
	c.rng = rand.New(rand.NewSource(c.params.Seed))
	c.graph = field.NewHypergraph[int, string]()
	c.visited = make(map[int]struct{})

	c.siteIDs = make([]uint32, c.params.Sites)
	for site := 0; site < c.params.Sites; site++ {
		c.siteIDs[site] = c.graph.AddNode(site)
	}
	for site := 0; site < c.params.Sites; site++ {
		next := (site + 1) % c.params.Sites
		if next == site {
			continue
		}
		c.graph.AddEdge([]int{site, next}, field.Simple[string]())
		if site%3 == 0 {
			chord := (site + c.params.Sites/2) % c.params.Sites
			if chord != site && chord != next {
				c.graph.AddEdge([]int{site, next, chord}, field.Labeled("trail"))
			}
		}
	}
	c.graph.Update()

	registrar, ok := sched.(interface{ Register(Agent) })
	if !ok {
		return
	}
	for i := 0; i < c.params.Ants; i++ {
		registrar.Register(&forager{colony: c, at: (i * c.params.Sites) / c.params.Ants})
	}
}

func (c *Colony) EndCondition(Scheduler) bool {
	return len(c.visited) == c.params.Sites
}

// Coverage is the fraction of sites visited so far.
func (c *Colony) Coverage() float32 {
	return float32(len(c.visited)) / float32(c.params.Sites)
}

// ColonyFitness scores a colony by site coverage, in (0, 1].
func ColonyFitness(s Simulation, _ Scheduler) float32 {
	colony, ok := s.(*Colony)
	if !ok {
		return 0
	}
	return colony.Coverage()
}

type forager struct {
	colony *Colony
	at     int
}

func (f *forager) Step(Simulation) {
	c := f.colony
	c.visited[f.at] = struct{}{}

	if c.rng.Float32() < c.params.Explore {
		f.at = c.rng.Intn(c.params.Sites)
		return
	}

	incident, ok := c.graph.GetEdges(f.at)
	if !ok || len(incident) == 0 {
		return
	}
	edge := incident[c.rng.Intn(len(incident))]
	own := c.siteIDs[f.at]
	candidates := make([]uint32, 0, len(edge.Nodes))
	for id := range edge.Nodes {
		if id != own {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return
	}
	// Map iteration order is random; sort so a fixed seed replays the walk.
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })
	next := candidates[c.rng.Intn(len(candidates))]
	if site, ok := c.graph.GetObject(next); ok {
		f.at = site
	}
}
