package sim

// Simulation is one runnable model instance, typically constructed from a
// serialized parameter string by a user-supplied Factory. The engine drives
// it only through Init, the scheduler's Step, and EndCondition.
type Simulation interface {
	Init(sched Scheduler)
	EndCondition(sched Scheduler) bool
}

// Scheduler advances a simulation by one step.
type Scheduler interface {
	Step(s Simulation)
}

// Factory builds a Simulation from an individual's serialized parameters.
type Factory func(params string) (Simulation, error)

// Agent is one entity stepped by the Schedule.
type Agent interface {
	Step(s Simulation)
}

// Schedule is a minimal sequential scheduler: registered agents are stepped
// in registration order, once per Step call.
type Schedule struct {
	agents []Agent

	// Steps counts completed scheduler steps.
	Steps int
}

func NewSchedule() *Schedule {
	return &Schedule{}
}

func (s *Schedule) Register(a Agent) {
	s.agents = append(s.agents, a)
}

func (s *Schedule) Step(simulation Simulation) {
	for _, a := range s.agents {
		a.Step(simulation)
	}
	s.Steps++
}
