package sim

import "context"

// Fitness scores a completed simulation.
type Fitness func(s Simulation, sched Scheduler) float32

// RunBounded advances the simulation until the step budget is exhausted or
// its end condition holds. Cancellation is checked between steps only; a
// step itself is never interrupted.
func RunBounded(ctx context.Context, s Simulation, sched Scheduler, steps int) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sched.Step(s)
		if s.EndCondition(sched) {
			return nil
		}
	}
	return nil
}
