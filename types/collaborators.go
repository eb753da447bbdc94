package types

// TransitionLogger persists transitions. Failures are reported, never fatal
type TransitionLogger interface {
	LogTransition(Observation, Action, float64, Observation, bool) error
	// Close flushes and releases, must be idempotent
	Close() error
}

// Visualizer displays the agent
type Visualizer interface {
	UpdatePosition(x, y, z int)
	OnGoalHit()
	Destroy()
}

// ProgressRecorder receives sampled learning curves
type ProgressRecorder interface {
	AddAvgRewardPoint(float64)
	AddEpsilonPoint(float64)
}

type nopLogger struct{}

func (nopLogger) LogTransition(_ Observation, _ Action, _ float64, _ Observation, _ bool) error {
	return nil
}

func (nopLogger) Close() error { return nil }

// NopTransitionLogger discards all transitions
func NopTransitionLogger() TransitionLogger {
	return nopLogger{}
}
