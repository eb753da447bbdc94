package types

import (
	"math"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gonum.org/v1/gonum/stat"
)

// RunnerState of the episode scheduler
type RunnerState int

const (
	Running RunnerState = iota
	ResetCooldown
	Stopped
)

func (s RunnerState) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case ResetCooldown:
		return "RESET_COOLDOWN"
	case Stopped:
		return "STOPPED"
	}
	return "UNKNOWN"
}

// RunnerConfig configures the pacing and the statistics windows
type RunnerConfig struct {
	TickRateHz        float64
	StepsPerSecond    float64
	MinStepsPerSecond float64
	MaxStepsPerSecond float64
	MaxStepsPerTick   int
	ResetDelayTicks   int
	RecentWindow      int
	RewardWindow      int
	// push a point to the progress recorder every N episodes
	GraphSampleEvery int
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		TickRateHz:        20,
		StepsPerSecond:    10,
		MinStepsPerSecond: 0.1,
		MaxStepsPerSecond: 2000,
		MaxStepsPerTick:   200,
		ResetDelayTicks:   8,
		RecentWindow:      50,
		RewardWindow:      50,
		GraphSampleEvery:  5,
	}
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	d := DefaultRunnerConfig()
	if c.TickRateHz <= 0 {
		c.TickRateHz = d.TickRateHz
	}
	if c.MinStepsPerSecond <= 0 {
		c.MinStepsPerSecond = d.MinStepsPerSecond
	}
	if c.MaxStepsPerSecond < c.MinStepsPerSecond {
		c.MaxStepsPerSecond = math.Max(d.MaxStepsPerSecond, c.MinStepsPerSecond)
	}
	if c.StepsPerSecond == 0 {
		c.StepsPerSecond = d.StepsPerSecond
	}
	if c.MaxStepsPerTick <= 0 {
		c.MaxStepsPerTick = d.MaxStepsPerTick
	}
	if c.ResetDelayTicks < 0 {
		c.ResetDelayTicks = 0
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.RewardWindow <= 0 {
		c.RewardWindow = d.RewardWindow
	}
	if c.GraphSampleEvery <= 0 {
		c.GraphSampleEvery = d.GraphSampleEvery
	}
	return c
}

// StepTimer records how long steps and ticks take
type StepTimer interface {
	RecordStep(time.Duration)
	RecordTick(time.Duration)
	RecordEpisode()
	MaybeReport()
}

type RunnerOption func(*EpisodeRunner)

func WithVisualizer(v Visualizer) RunnerOption {
	return func(r *EpisodeRunner) {
		r.visualizer = v
	}
}

func WithProgressRecorder(p ProgressRecorder) RunnerOption {
	return func(r *EpisodeRunner) {
		r.graph = p
	}
}

func WithStepTimer(t StepTimer) RunnerOption {
	return func(r *EpisodeRunner) {
		r.timer = t
	}
}

func WithLogger(l log.Logger) RunnerOption {
	return func(r *EpisodeRunner) {
		r.logger = l
	}
}

// WithClock replaces time.Now, used for throughput statistics
func WithClock(now func() time.Time) RunnerOption {
	return func(r *EpisodeRunner) {
		r.now = now
	}
}

// EpisodeRunner paces environment steps against an external fixed rate tick.
// It is not safe for concurrent use, the host must not overlap calls.
type EpisodeRunner struct {
	environment Environment
	policy      Policy
	transitions TransitionLogger
	visualizer  Visualizer
	graph       ProgressRecorder
	timer       StepTimer
	logger      log.Logger
	now         func() time.Time
	config      RunnerConfig

	state    RunnerState
	current  Observation
	cooldown int

	stepsPerSecond  float64
	stepAccumulator float64

	episodeReward float64
	episodeSteps  int
	totalSteps    int64

	start             time.Time
	episodesCompleted int64
	successCount      int64
	failureCount      int64
	totalStepsToGoal  int64
	bestStepsToGoal   int

	recentSuccess     *Ring[bool]
	recentStepsToGoal *Ring[int]
	rewardWindow      *RollingSum

	logFailures int64
}

// NewEpisodeRunner resets the environment and starts in the running state
func NewEpisodeRunner(env Environment, policy Policy, transitions TransitionLogger, config RunnerConfig, opts ...RunnerOption) *EpisodeRunner {
	config = config.withDefaults()
	if transitions == nil {
		transitions = NopTransitionLogger()
	}
	r := &EpisodeRunner{
		environment: env,
		policy:      policy,
		transitions: transitions,
		logger:      log.NewNopLogger(),
		now:         time.Now,
		config:      config,

		state:           Running,
		bestStepsToGoal: math.MaxInt,

		recentSuccess:     NewRing[bool](config.RecentWindow),
		recentStepsToGoal: NewRing[int](config.RecentWindow),
		rewardWindow:      NewRollingSum(config.RewardWindow),
	}
	for _, o := range opts {
		o(r)
	}
	r.stepsPerSecond = r.clampSpeed(config.StepsPerSecond)
	r.start = r.now()
	r.current = env.Reset()
	return r
}

// Tick advances the runner by one external tick and returns the number of steps taken
func (r *EpisodeRunner) Tick() int {
	if r.state == Stopped {
		return 0
	}
	// one position update per tick, whatever the tick did
	defer r.updateVisualizer()
	if r.timer != nil {
		start := r.now()
		defer func() {
			r.timer.RecordTick(r.now().Sub(start))
			r.timer.MaybeReport()
		}()
	}

	if r.state == ResetCooldown {
		r.cooldown--
		if r.cooldown <= 0 {
			r.resetEpisode()
		}
		return 0
	}

	if !r.current.Valid() {
		r.current = r.environment.Observation()
	}

	r.stepAccumulator += r.stepsPerSecond / r.config.TickRateHz
	steps := int(math.Floor(r.stepAccumulator))
	if steps <= 0 {
		return 0
	}
	r.stepAccumulator -= float64(steps)
	if steps > r.config.MaxStepsPerTick {
		steps = r.config.MaxStepsPerTick
	}

	executed := 0
	for i := 0; i < steps; i++ {
		if r.state == Stopped {
			break
		}
		executed++
		if r.step() {
			break
		}
	}
	return executed
}

// step runs one environment step and returns true if the episode ended
func (r *EpisodeRunner) step() bool {
	var start time.Time
	if r.timer != nil {
		start = r.now()
	}

	state := r.current
	action := r.policy.ChooseAction(state)
	result := r.environment.Step(action)

	r.episodeReward += result.Reward
	r.episodeSteps++
	r.totalSteps++

	if err := r.transitions.LogTransition(state, action, result.Reward, result.Observation, result.Done); err != nil {
		r.logFailures++
		if r.logFailures == 1 || r.logFailures%100 == 0 {
			level.Warn(r.logger).Log("msg", "failed to log transition", "failures", r.logFailures, "err", err)
		}
	}
	r.policy.ObserveTransition(state, action, result.Reward, result.Observation, result.Done)
	r.current = result.Observation

	if r.timer != nil {
		r.timer.RecordStep(r.now().Sub(start))
	}

	if result.Done {
		r.finishEpisode(result)
		r.policy.OnEpisodeEnd()
		if r.config.ResetDelayTicks > 0 {
			r.state = ResetCooldown
			r.cooldown = r.config.ResetDelayTicks
		} else {
			r.resetEpisode()
		}
		return true
	}
	return false
}

func (r *EpisodeRunner) finishEpisode(last StepResult) {
	r.episodesCompleted++
	success := last.Reward > 0

	if success {
		r.successCount++
		r.totalStepsToGoal += int64(r.episodeSteps)
		if r.episodeSteps < r.bestStepsToGoal {
			r.bestStepsToGoal = r.episodeSteps
		}
		if r.visualizer != nil {
			r.visualizer.OnGoalHit()
		}
	} else {
		r.failureCount++
	}

	r.recentSuccess.Push(success)
	if success {
		r.recentStepsToGoal.Push(r.episodeSteps)
	} else {
		r.recentStepsToGoal.Push(-1)
	}
	r.rewardWindow.Add(r.episodeReward)

	if r.graph != nil && r.episodesCompleted%int64(r.config.GraphSampleEvery) == 0 {
		r.graph.AddAvgRewardPoint(r.rewardWindow.Mean())
		if i, ok := r.policy.(Introspector); ok {
			r.graph.AddEpsilonPoint(i.Epsilon())
		}
	}

	if p, ok := r.policy.(PerformanceTracker); ok {
		p.UpdatePerformance(r.recentSuccessRate())
	}
	if r.timer != nil {
		r.timer.RecordEpisode()
	}

	level.Debug(r.logger).Log(
		"msg", "episode finished",
		"episode", r.episodesCompleted,
		"success", success,
		"steps", r.episodeSteps,
		"reward", r.episodeReward,
	)
}

func (r *EpisodeRunner) resetEpisode() {
	r.current = r.environment.Reset()
	r.episodeReward = 0
	r.episodeSteps = 0
	r.cooldown = 0
	r.state = Running
}

func (r *EpisodeRunner) updateVisualizer() {
	if r.visualizer == nil {
		return
	}
	if p, ok := r.environment.(Positioner); ok {
		r.visualizer.UpdatePosition(p.AgentPosition())
	}
}

// Shutdown stops the runner and closes the collaborators.
// Only the first call has an effect.
func (r *EpisodeRunner) Shutdown() error {
	if r.state == Stopped {
		return nil
	}
	r.state = Stopped
	err := r.transitions.Close()
	if err != nil {
		level.Warn(r.logger).Log("msg", "failed to close transition logger", "err", err)
	}
	if r.visualizer != nil {
		r.visualizer.Destroy()
	}
	level.Info(r.logger).Log("msg", "runner stopped", "episodes", r.episodesCompleted, "steps", r.totalSteps)
	return err
}

func (r *EpisodeRunner) clampSpeed(v float64) float64 {
	if math.IsNaN(v) || v < r.config.MinStepsPerSecond {
		return r.config.MinStepsPerSecond
	}
	if v > r.config.MaxStepsPerSecond {
		return r.config.MaxStepsPerSecond
	}
	return v
}

// SetStepsPerSecond clamps v to the configured range and returns the effective value
func (r *EpisodeRunner) SetStepsPerSecond(v float64) float64 {
	r.stepsPerSecond = r.clampSpeed(v)
	return r.stepsPerSecond
}

func (r *EpisodeRunner) StepsPerSecond() float64 {
	return r.stepsPerSecond
}

func (r *EpisodeRunner) State() RunnerState {
	return r.state
}

func (r *EpisodeRunner) Policy() Policy {
	return r.policy
}

func (r *EpisodeRunner) Environment() Environment {
	return r.environment
}

func (r *EpisodeRunner) EpisodesCompleted() int64 {
	return r.episodesCompleted
}

// Accumulator is the unconsumed fractional step budget
func (r *EpisodeRunner) Accumulator() float64 {
	return r.stepAccumulator
}

func (r *EpisodeRunner) recentSuccessRate() float64 {
	outcomes := r.recentSuccess.Values()
	if len(outcomes) == 0 {
		return 0
	}
	vals := make([]float64, len(outcomes))
	for i, s := range outcomes {
		if s {
			vals[i] = 1
		}
	}
	return stat.Mean(vals, nil)
}

func (r *EpisodeRunner) recentAvgStepsToGoal() float64 {
	vals := make([]float64, 0, r.recentStepsToGoal.Len())
	for _, v := range r.recentStepsToGoal.Values() {
		if v >= 0 {
			vals = append(vals, float64(v))
		}
	}
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

// Snapshot computes the statistics from the running counters
func (r *EpisodeRunner) Snapshot() EpisodeStats {
	s := EpisodeStats{
		EpisodesCompleted: r.episodesCompleted,
		SuccessCount:      r.successCount,
		FailureCount:      r.failureCount,
		RecentSuccessRate: r.recentSuccessRate(),
		BestStepsToGoal:   -1,
		Epsilon:           -1,
		StateCount:        -1,
		StepsPerSecond:    r.stepsPerSecond,
		MovingAvgReward:   r.rewardWindow.Mean(),
		TotalSteps:        r.totalSteps,
		LogFailures:       r.logFailures,
		State:             r.state.String(),

		RecentAvgStepsToGoal: r.recentAvgStepsToGoal(),
	}
	if r.episodesCompleted > 0 {
		s.OverallSuccessRate = float64(r.successCount) / float64(r.episodesCompleted)
	}
	if r.successCount > 0 {
		s.OverallAvgStepsToGoal = float64(r.totalStepsToGoal) / float64(r.successCount)
	}
	if r.bestStepsToGoal != math.MaxInt {
		s.BestStepsToGoal = r.bestStepsToGoal
	}
	elapsed := r.now().Sub(r.start)
	if elapsed < time.Millisecond {
		elapsed = time.Millisecond
	}
	s.EpisodesPerMinute = float64(r.episodesCompleted) / elapsed.Minutes()
	if i, ok := r.policy.(Introspector); ok {
		s.Epsilon = i.Epsilon()
		s.StateCount = i.StateCount()
	}
	return s
}
