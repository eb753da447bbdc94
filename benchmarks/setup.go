package benchmarks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/tickrl/config"
	"github.com/zeu5/tickrl/grid"
	"github.com/zeu5/tickrl/policies"
	"github.com/zeu5/tickrl/progress"
	"github.com/zeu5/tickrl/timing"
	"github.com/zeu5/tickrl/types"
	"github.com/zeu5/tickrl/util"
)

var (
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrUnknownPolicy      = errors.New("unknown policy")
)

const (
	EnvArena      = "arena"
	EnvRoom       = "room"
	EnvCurriculum = "curriculum"
)

// newEnvironment builds the environment named by kind. The curriculum is
// only returned for the curriculum environment.
func newEnvironment(c config.Config, kind string, logger log.Logger) (types.Environment, *grid.Curriculum, error) {
	switch kind {
	case EnvArena:
		a, err := grid.NewArena(c.ArenaConfig())
		return a, nil, err
	case EnvRoom:
		r, err := grid.NewRoom(grid.RoomConfig{
			Width:    c.Arena.Width,
			Depth:    c.Arena.Depth,
			Spawn:    grid.Position{X: 2, Z: 2},
			Goal:     grid.Position{X: c.Arena.Width - 3, Z: c.Arena.Depth - 3},
			MaxSteps: c.Arena.MaxSteps,
			Seed:     c.Arena.Seed,
		})
		return r, nil, err
	case EnvCurriculum:
		curriculum := grid.NewCurriculum(c.CurriculumConfig(), logger)
		r, err := curriculum.Environment()
		return r, curriculum, err
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, kind)
}

func newPolicy(c config.Config, kind string, temperature float64) (types.Policy, error) {
	switch kind {
	case "random":
		if c.Learning.Seed != 0 {
			return types.NewRandomPolicyWithSeed(c.Learning.Seed), nil
		}
		return types.NewRandomPolicy(), nil
	case "qlearning":
		return policies.NewQLearningPolicy(c.QLearningConfig()), nil
	case "softmax":
		return policies.NewSoftmaxPolicy(c.QLearningConfig(), temperature), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, kind)
}

type sessionFlags struct {
	env          string
	policy       string
	temperature  float64
	speed        float64
	recordPolicy bool
}

// session wires a runner with every configured collaborator
type session struct {
	config     config.Config
	flags      sessionFlags
	logger     log.Logger
	transition types.TransitionLogger
	timer      *timing.Reporter
	graph      *progress.Graph
	visits     *grid.VisitMap
	curriculum *grid.Curriculum
	runner     *types.EpisodeRunner
}

func newSession(ctx context.Context, flags sessionFlags, logger log.Logger) (*session, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if flags.speed > 0 {
		c.Speed.StepsPerSecond = flags.speed
		c.Clamp()
	}
	if err := util.EnsureDir(saveFile); err != nil {
		return nil, err
	}

	env, curriculum, err := newEnvironment(c, flags.env, logger)
	if err != nil {
		return nil, err
	}
	policy, err := newPolicy(c, flags.policy, flags.temperature)
	if err != nil {
		return nil, err
	}
	transitions, err := c.OpenTransitions(ctx, logger)
	if err != nil {
		return nil, err
	}

	s := &session{
		config:     c,
		flags:      flags,
		logger:     logger,
		transition: transitions,
		graph:      progress.NewGraph(),
		visits:     grid.NewVisitMap(c.Arena.Width, c.Arena.Depth),
		curriculum: curriculum,
	}
	if c.Timing.Enabled {
		if err := util.EnsureDir(c.Timing.Path); err != nil {
			return nil, err
		}
		s.timer = timing.NewReporter(logger, c.Timing.Path, c.TimingInterval())
	}
	s.runner = s.newRunner(env, policy)
	level.Info(logger).Log("msg", "session ready", "env", flags.env, "policy", flags.policy, "sink", c.Transitions.Sink)
	return s, nil
}

// newRunner over env, sharing the session collaborators
func (s *session) newRunner(env types.Environment, policy types.Policy) *types.EpisodeRunner {
	opts := []types.RunnerOption{
		types.WithVisualizer(s.visits),
		types.WithProgressRecorder(s.graph),
		types.WithLogger(s.logger),
	}
	if s.timer != nil {
		opts = append(opts, types.WithStepTimer(s.timer))
	}
	return types.NewEpisodeRunner(env, policy, s.transition, s.config.RunnerConfig(), opts...)
}

// finish shuts the runner down and writes the outputs of the session
func (s *session) finish() error {
	if err := s.runner.Shutdown(); err != nil {
		level.Warn(s.logger).Log("msg", "shutdown", "err", err)
	}
	// runners replaced by the curriculum share the sink
	s.transition.Close()
	if trace, ok := s.transition.(*types.Trace); ok {
		level.Info(s.logger).Log("msg", "transitions kept in memory", "transitions", trace.Len(), "episodes", len(trace.Episodes()))
	}
	if s.timer != nil {
		s.timer.Close()
	}

	stats := s.runner.Snapshot()
	if a, ok := s.runner.Environment().(*grid.Arena); ok {
		fmt.Print(a.Render(true))
	}
	fmt.Println(stats.String())
	bs, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path.Join(saveFile, "stats.json"), bs, 0644); err != nil {
		return err
	}

	if err := util.EnsureDir(s.config.Graph.Path); err != nil {
		return err
	}
	if err := s.graph.Save(path.Join(s.config.Graph.Path, "progress.png")); err != nil && !errors.Is(err, progress.ErrNotEnoughPoints) {
		level.Warn(s.logger).Log("msg", "failed to save progress graph", "err", err)
	}
	if err := s.graph.SaveHTML(path.Join(s.config.Graph.Path, "progress.html")); err != nil && !errors.Is(err, progress.ErrNotEnoughPoints) {
		level.Warn(s.logger).Log("msg", "failed to save progress page", "err", err)
	}
	if err := s.visits.Save("Visits", path.Join(saveFile, "visits.png")); err != nil {
		level.Warn(s.logger).Log("msg", "failed to save visit heatmap", "err", err)
	}
	if err := s.visits.Record(path.Join(saveFile, "visits.json")); err != nil {
		level.Warn(s.logger).Log("msg", "failed to record visits", "err", err)
	}

	if s.flags.recordPolicy {
		if r, ok := s.runner.Policy().(types.Recorder); ok {
			policyPath := path.Join(saveFile, "policy.jsonl")
			if err := r.Record(policyPath); err != nil {
				return fmt.Errorf("recording policy: %w", err)
			}
			level.Info(s.logger).Log("msg", "policy recorded", "path", policyPath)
		}
	}
	return nil
}
