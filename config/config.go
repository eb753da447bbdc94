package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/zeu5/tickrl/grid"
	"github.com/zeu5/tickrl/policies"
	"github.com/zeu5/tickrl/transitions"
	"github.com/zeu5/tickrl/types"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownSink = errors.New("unknown transition sink")
)

const (
	SinkNone   = "none"
	SinkFile   = "file"
	SinkRedis  = "redis"
	SinkMemory = "memory"
)

type SpeedConfig struct {
	StepsPerSecond    float64 `yaml:"steps-per-second"`
	MinStepsPerSecond float64 `yaml:"min-steps-per-second"`
	MaxStepsPerSecond float64 `yaml:"max-steps-per-second"`
	MaxStepsPerTick   int     `yaml:"max-steps-per-tick"`
}

type EpisodeConfig struct {
	ResetDelayTicks int `yaml:"reset-delay-ticks"`
	RecentWindow    int `yaml:"recent-window"`
	RewardWindow    int `yaml:"reward-window"`
}

type LearningConfig struct {
	Alpha                float64 `yaml:"alpha"`
	Gamma                float64 `yaml:"gamma"`
	EpsilonStart         float64 `yaml:"epsilon-start"`
	EpsilonEnd           float64 `yaml:"epsilon-end"`
	EpsilonDecayEpisodes int     `yaml:"epsilon-decay-episodes"`
	TimePenaltyBase      float64 `yaml:"time-penalty-base"`
	TimePenaltySlope     float64 `yaml:"time-penalty-slope"`
	OptimisticInit       float64 `yaml:"optimistic-init"`
	ActionMasking        bool    `yaml:"action-masking"`
	QMin                 float64 `yaml:"q-min"`
	QMax                 float64 `yaml:"q-max"`
	TargetRecentSuccess  float64 `yaml:"target-recent-success"`
	BoostStrength        float64 `yaml:"boost-strength"`
	BoostSmoothing       float64 `yaml:"boost-smoothing"`
	MaxAdaptiveBoost     float64 `yaml:"max-adaptive-boost"`
	EpsilonSmoothing     float64 `yaml:"epsilon-smoothing"`
	RandomRetries        int     `yaml:"random-retries"`
	Seed                 uint64  `yaml:"seed"`
}

type ArenaConfig struct {
	Width      int      `yaml:"width"`
	Depth      int      `yaml:"depth"`
	MaxSteps   int      `yaml:"max-steps"`
	Layout     []string `yaml:"layout"`
	HazardRate float64  `yaml:"hazard-rate"`
	Regenerate bool     `yaml:"regenerate"`
	Seed       uint64   `yaml:"seed"`
}

type ProgressionConfig struct {
	MinEpsilon    float64 `yaml:"min-epsilon"`
	BoostEpisodes int     `yaml:"boost-episodes"`
}

type TransitionsConfig struct {
	Sink        string `yaml:"sink"`
	Path        string `yaml:"path"`
	RedisAddr   string `yaml:"redis-addr"`
	RedisStream string `yaml:"redis-stream"`
	RedisMaxLen int64  `yaml:"redis-maxlen"`
	QueueSize   int    `yaml:"queue-size"`
}

type TimingConfig struct {
	Enabled         bool   `yaml:"enabled"`
	IntervalSeconds int    `yaml:"interval-seconds"`
	Path            string `yaml:"path"`
}

type GraphConfig struct {
	SampleEvery int    `yaml:"sample-every"`
	Path        string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	TickRateHz  float64           `yaml:"tick-rate-hz"`
	Speed       SpeedConfig       `yaml:"speed"`
	Episode     EpisodeConfig     `yaml:"episode"`
	Learning    LearningConfig    `yaml:"learning"`
	Arena       ArenaConfig       `yaml:"arena"`
	Progression ProgressionConfig `yaml:"progression"`
	Transitions TransitionsConfig `yaml:"transitions"`
	Timing      TimingConfig      `yaml:"timing"`
	Graph       GraphConfig       `yaml:"graph"`
	Server      ServerConfig      `yaml:"server"`
}

func Default() Config {
	runner := types.DefaultRunnerConfig()
	learning := policies.DefaultQLearningConfig()
	arena := grid.DefaultArenaConfig()
	curriculum := grid.DefaultCurriculumConfig()
	redis := transitions.DefaultRedisConfig()
	return Config{
		TickRateHz: runner.TickRateHz,
		Speed: SpeedConfig{
			StepsPerSecond:    runner.StepsPerSecond,
			MinStepsPerSecond: runner.MinStepsPerSecond,
			MaxStepsPerSecond: runner.MaxStepsPerSecond,
			MaxStepsPerTick:   runner.MaxStepsPerTick,
		},
		Episode: EpisodeConfig{
			ResetDelayTicks: runner.ResetDelayTicks,
			RecentWindow:    runner.RecentWindow,
			RewardWindow:    runner.RewardWindow,
		},
		Learning: LearningConfig{
			Alpha:                learning.Alpha,
			Gamma:                learning.Gamma,
			EpsilonStart:         learning.EpsilonStart,
			EpsilonEnd:           learning.EpsilonEnd,
			EpsilonDecayEpisodes: learning.EpsilonDecayEpisodes,
			TimePenaltyBase:      learning.TimePenaltyBase,
			TimePenaltySlope:     learning.TimePenaltySlope,
			OptimisticInit:       learning.OptimisticInit,
			ActionMasking:        learning.ActionMasking,
			QMin:                 learning.QMin,
			QMax:                 learning.QMax,
			TargetRecentSuccess:  learning.TargetRecentSuccess,
			BoostStrength:        learning.BoostStrength,
			BoostSmoothing:       learning.BoostSmoothing,
			MaxAdaptiveBoost:     learning.MaxAdaptiveBoost,
			EpsilonSmoothing:     learning.EpsilonSmoothing,
			RandomRetries:        learning.RandomRetries,
		},
		Arena: ArenaConfig{
			Width:      arena.Width,
			Depth:      arena.Depth,
			MaxSteps:   arena.MaxSteps,
			HazardRate: arena.HazardRate,
		},
		Progression: ProgressionConfig{
			MinEpsilon:    curriculum.MinEpsilon,
			BoostEpisodes: curriculum.BoostEpisodes,
		},
		Transitions: TransitionsConfig{
			Sink:        SinkNone,
			Path:        "results",
			RedisAddr:   redis.Addr,
			RedisStream: redis.Stream,
			RedisMaxLen: redis.MaxLen,
			QueueSize:   redis.QueueSize,
		},
		Timing: TimingConfig{
			Enabled:         false,
			IntervalSeconds: 10,
			Path:            "results",
		},
		Graph: GraphConfig{
			SampleEvery: runner.GraphSampleEvery,
			Path:        "results",
		},
		Server: ServerConfig{
			Addr: "localhost:8080",
		},
	}
}

// Load reads a yaml file over the defaults. A missing file yields the defaults.
func Load(filePath string) (Config, error) {
	c := Default()
	if filePath == "" {
		return c, nil
	}
	bs, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(bs, &c); err != nil {
		return c, fmt.Errorf("parsing config %s: %w", filePath, err)
	}
	c.Clamp()
	return c, nil
}

func clampF(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func atLeast(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}

// Clamp brings every value into its valid range
func (c *Config) Clamp() {
	d := Default()
	if c.TickRateHz <= 0 || math.IsNaN(c.TickRateHz) {
		c.TickRateHz = d.TickRateHz
	}

	s := &c.Speed
	if s.MinStepsPerSecond <= 0 {
		s.MinStepsPerSecond = d.Speed.MinStepsPerSecond
	}
	if s.MaxStepsPerSecond < s.MinStepsPerSecond {
		s.MaxStepsPerSecond = s.MinStepsPerSecond
	}
	s.StepsPerSecond = clampF(s.StepsPerSecond, s.MinStepsPerSecond, s.MaxStepsPerSecond)
	s.MaxStepsPerTick = atLeast(s.MaxStepsPerTick, 1)

	c.Episode.ResetDelayTicks = atLeast(c.Episode.ResetDelayTicks, 0)
	c.Episode.RecentWindow = atLeast(c.Episode.RecentWindow, 1)
	c.Episode.RewardWindow = atLeast(c.Episode.RewardWindow, 1)

	l := &c.Learning
	l.Alpha = clampF(l.Alpha, 0, 1)
	l.Gamma = clampF(l.Gamma, 0, 1)
	l.EpsilonStart = clampF(l.EpsilonStart, 0, 1)
	l.EpsilonEnd = clampF(l.EpsilonEnd, 0, l.EpsilonStart)
	l.EpsilonDecayEpisodes = atLeast(l.EpsilonDecayEpisodes, 1)
	l.TimePenaltyBase = math.Max(0, l.TimePenaltyBase)
	l.TimePenaltySlope = math.Max(0, l.TimePenaltySlope)
	if l.QMin > l.QMax {
		l.QMin, l.QMax = l.QMax, l.QMin
	}
	l.OptimisticInit = clampF(l.OptimisticInit, l.QMin, l.QMax)
	l.TargetRecentSuccess = clampF(l.TargetRecentSuccess, 0, 1)
	l.BoostStrength = math.Max(0, l.BoostStrength)
	l.BoostSmoothing = clampF(l.BoostSmoothing, 0, 1)
	l.MaxAdaptiveBoost = clampF(l.MaxAdaptiveBoost, 0, 1)
	l.EpsilonSmoothing = clampF(l.EpsilonSmoothing, 0, 1)
	l.RandomRetries = atLeast(l.RandomRetries, 1)

	a := &c.Arena
	a.Width = atLeast(a.Width, 3)
	a.Depth = atLeast(a.Depth, 3)
	a.MaxSteps = atLeast(a.MaxSteps, 1)
	a.HazardRate = clampF(a.HazardRate, 0, 1)

	c.Progression.MinEpsilon = clampF(c.Progression.MinEpsilon, 0, 1)
	c.Progression.BoostEpisodes = atLeast(c.Progression.BoostEpisodes, 0)

	if c.Transitions.Sink == "" {
		c.Transitions.Sink = SinkNone
	}
	c.Transitions.RedisMaxLen = int64(math.Max(0, float64(c.Transitions.RedisMaxLen)))
	c.Transitions.QueueSize = atLeast(c.Transitions.QueueSize, 1)

	c.Timing.IntervalSeconds = atLeast(c.Timing.IntervalSeconds, 1)
	c.Graph.SampleEvery = atLeast(c.Graph.SampleEvery, 1)
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

func (c Config) RunnerConfig() types.RunnerConfig {
	return types.RunnerConfig{
		TickRateHz:        c.TickRateHz,
		StepsPerSecond:    c.Speed.StepsPerSecond,
		MinStepsPerSecond: c.Speed.MinStepsPerSecond,
		MaxStepsPerSecond: c.Speed.MaxStepsPerSecond,
		MaxStepsPerTick:   c.Speed.MaxStepsPerTick,
		ResetDelayTicks:   c.Episode.ResetDelayTicks,
		RecentWindow:      c.Episode.RecentWindow,
		RewardWindow:      c.Episode.RewardWindow,
		GraphSampleEvery:  c.Graph.SampleEvery,
	}
}

func (c Config) QLearningConfig() policies.QLearningConfig {
	l := c.Learning
	return policies.QLearningConfig{
		Alpha:                l.Alpha,
		Gamma:                l.Gamma,
		EpsilonStart:         l.EpsilonStart,
		EpsilonEnd:           l.EpsilonEnd,
		EpsilonDecayEpisodes: l.EpsilonDecayEpisodes,
		TimePenaltyBase:      l.TimePenaltyBase,
		TimePenaltySlope:     l.TimePenaltySlope,
		OptimisticInit:       l.OptimisticInit,
		ActionMasking:        l.ActionMasking,
		QMin:                 l.QMin,
		QMax:                 l.QMax,
		TargetRecentSuccess:  l.TargetRecentSuccess,
		BoostStrength:        l.BoostStrength,
		BoostSmoothing:       l.BoostSmoothing,
		MaxAdaptiveBoost:     l.MaxAdaptiveBoost,
		EpsilonSmoothing:     l.EpsilonSmoothing,
		RandomRetries:        l.RandomRetries,
		Seed:                 l.Seed,
	}
}

func (c Config) ArenaConfig() grid.ArenaConfig {
	return grid.ArenaConfig{
		Width:      c.Arena.Width,
		Depth:      c.Arena.Depth,
		MaxSteps:   c.Arena.MaxSteps,
		Layout:     c.Arena.Layout,
		HazardRate: c.Arena.HazardRate,
		Regenerate: c.Arena.Regenerate,
		Seed:       c.Arena.Seed,
	}
}

func (c Config) CurriculumConfig() grid.CurriculumConfig {
	return grid.CurriculumConfig{
		Width:         c.Arena.Width,
		Depth:         c.Arena.Depth,
		MaxSteps:      c.Arena.MaxSteps,
		MinEpsilon:    c.Progression.MinEpsilon,
		BoostEpisodes: c.Progression.BoostEpisodes,
		Seed:          c.Arena.Seed,
	}
}

func (c Config) RedisConfig() transitions.RedisConfig {
	return transitions.RedisConfig{
		Addr:      c.Transitions.RedisAddr,
		Stream:    c.Transitions.RedisStream,
		MaxLen:    c.Transitions.RedisMaxLen,
		QueueSize: c.Transitions.QueueSize,
		Timeout:   transitions.DefaultRedisConfig().Timeout,
	}
}

// OpenTransitions creates the configured transition sink
func (c Config) OpenTransitions(ctx context.Context, logger log.Logger) (types.TransitionLogger, error) {
	switch c.Transitions.Sink {
	case SinkNone:
		return transitions.Nop(), nil
	case SinkFile:
		return transitions.NewFileLogger(c.Transitions.Path)
	case SinkRedis:
		return transitions.NewRedisLogger(ctx, c.RedisConfig(), logger)
	case SinkMemory:
		return types.NewTrace(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSink, c.Transitions.Sink)
}

func (c Config) TimingInterval() time.Duration {
	return time.Duration(c.Timing.IntervalSeconds) * time.Second
}
