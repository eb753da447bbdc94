package grid

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/zeu5/tickrl/types"
)

type CurriculumConfig struct {
	Width    int
	Depth    int
	MaxSteps int
	// exploration floor and decay applied when a harder level starts
	MinEpsilon    float64
	BoostEpisodes int
	Seed          uint64
}

func DefaultCurriculumConfig() CurriculumConfig {
	return CurriculumConfig{
		Width:         12,
		Depth:         12,
		MaxSteps:      200,
		MinEpsilon:    0.50,
		BoostEpisodes: 25,
	}
}

// Curriculum has two levels over the same room: a fixed goal, then a random goal
type Curriculum struct {
	config CurriculumConfig
	level  int
	logger log.Logger
}

const MaxLevel = 1

func NewCurriculum(config CurriculumConfig, logger log.Logger) *Curriculum {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Curriculum{
		config: config,
		logger: logger,
	}
}

func (c *Curriculum) Level() int {
	return c.level
}

func (c *Curriculum) roomConfig(level int) RoomConfig {
	return RoomConfig{
		Width:      c.config.Width,
		Depth:      c.config.Depth,
		Spawn:      Position{2, 2},
		Goal:       Position{c.config.Width - 3, c.config.Depth - 3},
		RandomGoal: level > 0,
		MaxSteps:   c.config.MaxSteps,
		Seed:       c.config.Seed,
	}
}

// Environment builds the room for the current level
func (c *Curriculum) Environment() (*Room, error) {
	return NewRoom(c.roomConfig(c.level))
}

// Next advances to the next level, staying on the last one, and boosts the
// exploration of the policy if it supports it
func (c *Curriculum) Next(policy types.Policy) (*Room, error) {
	c.level++
	if c.level > MaxLevel {
		c.level = MaxLevel
	}
	room, err := c.Environment()
	if err != nil {
		return nil, err
	}
	if b, ok := policy.(types.ExplorationBooster); ok {
		b.BoostEpsilonToAtLeast(c.config.MinEpsilon, c.config.BoostEpisodes)
	}
	level.Info(c.logger).Log("msg", "curriculum advanced", "level", c.level+1, "random_goal", c.level > 0)
	return room, nil
}
