package grid

import (
	"fmt"
	"time"

	"github.com/zeu5/tickrl/types"
	"golang.org/x/exp/rand"
)

const (
	GoalReward   = 10.0
	HazardReward = -10.0
	StepCost     = -0.01
	// added when the step brings the agent closer to the goal, subtracted when farther
	ShapingReward = 0.20
	// per unit of height climbed or descended
	ClimbCost = 0.01
)

// timeoutReward keeps a step that runs out of budget from scoring as a success
func timeoutReward(r float64) float64 {
	if r > StepCost {
		return StepCost
	}
	return r
}

// move returns the position one step in the direction of the action
func move(p Position, a types.Action) Position {
	switch a {
	case types.MoveNorth:
		return Position{p.X, p.Z - 1}
	case types.MoveSouth:
		return Position{p.X, p.Z + 1}
	case types.MoveEast:
		return Position{p.X + 1, p.Z}
	case types.MoveWest:
		return Position{p.X - 1, p.Z}
	}
	return p
}

type ArenaConfig struct {
	Width    int
	Depth    int
	MaxSteps int
	// fixed layout, generated terrain is used when empty
	Layout     []string
	HazardRate float64
	// regenerate the terrain on every reset, only for generated terrain
	Regenerate bool
	Seed       uint64
}

func DefaultArenaConfig() ArenaConfig {
	return ArenaConfig{
		Width:      12,
		Depth:      12,
		MaxSteps:   200,
		HazardRate: 0.04,
	}
}

// Arena is a height map world with walls and hazards. The goal and the
// agent are placed on random floor tiles at every reset.
type Arena struct {
	config  ArenaConfig
	terrain *Terrain
	rand    *rand.Rand

	agent Position
	goal  Position
	steps int
	done  bool
}

var _ types.Environment = &Arena{}
var _ types.Positioner = &Arena{}

func NewArena(config ArenaConfig) (*Arena, error) {
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultArenaConfig().MaxSteps
	}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	a := &Arena{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
	}
	if len(config.Layout) > 0 {
		t, err := ParseLayout(config.Layout)
		if err != nil {
			return nil, err
		}
		a.terrain = t
	} else {
		if config.Width < 2 || config.Depth < 1 {
			return nil, fmt.Errorf("%w: arena of %dx%d", ErrInvalidLayout, config.Width, config.Depth)
		}
		a.generate()
	}
	return a, nil
}

func (a *Arena) generate() {
	t := GenerateTerrain(a.config.Width, a.config.Depth, a.config.HazardRate, a.rand)
	if len(t.WalkableTiles()) < 2 {
		t = GenerateTerrain(a.config.Width, a.config.Depth, 0, a.rand)
	}
	a.terrain = t
}

func (a *Arena) Reset() types.Observation {
	if a.config.Regenerate && len(a.config.Layout) == 0 {
		a.generate()
	}
	a.done = false
	a.steps = 0

	tiles := a.terrain.WalkableTiles()
	a.agent = tiles[a.rand.Intn(len(tiles))]
	a.goal = a.agent
	for attempt := 0; attempt < 64 && a.goal.Eq(a.agent); attempt++ {
		a.goal = tiles[a.rand.Intn(len(tiles))]
	}
	if a.goal.Eq(a.agent) {
		for _, t := range tiles {
			if !t.Eq(a.agent) {
				a.goal = t
				break
			}
		}
	}
	return a.Observation()
}

func (a *Arena) Step(action types.Action) types.StepResult {
	if a.done {
		return types.StepResult{Observation: a.Observation(), Reward: 0, Done: true}
	}
	prevDist := a.agent.Manhattan(a.goal)
	next := move(a.agent, action)
	if !a.terrain.CanMove(a.agent, next) {
		next = a.agent
	}
	dy := a.terrain.Height(next) - a.terrain.Height(a.agent)
	a.agent = next
	newDist := a.agent.Manhattan(a.goal)

	terminal := false
	var reward float64
	switch {
	case a.agent.Eq(a.goal):
		reward = GoalReward
		terminal = true
	case a.terrain.Tile(a.agent) == Hazard:
		reward = HazardReward
		terminal = true
	default:
		reward = StepCost
		if newDist < prevDist {
			reward += ShapingReward
		} else if newDist > prevDist {
			reward -= ShapingReward
		}
		reward -= ClimbCost * float64(abs(dy))
	}

	a.steps++
	if !terminal && a.steps >= a.config.MaxSteps {
		terminal = true
		reward = timeoutReward(reward)
	}
	a.done = terminal
	return types.StepResult{Observation: a.Observation(), Reward: reward, Done: terminal}
}

func (a *Arena) IsDone() bool {
	return a.done
}

// Observation is [dx, dz, dy, dist, blockedN, blockedS, blockedE, blockedW]
func (a *Arena) Observation() types.Observation {
	bit := func(act types.Action) float64 {
		if a.terrain.CanMove(a.agent, move(a.agent, act)) {
			return 0
		}
		return 1
	}
	norm := float64(a.terrain.Width + a.terrain.Depth)
	return types.MustObservation(types.Full,
		sign(a.goal.X-a.agent.X),
		sign(a.goal.Z-a.agent.Z),
		sign(a.terrain.Height(a.goal)-a.terrain.Height(a.agent)),
		float64(a.agent.Manhattan(a.goal))/norm,
		bit(types.MoveNorth),
		bit(types.MoveSouth),
		bit(types.MoveEast),
		bit(types.MoveWest),
	)
}

func (a *Arena) AgentPosition() (int, int, int) {
	return a.agent.X, a.terrain.Height(a.agent), a.agent.Z
}

func (a *Arena) Agent() Position {
	return a.agent
}

func (a *Arena) Goal() Position {
	return a.goal
}

func (a *Arena) Terrain() *Terrain {
	return a.terrain
}

// Place moves the agent and the goal, used to set up specific episodes
func (a *Arena) Place(agent, goal Position) {
	a.agent = agent
	a.goal = goal
	a.steps = 0
	a.done = false
}
