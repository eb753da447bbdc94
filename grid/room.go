package grid

import (
	"fmt"
	"time"

	"github.com/zeu5/tickrl/types"
	"golang.org/x/exp/rand"
)

// RoomConfig describes a flat rectangular room.
// The agent always respawns at Spawn, the goal is fixed unless RandomGoal is set.
type RoomConfig struct {
	Width      int
	Depth      int
	Spawn      Position
	Goal       Position
	RandomGoal bool
	MaxSteps   int
	Seed       uint64
}

// Room is a flat environment with planar observations and no obstructions
type Room struct {
	config RoomConfig
	rand   *rand.Rand

	agent Position
	goal  Position
	steps int
	done  bool
}

var _ types.Environment = &Room{}
var _ types.Positioner = &Room{}

func NewRoom(config RoomConfig) (*Room, error) {
	if config.Width < 3 || config.Depth < 3 {
		return nil, fmt.Errorf("%w: room of %dx%d, need at least 3x3", ErrInvalidLayout, config.Width, config.Depth)
	}
	in := func(p Position) bool {
		return p.X >= 0 && p.X < config.Width && p.Z >= 0 && p.Z < config.Depth
	}
	if !in(config.Spawn) || !in(config.Goal) {
		return nil, fmt.Errorf("%w: spawn %v or goal %v outside the room", ErrInvalidLayout, config.Spawn, config.Goal)
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = 200
	}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Room{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
	}, nil
}

// sampleGoal picks an interior tile that is not the spawn
func (r *Room) sampleGoal() Position {
	for i := 0; i < 200; i++ {
		p := Position{
			X: 1 + r.rand.Intn(r.config.Width-2),
			Z: 1 + r.rand.Intn(r.config.Depth-2),
		}
		if !p.Eq(r.config.Spawn) {
			return p
		}
	}
	return Position{r.config.Width - 1, r.config.Depth - 1}
}

func (r *Room) Reset() types.Observation {
	r.done = false
	r.steps = 0
	r.agent = r.config.Spawn
	if r.config.RandomGoal {
		r.goal = r.sampleGoal()
	} else {
		r.goal = r.config.Goal
	}
	return r.Observation()
}

func (r *Room) Step(action types.Action) types.StepResult {
	if r.done {
		return types.StepResult{Observation: r.Observation(), Reward: 0, Done: true}
	}
	prevDist := r.agent.Manhattan(r.goal)
	next := move(r.agent, action)
	next.X = clamp(next.X, 0, r.config.Width-1)
	next.Z = clamp(next.Z, 0, r.config.Depth-1)
	r.agent = next
	newDist := r.agent.Manhattan(r.goal)

	terminal := false
	var reward float64
	if r.agent.Eq(r.goal) {
		reward = GoalReward
		terminal = true
	} else {
		reward = StepCost
		if newDist < prevDist {
			reward += ShapingReward
		} else if newDist > prevDist {
			reward -= ShapingReward
		}
	}
	r.steps++
	if !terminal && r.steps >= r.config.MaxSteps {
		terminal = true
		reward = timeoutReward(reward)
	}
	r.done = terminal
	return types.StepResult{Observation: r.Observation(), Reward: reward, Done: terminal}
}

func (r *Room) IsDone() bool {
	return r.done
}

// Observation is [dx, dz, dist]
func (r *Room) Observation() types.Observation {
	norm := float64(r.config.Width + r.config.Depth)
	return types.MustObservation(types.Planar,
		sign(r.goal.X-r.agent.X),
		sign(r.goal.Z-r.agent.Z),
		float64(r.agent.Manhattan(r.goal))/norm,
	)
}

func (r *Room) AgentPosition() (int, int, int) {
	return r.agent.X, 0, r.agent.Z
}

func (r *Room) Goal() Position {
	return r.goal
}

func (r *Room) Config() RoomConfig {
	return r.config
}
