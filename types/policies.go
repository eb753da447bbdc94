package types

import (
	"time"

	"golang.org/x/exp/rand"
)

// Policy chooses actions and learns from transitions
type Policy interface {
	// ChooseAction must always return a valid action
	ChooseAction(Observation) Action
	// ObserveTransition is called once per step with the outcome
	ObserveTransition(Observation, Action, float64, Observation, bool)
	// OnEpisodeEnd is called once the terminal step has been observed
	OnEpisodeEnd()
}

// PerformanceTracker receives the recent success rate after every completed episode
type PerformanceTracker interface {
	UpdatePerformance(float64)
}

// Introspector exposes internal policy statistics
type Introspector interface {
	Epsilon() float64
	StateCount() int
}

// ExplorationBooster can be asked to explore more for a number of episodes
type ExplorationBooster interface {
	BoostEpsilonToAtLeast(float64, int)
}

// NopLearner can be embedded by policies that do not learn
type NopLearner struct{}

func (NopLearner) ObserveTransition(_ Observation, _ Action, _ float64, _ Observation, _ bool) {}

func (NopLearner) OnEpisodeEnd() {}

// RandomPolicy picks uniformly among the actions that are not blocked
type RandomPolicy struct {
	NopLearner
	rand *rand.Rand
}

var _ Policy = &RandomPolicy{}

func NewRandomPolicy() *RandomPolicy {
	return NewRandomPolicyWithSeed(uint64(time.Now().UnixNano()))
}

func NewRandomPolicyWithSeed(seed uint64) *RandomPolicy {
	return &RandomPolicy{
		rand: rand.New(rand.NewSource(seed)),
	}
}

func (r *RandomPolicy) ChooseAction(obs Observation) Action {
	blocked, ok := obs.Blocked()
	if !ok {
		return AllActions[r.rand.Intn(NumActions)]
	}
	candidates := make([]Action, 0, NumActions)
	for _, a := range AllActions {
		if !IsBlocked(a, blocked) {
			candidates = append(candidates, a)
		}
	}
	return candidates[r.rand.Intn(len(candidates))]
}

// IsBlocked reports if a directional action is blocked, Stay never is
func IsBlocked(a Action, blocked [4]bool) bool {
	switch a {
	case MoveNorth:
		return blocked[0]
	case MoveSouth:
		return blocked[1]
	case MoveEast:
		return blocked[2]
	case MoveWest:
		return blocked[3]
	}
	return false
}
