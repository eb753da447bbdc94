package policies

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/zeu5/tickrl/types"
)

func testConfig() QLearningConfig {
	c := DefaultQLearningConfig()
	c.Seed = 42
	return c
}

func greedyConfig() QLearningConfig {
	c := testConfig()
	c.EpsilonStart = 0
	c.EpsilonEnd = 0
	return c
}

func TestChooseActionAllBlocked(t *testing.T) {
	allBlocked := types.MustObservation(types.Full, 1, 0, 0, 0.5, 1, 1, 1, 1)

	greedy := NewQLearningPolicy(greedyConfig())
	for i := 0; i < 100; i++ {
		if a := greedy.ChooseAction(allBlocked); a != types.Stay {
			t.Fatalf("expected STAY with every direction blocked, got %s", a)
		}
	}

	c := testConfig()
	c.EpsilonStart = 1
	c.EpsilonEnd = 1
	explorer := NewQLearningPolicy(c)
	for i := 0; i < 100; i++ {
		if a := explorer.ChooseAction(allBlocked); a != types.Stay {
			t.Fatalf("expected STAY when exploring with every direction blocked, got %s", a)
		}
	}
}

func TestChooseActionRespectsMask(t *testing.T) {
	c := testConfig()
	c.EpsilonStart = 1
	c.EpsilonEnd = 1
	p := NewQLearningPolicy(c)
	// only west is open
	obs := types.MustObservation(types.Full, 0, 1, 0, 0.3, 1, 1, 1, 0)
	seen := make(map[types.Action]int)
	for i := 0; i < 1000; i++ {
		a := p.ChooseAction(obs)
		if !a.Valid() {
			t.Fatalf("invalid action %d", a)
		}
		seen[a]++
	}
	for _, a := range []types.Action{types.MoveNorth, types.MoveSouth, types.MoveEast} {
		if seen[a] != 0 {
			t.Errorf("blocked action %s chosen %d times", a, seen[a])
		}
	}
	if seen[types.MoveWest] == 0 || seen[types.Stay] == 0 {
		t.Errorf("expected both west and stay to be explored, got %v", seen)
	}
}

func TestTieBreakingUniform(t *testing.T) {
	p := NewQLearningPolicy(greedyConfig())
	obs := types.MustObservation(types.Planar, 1, 1, 0.5)
	trials := 10000
	counts := make(map[types.Action]int)
	for i := 0; i < trials; i++ {
		counts[p.ChooseAction(obs)]++
	}
	expected := trials / types.NumActions
	for _, a := range types.AllActions {
		if math.Abs(float64(counts[a]-expected)) > 300 {
			t.Errorf("action %s chosen %d times, expected about %d", a, counts[a], expected)
		}
	}
}

func TestObserveTransitionUpdate(t *testing.T) {
	c := greedyConfig()
	c.TimePenaltySlope = 0
	p := NewQLearningPolicy(c)

	s := types.MustObservation(types.Full, 1, 0, 0, 0.9, 0, 0, 0, 0)
	next := types.MustObservation(types.Full, 1, 0, 0, 0.5, 0, 0, 0, 0)
	sKey := MustDiscretize(s)

	before := p.QTable().Get(sKey, types.MoveEast)
	reward := -0.01
	maxNext := c.OptimisticInit
	target := reward + c.Gamma*maxNext

	p.ObserveTransition(s, types.MoveEast, reward, next, false)
	after := p.QTable().Get(sKey, types.MoveEast)
	expected := before + c.Alpha*(target-before)
	if math.Abs(after-expected) > 1e-12 {
		t.Errorf("incorrect update: got %f, expected %f", after, expected)
	}
	if math.Abs(after-target) >= math.Abs(before-target) {
		t.Errorf("value did not move toward the target")
	}
	if p.StepIndex() != 1 {
		t.Errorf("expected step index 1, got %d", p.StepIndex())
	}
}

func TestObserveTransitionTerminalAndClamp(t *testing.T) {
	c := greedyConfig()
	c.TimePenaltySlope = 0
	c.Alpha = 1
	p := NewQLearningPolicy(c)
	s := types.MustObservation(types.Planar, 1, 0, 0.1)
	next := types.MustObservation(types.Planar, 0, 0, 0)

	p.ObserveTransition(s, types.MoveNorth, 1000, next, true)
	if v := p.QTable().Get(MustDiscretize(s), types.MoveNorth); v != c.QMax {
		t.Errorf("expected value clamped to %f, got %f", c.QMax, v)
	}
	p.ObserveTransition(s, types.MoveSouth, -1000, next, true)
	if v := p.QTable().Get(MustDiscretize(s), types.MoveSouth); v != c.QMin {
		t.Errorf("expected value clamped to %f, got %f", c.QMin, v)
	}
	if p.EpisodesSeen() != 2 {
		t.Errorf("expected 2 episodes seen, got %d", p.EpisodesSeen())
	}
	if p.StepIndex() != 0 {
		t.Errorf("step index should reset on terminal transitions, got %d", p.StepIndex())
	}
}

func TestTimePenaltyShaping(t *testing.T) {
	c := greedyConfig()
	c.Alpha = 1
	c.Gamma = 0
	c.TimePenaltyBase = 0.5
	c.TimePenaltySlope = 0.25
	p := NewQLearningPolicy(c)
	s := types.MustObservation(types.Planar, 1, 0, 0.1)

	p.ObserveTransition(s, types.MoveNorth, 1, s, false)
	p.ObserveTransition(s, types.MoveNorth, 1, s, false)
	// second step is penalized by base + slope * 1
	if v := p.QTable().Get(MustDiscretize(s), types.MoveNorth); math.Abs(v-0.25) > 1e-12 {
		t.Errorf("expected shaped value 0.25, got %f", v)
	}
	p.OnEpisodeEnd()
	p.OnEpisodeEnd()
	if p.StepIndex() != 0 {
		t.Errorf("expected step index reset, got %d", p.StepIndex())
	}
}

func TestMaskedNextStateMax(t *testing.T) {
	c := greedyConfig()
	c.Alpha = 1
	c.Gamma = 1
	c.TimePenaltySlope = 0
	p := NewQLearningPolicy(c)

	s := types.MustObservation(types.Full, 1, 0, 0, 0.9, 0, 0, 0, 0)
	next := types.MustObservation(types.Full, 1, 0, 0, 0.1, 1, 1, 1, 1)
	nextKey := MustDiscretize(next)
	p.QTable().Set(nextKey, types.MoveNorth, 50)
	p.QTable().Set(nextKey, types.Stay, 2)

	p.ObserveTransition(s, types.MoveEast, 0, next, false)
	// north is blocked in the next state so only stay counts
	if v := p.QTable().Get(MustDiscretize(s), types.MoveEast); v != 2 {
		t.Errorf("expected masked max 2, got %f", v)
	}
}

func TestMalformedObservationPanics(t *testing.T) {
	p := NewQLearningPolicy(testConfig())
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, types.ErrMalformedObservation) {
			t.Errorf("expected malformed observation error, got %v", r)
		}
	}()
	p.ChooseAction(types.Observation{})
}

func TestAdaptiveEpsilonAndBoost(t *testing.T) {
	p := NewQLearningPolicy(testConfig())
	if e := p.Epsilon(); e != 0.60 {
		t.Errorf("expected initial epsilon 0.60, got %f", e)
	}
	for i := 0; i < 200; i++ {
		p.UpdatePerformance(1.0)
	}
	if e := p.Epsilon(); math.Abs(e-0.03) > 1e-3 {
		t.Errorf("expected epsilon near 0.03 after sustained success, got %f", e)
	}

	p.BoostEpsilonToAtLeast(0.5, 25)
	if e := p.Epsilon(); e < 0.5-1e-9 {
		t.Errorf("expected boosted epsilon of at least 0.5, got %f", e)
	}
	prev := p.Epsilon()
	for i := 0; i < 25; i++ {
		p.UpdatePerformance(1.0)
		if e := p.Epsilon(); e > prev+1e-9 {
			t.Errorf("boost should decay, epsilon rose from %f to %f", prev, e)
		}
		prev = p.Epsilon()
	}
	if e := p.Epsilon(); math.Abs(e-0.03) > 1e-3 {
		t.Errorf("expected boost to have expired, epsilon %f", e)
	}

	for i := 0; i < 200; i++ {
		p.UpdatePerformance(0)
	}
	if e := p.Epsilon(); e < 0.5 {
		t.Errorf("expected exploration to rise after failures, got %f", e)
	}
}

func TestSoftmaxPolicy(t *testing.T) {
	p := NewSoftmaxPolicy(testConfig(), 0.1)
	obs := types.MustObservation(types.Full, 1, 0, 0, 0.5, 0, 1, 1, 1)
	key := MustDiscretize(obs)
	p.QTable().Set(key, types.MoveNorth, 5)
	counts := make(map[types.Action]int)
	for i := 0; i < 1000; i++ {
		counts[p.ChooseAction(obs)]++
	}
	for _, a := range []types.Action{types.MoveSouth, types.MoveEast, types.MoveWest} {
		if counts[a] != 0 {
			t.Errorf("blocked action %s sampled %d times", a, counts[a])
		}
	}
	if counts[types.MoveNorth] < 900 {
		t.Errorf("expected the high value action to dominate, got %v", counts)
	}
}

func TestRandomPolicy(t *testing.T) {
	p := types.NewRandomPolicyWithSeed(7)
	obs := types.MustObservation(types.Full, 1, 0, 0, 0.5, 1, 1, 0, 1)
	for i := 0; i < 500; i++ {
		a := p.ChooseAction(obs)
		if a != types.MoveEast && a != types.Stay {
			t.Fatalf("random policy picked blocked action %s", a)
		}
	}
}

func TestLoadClampsValues(t *testing.T) {
	filePath := t.TempDir() + "/policy.jsonl"
	table := `{"state":"1,0,0,3","values":[500,0,0,0,-900]}` + "\n"
	if err := os.WriteFile(filePath, []byte(table), 0644); err != nil {
		t.Fatalf("failed to write table: %s", err)
	}
	c := testConfig()
	p := NewQLearningPolicy(c)
	if err := p.Load(filePath); err != nil {
		t.Fatalf("failed to load: %s", err)
	}
	k := StateKey{DX: 1, Dist: 3}
	if v := p.QTable().Get(k, types.Action(0)); v != c.QMax {
		t.Errorf("expected %f after loading, got %f", c.QMax, v)
	}
	if v := p.QTable().Get(k, types.Action(4)); v != c.QMin {
		t.Errorf("expected %f after loading, got %f", c.QMin, v)
	}
}

func TestQTableMaxAmong(t *testing.T) {
	q := NewQTable(0)
	k := StateKey{Dist: 1}
	q.Set(k, types.MoveNorth, 5)
	q.Set(k, types.MoveSouth, 3)
	if v, ok := q.MaxAmong(k, nil); !ok || v != 5 {
		t.Errorf("expected 5 over all actions, got %f", v)
	}
	notNorth := func(a types.Action) bool { return a != types.MoveNorth }
	if v, ok := q.MaxAmong(k, notNorth); !ok || v != 3 {
		t.Errorf("expected 3 without north, got %f", v)
	}
	if _, ok := q.MaxAmong(k, func(types.Action) bool { return false }); ok {
		t.Errorf("nothing should be found when all actions are excluded")
	}
}
