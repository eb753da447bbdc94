package grid

import (
	"math"
	"testing"

	"github.com/zeu5/tickrl/types"
)

var testLayout = []string{
	"..#",
	".~.",
	"0.3",
}

func newTestArena(t *testing.T, maxSteps int) *Arena {
	arena, err := NewArena(ArenaConfig{Layout: testLayout, MaxSteps: maxSteps, Seed: 1})
	if err != nil {
		t.Fatalf("failed to create arena: %s", err)
	}
	arena.Reset()
	return arena
}

func blockedBits(t *testing.T, obs types.Observation) [4]bool {
	b, ok := obs.Blocked()
	if !ok {
		t.Fatalf("arena observations should carry blocked bits")
	}
	return b
}

func TestArenaBlockedBits(t *testing.T) {
	arena := newTestArena(t, 100)

	arena.Place(Position{0, 0}, Position{0, 2})
	if b := blockedBits(t, arena.Observation()); b != [4]bool{true, false, false, true} {
		t.Errorf("incorrect blocked bits at the corner: %v", b)
	}

	arena.Place(Position{1, 0}, Position{0, 2})
	if b := blockedBits(t, arena.Observation()); !b[2] {
		t.Errorf("wall to the east should be blocked: %v", b)
	}

	arena.Place(Position{1, 2}, Position{0, 0})
	if b := blockedBits(t, arena.Observation()); !b[2] {
		t.Errorf("steep slope to the east should be blocked: %v", b)
	}
}

func TestArenaBlockedMoveStaysPut(t *testing.T) {
	arena := newTestArena(t, 100)
	arena.Place(Position{1, 0}, Position{0, 2})
	res := arena.Step(types.MoveEast)
	if !arena.Agent().Eq(Position{1, 0}) {
		t.Errorf("agent moved into a wall: %v", arena.Agent())
	}
	if res.Done {
		t.Errorf("blocked move should not end the episode")
	}
	if res.Reward != StepCost {
		t.Errorf("expected plain step cost, got %f", res.Reward)
	}
}

func TestArenaHazardAndStepAfterDone(t *testing.T) {
	arena := newTestArena(t, 100)
	arena.Place(Position{1, 0}, Position{0, 2})
	res := arena.Step(types.MoveSouth)
	if res.Reward != HazardReward || !res.Done {
		t.Errorf("expected hazard termination, got %+v", res)
	}
	if !arena.IsDone() {
		t.Errorf("arena should be done")
	}
	after := arena.Step(types.MoveWest)
	if after.Reward != 0 || !after.Done {
		t.Errorf("stepping after done should return zero reward and done, got %+v", after)
	}
	if !arena.Agent().Eq(Position{1, 1}) {
		t.Errorf("stepping after done should not move the agent")
	}
}

func TestArenaGoalAndShaping(t *testing.T) {
	arena := newTestArena(t, 100)
	arena.Place(Position{0, 0}, Position{0, 2})
	res := arena.Step(types.MoveSouth)
	if res.Done {
		t.Fatalf("episode should not be over yet")
	}
	if expected := StepCost + ShapingReward; math.Abs(res.Reward-expected) > 1e-12 {
		t.Errorf("expected %f for moving closer, got %f", expected, res.Reward)
	}
	res = arena.Step(types.MoveSouth)
	if res.Reward != GoalReward || !res.Done {
		t.Errorf("expected goal reward, got %+v", res)
	}
}

func TestArenaMaxSteps(t *testing.T) {
	arena := newTestArena(t, 3)
	arena.Place(Position{0, 0}, Position{2, 1})
	for i := 0; i < 2; i++ {
		if res := arena.Step(types.Stay); res.Done {
			t.Fatalf("episode ended early at step %d", i+1)
		}
	}
	if res := arena.Step(types.Stay); !res.Done {
		t.Errorf("episode should end at the step budget")
	}
}

func TestArenaResetPlacesOnFloor(t *testing.T) {
	arena := newTestArena(t, 100)
	for i := 0; i < 50; i++ {
		arena.Reset()
		if arena.Agent().Eq(arena.Goal()) {
			t.Fatalf("agent spawned on the goal")
		}
		if arena.Terrain().Tile(arena.Agent()) != Floor || arena.Terrain().Tile(arena.Goal()) != Floor {
			t.Fatalf("agent or goal placed on a wall or hazard")
		}
	}
}

func TestParseLayoutErrors(t *testing.T) {
	if _, err := ParseLayout([]string{"..", "."}); err == nil {
		t.Errorf("expected error for ragged layout")
	}
	if _, err := ParseLayout([]string{".x"}); err == nil {
		t.Errorf("expected error for unknown tile")
	}
	if _, err := ParseLayout([]string{"#~"}); err == nil {
		t.Errorf("expected error for layout without floor")
	}
}

func TestRoomAndCurriculum(t *testing.T) {
	c := DefaultCurriculumConfig()
	c.Seed = 3
	curriculum := NewCurriculum(c, nil)
	room, err := curriculum.Environment()
	if err != nil {
		t.Fatalf("failed to build room: %s", err)
	}
	room.Reset()
	if !room.Goal().Eq(Position{c.Width - 3, c.Depth - 3}) {
		t.Errorf("first level should use the fixed goal, got %v", room.Goal())
	}
	if obs := room.Observation(); obs.Len() != 3 || obs.Schema() != types.Planar {
		t.Errorf("room observations should be planar")
	}

	policy := &boostRecorder{}
	room, err = curriculum.Next(policy)
	if err != nil {
		t.Fatalf("failed to advance: %s", err)
	}
	if policy.minEpsilon != c.MinEpsilon || policy.episodes != c.BoostEpisodes {
		t.Errorf("expected exploration boost (%f, %d), got (%f, %d)", c.MinEpsilon, c.BoostEpisodes, policy.minEpsilon, policy.episodes)
	}
	for i := 0; i < 50; i++ {
		room.Reset()
		g := room.Goal()
		if g.Eq(room.Config().Spawn) || g.X < 1 || g.X > c.Width-2 || g.Z < 1 || g.Z > c.Depth-2 {
			t.Fatalf("random goal %v should be interior and away from the spawn", g)
		}
	}
	curriculum.Next(policy)
	if curriculum.Level() != MaxLevel {
		t.Errorf("level should stay at %d, got %d", MaxLevel, curriculum.Level())
	}
}

type boostRecorder struct {
	types.RandomPolicy
	minEpsilon float64
	episodes   int
}

func (b *boostRecorder) BoostEpsilonToAtLeast(e float64, n int) {
	b.minEpsilon = e
	b.episodes = n
}

func TestVisitMap(t *testing.T) {
	v := NewVisitMap(3, 3)
	v.UpdatePosition(1, 0, 2)
	v.UpdatePosition(1, 5, 2)
	v.OnGoalHit()
	if v.Count(1, 2) != 2 {
		t.Errorf("expected 2 visits, got %d", v.Count(1, 2))
	}
	if v.Z(1, 2) != 2 || v.Max() != 2 {
		t.Errorf("grid values do not match the counts")
	}
	v.Destroy()
	v.UpdatePosition(0, 0, 0)
	if v.Count(0, 0) != 0 {
		t.Errorf("destroyed visit map should ignore updates")
	}
}

func TestArenaRender(t *testing.T) {
	arena := newTestArena(t, 10)
	arena.Place(Position{0, 0}, Position{2, 1})
	expected := "A0#\n0~G\n003\n"
	if out := arena.Render(false); out != expected {
		t.Errorf("expected\n%s\ngot\n%s", expected, out)
	}
	if colored := arena.Render(true); colored == expected {
		t.Errorf("expected escape codes in the colored render")
	}
}

func TestTimeoutIsNeverASuccess(t *testing.T) {
	arena := newTestArena(t, 1)
	arena.Place(Position{0, 0}, Position{2, 1})
	// moving south gets closer to the goal but uses the whole budget
	if res := arena.Step(types.MoveSouth); !res.Done || res.Reward > 0 {
		t.Errorf("expected a non-positive terminal reward on timeout, got %+v", res)
	}

	room, err := NewRoom(RoomConfig{Width: 12, Depth: 3, Spawn: Position{0, 1}, Goal: Position{9, 1}, MaxSteps: 3, Seed: 1})
	if err != nil {
		t.Fatalf("failed to build room: %s", err)
	}
	room.Reset()
	var res types.StepResult
	for i := 0; i < 3; i++ {
		res = room.Step(types.MoveEast)
	}
	if !res.Done || res.Reward != StepCost {
		t.Errorf("expected the step cost on timeout, got %+v", res)
	}

	hazard := newTestArena(t, 1)
	hazard.Place(Position{1, 0}, Position{2, 1})
	if res := hazard.Step(types.MoveSouth); !res.Done || res.Reward != HazardReward {
		t.Errorf("hazard reward should survive the budget, got %+v", res)
	}
}
