package benchmarks

import (
	"context"
	"errors"
	"os"
	"path"
	"testing"

	"github.com/go-kit/log"
	"github.com/zeu5/tickrl/config"
	"github.com/zeu5/tickrl/grid"
	"github.com/zeu5/tickrl/policies"
	"github.com/zeu5/tickrl/types"
)

func TestNewEnvironment(t *testing.T) {
	c := config.Default()
	for _, kind := range []string{EnvArena, EnvRoom, EnvCurriculum} {
		env, curriculum, err := newEnvironment(c, kind, nil)
		if err != nil {
			t.Fatalf("%s: %s", kind, err)
		}
		if env == nil {
			t.Errorf("%s: nil environment", kind)
		}
		if (curriculum != nil) != (kind == EnvCurriculum) {
			t.Errorf("%s: unexpected curriculum %v", kind, curriculum)
		}
	}
	if _, _, err := newEnvironment(c, "maze", nil); !errors.Is(err, ErrUnknownEnvironment) {
		t.Errorf("expected ErrUnknownEnvironment, got %v", err)
	}
}

func TestNewPolicy(t *testing.T) {
	c := config.Default()
	p, err := newPolicy(c, "random", 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*types.RandomPolicy); !ok {
		t.Errorf("expected a random policy, got %T", p)
	}
	if p, _ = newPolicy(c, "softmax", 0.5); p == nil {
		t.Fatal("nil softmax policy")
	}
	if _, ok := p.(*policies.SoftmaxPolicy); !ok {
		t.Errorf("expected a softmax policy, got %T", p)
	}
	if _, err := newPolicy(c, "dqn", 0); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestSessionOutputs(t *testing.T) {
	dir := t.TempDir()
	configPath = path.Join(dir, "missing.yaml")
	saveFile = dir

	flags := sessionFlags{env: EnvRoom, policy: "qlearning", speed: 400, recordPolicy: true}
	s, err := newSession(context.Background(), flags, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.runner.Environment().(*grid.Room); !ok {
		t.Fatalf("expected a room, got %T", s.runner.Environment())
	}
	simulate(context.Background(), s.runner, 4000, types.NewStatusLine(""))
	if s.runner.EpisodesCompleted() == 0 {
		t.Fatal("expected completed episodes")
	}
	if err := s.finish(); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"stats.json", "policy.jsonl", "visits.json", "visits.png", "progress.png"} {
		if _, err := os.Stat(path.Join(dir, name)); err != nil {
			t.Errorf("missing output %s: %s", name, err)
		}
	}
}

func TestSessionMemorySink(t *testing.T) {
	dir := t.TempDir()
	configPath = path.Join(dir, "tickrl.yaml")
	saveFile = dir
	if err := os.WriteFile(configPath, []byte("transitions:\n  sink: memory\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := newSession(context.Background(), sessionFlags{env: EnvRoom, policy: "random", speed: 400}, log.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	trace, ok := s.transition.(*types.Trace)
	if !ok {
		t.Fatalf("expected an in-memory sink, got %T", s.transition)
	}
	simulate(context.Background(), s.runner, 200, types.NewStatusLine(""))
	if int64(trace.Len()) != s.runner.Snapshot().TotalSteps {
		t.Errorf("expected one transition per step, got %d for %d steps", trace.Len(), s.runner.Snapshot().TotalSteps)
	}
	if err := s.finish(); err != nil {
		t.Fatal(err)
	}
}
