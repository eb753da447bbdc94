package types

import (
	"context"
	"os"
	"path"
	"testing"
)

func TestComparison(t *testing.T) {
	dir := t.TempDir()
	c := NewComparison(&ComparisonConfig{
		Runs:        2,
		Ticks:       300,
		SampleEvery: 2,
		RecordPath:  dir,
	})
	analyzer := NewStatsAnalyzer()
	var seen [][]DataSet
	var names []string
	c.AddAnalysis("Stats", analyzer, func(run int, n []string, ds []DataSet) {
		names = n
		seen = append(seen, ds)
	})
	c.AddAnalysis("SuccessRate", NewStatsAnalyzer(), SuccessRateComparator(path.Join(dir, "plots")))

	config := configWithSpeed(20)
	config.ResetDelayTicks = 0
	c.AddExperiment(NewExperiment("short", func() *EpisodeRunner {
		env := &scriptedEnv{episodeLen: 3, reward: func(int) float64 { return 10 }}
		return NewEpisodeRunner(env, &stayPolicy{}, nil, config)
	}))
	c.AddExperiment(NewExperiment("long", func() *EpisodeRunner {
		env := &scriptedEnv{episodeLen: 10, reward: func(e int) float64 { return float64(e%2) * 10 }}
		return NewEpisodeRunner(env, &stayPolicy{}, nil, config)
	}))

	if err := c.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected the comparator to be called once per run, got %d", len(seen))
	}
	if len(names) != 2 || names[0] != "short" || names[1] != "long" {
		t.Errorf("unexpected names %v", names)
	}
	short := seen[1][0].([]EpisodeStats)
	// 100 episodes of 3 steps, sampled every 2 episodes
	if len(short) != 50 {
		t.Errorf("expected 50 samples, got %d", len(short))
	}
	if last := short[len(short)-1]; last.EpisodesCompleted != 100 || last.OverallSuccessRate != 1 {
		t.Errorf("unexpected last sample %+v", last)
	}
	for _, f := range []string{"comparison_config.json", "plots/0_success_rate.png", "plots/1_success_rate.png"} {
		if _, err := os.Stat(path.Join(dir, f)); err != nil {
			t.Errorf("missing %s: %s", f, err)
		}
	}
}
