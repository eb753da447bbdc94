package benchmarks

import (
	"path"

	"github.com/spf13/cobra"
	"github.com/zeu5/tickrl/grid"
	"github.com/zeu5/tickrl/policies"
	"github.com/zeu5/tickrl/types"
)

func Compare(runs, ticks, sampleEvery int, temperature float64, recordPolicy bool) error {
	logger := newLogger()
	ctx, cancel := interruptContext()
	defer cancel()

	c, err := loadConfig()
	if err != nil {
		return err
	}
	// experiments are simulated as fast as possible
	runnerConfig := c.RunnerConfig()
	arenaConfig := c.ArenaConfig()
	learningConfig := c.QLearningConfig()

	// layouts are parsed and checked once, the factories cannot fail afterwards
	if _, err := grid.NewArena(arenaConfig); err != nil {
		return err
	}
	arena := func() types.Environment {
		a, _ := grid.NewArena(arenaConfig)
		return a
	}

	comparison := types.NewComparison(&types.ComparisonConfig{
		Runs:        runs,
		Ticks:       ticks,
		SampleEvery: sampleEvery,
		RecordPath:  saveFile,
		// record flags
		RecordPolicy: recordPolicy,
	})
	plots := path.Join(saveFile, "plots")
	comparison.AddAnalysis("SuccessRate", types.NewStatsAnalyzer(), types.SuccessRateComparator(plots))
	comparison.AddAnalysis("StepsToGoal", types.NewStatsAnalyzer(), types.StepsToGoalComparator(plots))
	comparison.AddAnalysis("Epsilon", types.NewStatsAnalyzer(), types.EpsilonComparator(plots))

	comparison.AddExperiment(types.NewExperiment("Random", func() *types.EpisodeRunner {
		return types.NewEpisodeRunner(arena(), types.NewRandomPolicy(), nil, runnerConfig, types.WithLogger(logger))
	}))
	comparison.AddExperiment(types.NewExperiment("QLearning", func() *types.EpisodeRunner {
		return types.NewEpisodeRunner(arena(), policies.NewQLearningPolicy(learningConfig), nil, runnerConfig, types.WithLogger(logger))
	}))
	comparison.AddExperiment(types.NewExperiment("Softmax", func() *types.EpisodeRunner {
		return types.NewEpisodeRunner(arena(), policies.NewSoftmaxPolicy(learningConfig, temperature), nil, runnerConfig, types.WithLogger(logger))
	}))

	return comparison.Run(ctx)
}

func CompareCommand() *cobra.Command {
	var runs int
	var ticks int
	var sampleEvery int
	var temperature float64
	var recordPolicy bool

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the random, q-learning and softmax policies on the arena",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Compare(runs, ticks, sampleEvery, temperature, recordPolicy)
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	cmd.Flags().IntVar(&ticks, "ticks", 200000, "Simulated ticks per experiment")
	cmd.Flags().IntVar(&sampleEvery, "sample-every", 10, "Episodes between samples")
	cmd.Flags().Float64Var(&temperature, "temperature", 0.5, "Softmax temperature")
	cmd.Flags().BoolVar(&recordPolicy, "record-policy", false, "Record the learned Q-tables")
	return cmd
}
