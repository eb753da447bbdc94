package types

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// StatsAnalyzer keeps every sampled snapshot of an experiment
type StatsAnalyzer struct {
	samples []EpisodeStats
}

var _ Analyzer = &StatsAnalyzer{}

func NewStatsAnalyzer() *StatsAnalyzer {
	return &StatsAnalyzer{
		samples: make([]EpisodeStats, 0),
	}
}

func (s *StatsAnalyzer) Analyze(_ int, _ string, stats EpisodeStats) {
	s.samples = append(s.samples, stats)
}

func (s *StatsAnalyzer) DataSet() DataSet {
	out := make([]EpisodeStats, len(s.samples))
	copy(out, s.samples)
	return out
}

func (s *StatsAnalyzer) Reset() {
	s.samples = make([]EpisodeStats, 0)
}

// StatsSeries extracts a column of the sampled snapshots against episodes completed
func StatsSeries(samples []EpisodeStats, f func(EpisodeStats) float64) plotter.XYs {
	points := make(plotter.XYs, len(samples))
	for i, s := range samples {
		points[i] = plotter.XY{
			X: float64(s.EpisodesCompleted),
			Y: f(s),
		}
	}
	return points
}

func statsPlotter(plotPath, suffix, yLabel string, f func(EpisodeStats) float64) Comparator {
	if _, err := os.Stat(plotPath); err != nil {
		os.MkdirAll(plotPath, os.ModePerm)
	}
	return func(run int, names []string, ds []DataSet) {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episodes"
		p.Y.Label.Text = yLabel
		for i := 0; i < len(names); i++ {
			samples := ds[i].([]EpisodeStats)
			if len(samples) == 0 {
				continue
			}
			points := StatsSeries(samples, f)
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)

			ys := make([]float64, len(points))
			for j, pt := range points {
				ys[j] = pt.Y
			}
			fmt.Printf("Best %s: %.3f for benchmark: %s\n", yLabel, floats.Max(ys), names[i])
		}
		p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_"+suffix+".png"))
	}
}

// SuccessRateComparator plots the recent success rate of each experiment
func SuccessRateComparator(plotPath string) Comparator {
	return statsPlotter(plotPath, "success_rate", "Recent success rate", func(s EpisodeStats) float64 {
		return s.RecentSuccessRate
	})
}

// StepsToGoalComparator plots the recent average steps to goal
func StepsToGoalComparator(plotPath string) Comparator {
	return statsPlotter(plotPath, "steps_to_goal", "Recent avg steps to goal", func(s EpisodeStats) float64 {
		return s.RecentAvgStepsToGoal
	})
}

// EpsilonComparator plots the reported exploration rate
func EpsilonComparator(plotPath string) Comparator {
	return statsPlotter(plotPath, "epsilon", "Epsilon", func(s EpisodeStats) float64 {
		return s.Epsilon
	})
}
