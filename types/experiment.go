package types

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
)

type experimentRunConfig struct {
	CurrentRun  int
	Ticks       int
	SampleEvery int
	Analyzers   []Analyzer
	Context     context.Context

	RecordPolicy   bool
	ReportSavePath string

	LongestExpNameLen int
}

// Recorder is implemented by policies that can dump their learned table
type Recorder interface {
	Record(string) error
}

// RunnerFactory builds a fresh runner, with a fresh policy, for every run
type RunnerFactory func() *EpisodeRunner

// Experiment is a named runner configuration to be compared with others
type Experiment struct {
	Name      string
	newRunner RunnerFactory
}

func NewExperiment(name string, factory RunnerFactory) *Experiment {
	return &Experiment{
		Name:      name,
		newRunner: factory,
	}
}

// Run drives a new runner for the configured number of ticks without a wall clock.
// Analyzers receive a snapshot every SampleEvery completed episodes.
func (e *Experiment) Run(rConfig *experimentRunConfig) {
	runner := e.newRunner()
	defer runner.Shutdown()

	lastEpisodes := int64(0)
	printEvery := rConfig.Ticks / 100
	if printEvery < 1 {
		printEvery = 1
	}
	TPadding := len(strconv.Itoa(rConfig.Ticks))
	NamePadding := rConfig.LongestExpNameLen

	for tick := 0; tick < rConfig.Ticks; tick++ {
		if tick%printEvery == 0 {
			select {
			case <-rConfig.Context.Done():
				return
			default:
			}
			s := runner.Snapshot()
			fmt.Printf("\rExp:%*s, Ticks:%*d/%d, Episodes:%d, Success:[%5.1f%%], Recent:[%5.1f%%]",
				NamePadding, e.Name, TPadding, tick, rConfig.Ticks, s.EpisodesCompleted, s.OverallSuccessRate*100, s.RecentSuccessRate*100)
		}

		runner.Tick()

		if n := runner.EpisodesCompleted(); n != lastEpisodes {
			lastEpisodes = n
			if n%int64(rConfig.SampleEvery) == 0 {
				s := runner.Snapshot()
				for _, a := range rConfig.Analyzers {
					a.Analyze(rConfig.CurrentRun, e.Name, s)
				}
			}
		}
	}

	if rConfig.RecordPolicy {
		if r, ok := runner.Policy().(Recorder); ok {
			policyPath := path.Join(rConfig.ReportSavePath, "policies", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
			if err := r.Record(policyPath); err != nil {
				fmt.Printf("\nFailed to record policy for %s: %s\n", e.Name, err)
			}
		}
	}
	fmt.Println("")
}

// Generic Dataset that contains information after processing the snapshots
type DataSet interface{}

// Analyzer compresses the sampled statistics to a DataSet
type Analyzer interface {
	// run, experiment, snapshot
	Analyze(int, string, EpisodeStats)
	DataSet() DataSet
	Reset()
}

// Comparator differentiates between different datasets with associated names
// run, experiment names, datasets
type Comparator func(int, []string, []DataSet)

func NoopComparator() Comparator {
	return func(_ int, _ []string, _ []DataSet) {}
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs        int // number of runs
	Ticks       int // simulated ticks per run
	SampleEvery int // episodes between analyzer samples

	RecordPath   string // path to store the results
	RecordPolicy bool
}

// Comparison contains the different experiments to compare
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]Analyzer
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
}

func NewComparison(config *ComparisonConfig) *Comparison {
	if config.SampleEvery <= 0 {
		config.SampleEvery = 1
	}
	os.MkdirAll(config.RecordPath, 0777)
	if config.RecordPolicy {
		os.MkdirAll(path.Join(config.RecordPath, "policies"), 0777)
	}

	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]Analyzer),
		comparators: make(map[string]Comparator),
		cConfig:     config,
	}
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer Analyzer, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["ticks"] = cfg.Ticks
	out["sample_every"] = cfg.SampleEvery
	out["record_policy"] = cfg.RecordPolicy

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0)
	for name := range c.analyzers {
		analyzers = append(analyzers, name)
	}
	out["analyzers"] = analyzers

	bs, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(cfg.RecordPath, "comparison_config.json"), bs, 0644)
}

// Run the comparison
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return fmt.Errorf("recording comparison config: %w", err)
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}

	for run := 0; run < c.cConfig.Runs; run++ {
		fmt.Printf("Run %d\n", run+1)
		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}

		names := make([]string, len(c.Experiments))
		for i, e := range c.Experiments {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			e.Run(c.prepareRunConfig(ctx, run, longestNameLen))
			for name, a := range c.analyzers {
				datasets[name][i] = a.DataSet()
				a.Reset()
			}
			names[i] = e.Name
		}
		for name, comp := range c.comparators {
			comp(run, names, datasets[name])
		}
	}
	return nil
}

func (c *Comparison) prepareRunConfig(ctx context.Context, run, longestExpNameLen int) *experimentRunConfig {
	rCfg := &experimentRunConfig{
		CurrentRun:     run,
		Ticks:          c.cConfig.Ticks,
		SampleEvery:    c.cConfig.SampleEvery,
		Analyzers:      make([]Analyzer, 0),
		Context:        ctx,
		RecordPolicy:   c.cConfig.RecordPolicy,
		ReportSavePath: c.cConfig.RecordPath,

		LongestExpNameLen: longestExpNameLen,
	}
	for _, a := range c.analyzers {
		rCfg.Analyzers = append(rCfg.Analyzers, a)
	}
	return rCfg
}
