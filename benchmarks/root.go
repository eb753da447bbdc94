package benchmarks

import (
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/zeu5/tickrl/config"
)

var (
	configPath string
	saveFile   string
	logLevel   string
	cpuprofile string
	memprofile string
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:          "tickrl",
		Short:        "Tick paced tabular reinforcement learning",
		SilenceUsage: true,
	}
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "tickrl.yaml", "Path to the yaml configuration")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "One of debug, info, warn, error")
	rootCommand.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write a cpu profile to this file in the save folder")
	rootCommand.PersistentFlags().StringVar(&memprofile, "memprofile", "", "Write a heap profile to this file in the save folder")
	// adding the subcommands here
	rootCommand.AddCommand(TrainCommand())
	rootCommand.AddCommand(ServeCommand())
	rootCommand.AddCommand(CompareCommand())
	rootCommand.AddCommand(TransitionsCommand())
	return rootCommand
}

func levelOption(name string) level.Option {
	switch strings.ToLower(name) {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	}
	return level.AllowInfo()
}

func newLogger() log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, levelOption(logLevel))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// loadConfig reads the configuration file, the save folder overrides the output paths
func loadConfig() (config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return c, err
	}
	if saveFile != "" {
		c.Transitions.Path = saveFile
		c.Timing.Path = saveFile
		c.Graph.Path = saveFile
	}
	return c, nil
}
