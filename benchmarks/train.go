package benchmarks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/zeu5/tickrl/types"
)

func statusLine(s types.EpisodeStats) string {
	return fmt.Sprintf("Episodes:%d, Success:[%5.1f%%], Recent:[%5.1f%%], AvgReward:%7.3f, Epsilon:%.3f, States:%d, Speed:%.1f steps/s",
		s.EpisodesCompleted, s.OverallSuccessRate*100, s.RecentSuccessRate*100, s.MovingAvgReward, s.Epsilon, s.StateCount, s.StepsPerSecond)
}

// simulate drives the runner for a fixed number of ticks without a wall clock
func simulate(ctx context.Context, runner *types.EpisodeRunner, ticks int, line *types.StatusLine) {
	for tick := 0; tick < ticks; tick++ {
		if tick%100 == 0 {
			select {
			case <-ctx.Done():
				return
			default:
			}
			line.TrySet(statusLine(runner.Snapshot()))
		}
		runner.Tick()
	}
	line.Set(statusLine(runner.Snapshot()))
}

// follow keeps the status line in sync with a running loop
func follow(ctx context.Context, loop *types.TickLoop, line *types.StatusLine) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-loop.Done():
			return
		case <-ticker.C:
			if s, err := loop.Snapshot(ctx); err == nil {
				line.Set(statusLine(s))
			}
		}
	}
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func TrainCommand() *cobra.Command {
	flags := sessionFlags{}
	var ticks int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a policy, simulated when --ticks is set, in real time otherwise",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx, cancel := interruptContext()
			defer cancel()

			s, err := newSession(ctx, flags, logger)
			if err != nil {
				return err
			}
			stopProfiling, err := startProfiling(logger)
			if err != nil {
				return err
			}
			defer stopProfiling()

			line := types.NewStatusLine("starting")
			printer := types.NewTerminalPrinter(ctx, []*types.StatusLine{line}, 200*time.Millisecond)
			printer.Start()

			if ticks > 0 {
				simulate(ctx, s.runner, ticks, line)
			} else {
				loop := types.NewTickLoop(s.runner, s.config.TickRateHz, logger)
				go follow(ctx, loop, line)
				if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					level.Warn(logger).Log("msg", "tick loop", "err", err)
				}
			}
			printer.Stop()
			return s.finish()
		},
	}
	cmd.Flags().StringVar(&flags.env, "env", EnvArena, "Environment: arena, room or curriculum")
	cmd.Flags().StringVar(&flags.policy, "policy", "qlearning", "Policy: random, qlearning or softmax")
	cmd.Flags().Float64Var(&flags.temperature, "temperature", 0.5, "Softmax temperature")
	cmd.Flags().Float64Var(&flags.speed, "speed", 0, "Steps per second, overrides the configuration")
	cmd.Flags().BoolVar(&flags.recordPolicy, "record-policy", false, "Record the learned Q-table")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "Number of simulated ticks, 0 runs in real time until interrupted")
	return cmd
}
