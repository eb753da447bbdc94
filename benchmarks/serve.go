package benchmarks

import (
	"context"
	"errors"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/zeu5/tickrl/api"
	"github.com/zeu5/tickrl/types"
)

func ServeCommand() *cobra.Command {
	flags := sessionFlags{}
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train in real time behind an http control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx, cancel := interruptContext()
			defer cancel()

			s, err := newSession(ctx, flags, logger)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = s.config.Server.Addr
			}
			loop := types.NewTickLoop(s.runner, s.config.TickRateHz, logger)

			var progress api.Progressor
			if s.curriculum != nil {
				// runs on the loop goroutine, finish reads s.runner after the loop is done
				progress = api.CurriculumProgressor(loop, s.curriculum, func(env types.Environment, policy types.Policy) *types.EpisodeRunner {
					s.runner = s.newRunner(env, policy)
					return s.runner
				})
			}
			server := api.NewServer(addr, loop, progress, logger)
			server.Start(ctx)

			if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				level.Warn(logger).Log("msg", "tick loop", "err", err)
			}
			server.Shutdown()
			return s.finish()
		},
	}
	cmd.Flags().StringVar(&flags.env, "env", EnvCurriculum, "Environment: arena, room or curriculum")
	cmd.Flags().StringVar(&flags.policy, "policy", "qlearning", "Policy: random, qlearning or softmax")
	cmd.Flags().Float64Var(&flags.temperature, "temperature", 0.5, "Softmax temperature")
	cmd.Flags().Float64Var(&flags.speed, "speed", 0, "Steps per second, overrides the configuration")
	cmd.Flags().BoolVar(&flags.recordPolicy, "record-policy", false, "Record the learned Q-table")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides the configuration")
	return cmd
}
