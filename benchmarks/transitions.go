package benchmarks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/zeu5/tickrl/transitions"
)

func TransitionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "Inspect recorded transitions",
	}
	cmd.AddCommand(tailCommand())
	return cmd
}

func tailCommand() *cobra.Command {
	var count int64
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the latest transitions of the redis stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			cli := redis.NewClient(&redis.Options{
				Addr: c.Transitions.RedisAddr,
			})
			defer cli.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			records, err := transitions.ReadRecent(ctx, cli, c.Transitions.RedisStream, count)
			if err != nil {
				return err
			}
			// oldest first
			for i := len(records) - 1; i >= 0; i-- {
				r := records[i]
				fmt.Printf("%s -[%d]-> %s reward=%.6f done=%t\n", r.Obs, r.Action, r.NextObs, r.Reward, r.Done)
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&count, "count", "n", 20, "Number of transitions")
	return cmd
}
