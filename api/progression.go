package api

import (
	"context"

	"github.com/zeu5/tickrl/grid"
	"github.com/zeu5/tickrl/types"
)

// RunnerBuilder creates a runner for a new environment, keeping the policy
type RunnerBuilder func(types.Environment, types.Policy) *types.EpisodeRunner

// CurriculumProgressor advances the curriculum on the loop goroutine and
// swaps in a runner over the next room with the same policy
func CurriculumProgressor(loop *types.TickLoop, curriculum *grid.Curriculum, build RunnerBuilder) Progressor {
	return func(ctx context.Context) (int, error) {
		lvl := 0
		err := loop.Replace(ctx, func(current *types.EpisodeRunner) (*types.EpisodeRunner, error) {
			room, err := curriculum.Next(current.Policy())
			if err != nil {
				return nil, err
			}
			lvl = curriculum.Level()
			return build(room, current.Policy()), nil
		})
		return lvl, err
	}
}
