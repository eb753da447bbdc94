package policies

import (
	"math"
	"time"

	"github.com/zeu5/tickrl/types"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// SoftmaxPolicy learns like QLearningPolicy but samples actions from a
// Boltzmann distribution over the unmasked Q-values
type SoftmaxPolicy struct {
	*QLearningPolicy
	temperature float64
	rand        rand.Source
}

var _ types.Policy = &SoftmaxPolicy{}

func NewSoftmaxPolicy(config QLearningConfig, temperature float64) *SoftmaxPolicy {
	if temperature <= 0 {
		temperature = 1
	}
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &SoftmaxPolicy{
		QLearningPolicy: NewQLearningPolicy(config),
		temperature:     temperature,
		rand:            rand.NewSource(seed + 1),
	}
}

func (s *SoftmaxPolicy) ChooseAction(obs types.Observation) types.Action {
	row := s.qTable.Row(MustDiscretize(obs))
	blocked, masked := s.blocked(obs)

	candidates := make([]types.Action, 0, types.NumActions)
	vals := make([]float64, 0, types.NumActions)
	maxVal := math.Inf(-1)
	for _, a := range types.AllActions {
		if masked && types.IsBlocked(a, blocked) {
			continue
		}
		v := row[a.Index()] / s.temperature
		candidates = append(candidates, a)
		vals = append(vals, v)
		if v > maxVal {
			maxVal = v
		}
	}

	sum := float64(0)
	for i, v := range vals {
		exp := math.Exp(v - maxVal)
		vals[i] = exp
		sum += exp
	}
	weights := make([]float64, len(vals))
	for i, v := range vals {
		weights[i] = v / sum
	}
	i, ok := sampleuv.NewWeighted(weights, s.rand).Take()
	if !ok {
		return types.Stay
	}
	return candidates[i]
}

func (s *SoftmaxPolicy) Temperature() float64 {
	return s.temperature
}
