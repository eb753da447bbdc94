package policies

import (
	"math"
	"time"

	"github.com/zeu5/tickrl/types"
	"golang.org/x/exp/rand"
)

// QLearningConfig holds the learning and exploration hyperparameters
type QLearningConfig struct {
	Alpha float64 // learning rate
	Gamma float64 // discount factor

	// linear decay of epsilon over episodes seen
	EpsilonStart         float64
	EpsilonEnd           float64
	EpsilonDecayEpisodes int

	// shaped reward = reward - (base + slope * stepIndex)
	TimePenaltyBase  float64
	TimePenaltySlope float64

	OptimisticInit float64
	ActionMasking  bool
	QMin           float64
	QMax           float64

	// adaptive exploration
	TargetRecentSuccess float64
	BoostStrength       float64
	BoostSmoothing      float64
	MaxAdaptiveBoost    float64
	EpsilonSmoothing    float64

	// attempts at drawing an unblocked random action before falling back
	RandomRetries int

	// zero seeds from the clock
	Seed uint64
}

func DefaultQLearningConfig() QLearningConfig {
	return QLearningConfig{
		Alpha:                0.20,
		Gamma:                0.95,
		EpsilonStart:         0.60,
		EpsilonEnd:           0.03,
		EpsilonDecayEpisodes: 600,
		TimePenaltyBase:      0.00,
		TimePenaltySlope:     0.01,
		OptimisticInit:       1.0,
		ActionMasking:        true,
		QMin:                 -100,
		QMax:                 100,
		TargetRecentSuccess:  0.90,
		BoostStrength:        0.60,
		BoostSmoothing:       0.15,
		MaxAdaptiveBoost:     0.60,
		EpsilonSmoothing:     0.15,
		RandomRetries:        12,
	}
}

// normalize clamps the tuning knobs into their valid ranges
func (c QLearningConfig) normalize() QLearningConfig {
	c.Alpha = clamp01(c.Alpha)
	c.Gamma = clamp01(c.Gamma)
	c.EpsilonStart = clamp01(c.EpsilonStart)
	c.EpsilonEnd = clamp01(c.EpsilonEnd)
	if c.EpsilonEnd > c.EpsilonStart {
		c.EpsilonEnd = c.EpsilonStart
	}
	if c.EpsilonDecayEpisodes < 1 {
		c.EpsilonDecayEpisodes = 1
	}
	c.TimePenaltyBase = math.Max(0, c.TimePenaltyBase)
	c.TimePenaltySlope = math.Max(0, c.TimePenaltySlope)
	if c.QMin > c.QMax {
		c.QMin, c.QMax = c.QMax, c.QMin
	}
	c.TargetRecentSuccess = clamp01(c.TargetRecentSuccess)
	c.BoostStrength = math.Max(0, c.BoostStrength)
	c.BoostSmoothing = clamp01(c.BoostSmoothing)
	c.MaxAdaptiveBoost = clamp01(c.MaxAdaptiveBoost)
	c.EpsilonSmoothing = clamp01(c.EpsilonSmoothing)
	if c.RandomRetries < 1 {
		c.RandomRetries = 1
	}
	return c
}

// QLearningPolicy is a tabular epsilon-greedy Q-learner with action masking,
// time penalty shaping and performance driven exploration
type QLearningPolicy struct {
	qTable *QTable
	config QLearningConfig
	rand   *rand.Rand

	episodesSeen       int
	stepIndexInEpisode int

	adaptiveEpsilon float64
	adaptiveBoost   float64

	tempBoost          float64
	tempBoostStep      float64
	tempBoostRemaining int
}

var _ types.Policy = &QLearningPolicy{}
var _ types.PerformanceTracker = &QLearningPolicy{}
var _ types.Introspector = &QLearningPolicy{}
var _ types.ExplorationBooster = &QLearningPolicy{}
var _ types.Recorder = &QLearningPolicy{}

func NewQLearningPolicy(config QLearningConfig) *QLearningPolicy {
	config = config.normalize()
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &QLearningPolicy{
		qTable:          NewQTable(config.OptimisticInit),
		config:          config,
		rand:            rand.New(rand.NewSource(seed)),
		adaptiveEpsilon: config.EpsilonStart,
	}
}

func (q *QLearningPolicy) blocked(obs types.Observation) ([4]bool, bool) {
	if !q.config.ActionMasking {
		return [4]bool{}, false
	}
	return obs.Blocked()
}

func (q *QLearningPolicy) ChooseAction(obs types.Observation) types.Action {
	state := MustDiscretize(obs)
	row := q.qTable.Row(state)

	if q.rand.Float64() < q.Epsilon() {
		return q.randomAction(obs)
	}
	return q.greedyAction(row, obs)
}

func (q *QLearningPolicy) randomAction(obs types.Observation) types.Action {
	blocked, masked := q.blocked(obs)
	for try := 0; try < q.config.RandomRetries; try++ {
		a := types.AllActions[q.rand.Intn(types.NumActions)]
		if a == types.Stay || !masked || !types.IsBlocked(a, blocked) {
			return a
		}
	}
	for _, a := range types.Directions {
		if !types.IsBlocked(a, blocked) {
			return a
		}
	}
	return types.Stay
}

// greedyAction breaks ties uniformly with reservoir sampling
func (q *QLearningPolicy) greedyAction(row *QRow, obs types.Observation) types.Action {
	blocked, masked := q.blocked(obs)
	best := -1
	bestVal := math.Inf(-1)
	ties := 0
	for _, a := range types.AllActions {
		if masked && types.IsBlocked(a, blocked) {
			continue
		}
		v := row[a.Index()]
		if best == -1 || v > bestVal {
			best = a.Index()
			bestVal = v
			ties = 1
		} else if v == bestVal {
			ties++
			if q.rand.Intn(ties) == 0 {
				best = a.Index()
			}
		}
	}
	if best == -1 {
		return types.Stay
	}
	return types.Action(best)
}

func (q *QLearningPolicy) ObserveTransition(state types.Observation, action types.Action, reward float64, next types.Observation, done bool) {
	penalty := q.config.TimePenaltyBase + q.config.TimePenaltySlope*float64(q.stepIndexInEpisode)
	shaped := reward - penalty

	s := MustDiscretize(state)
	s2 := MustDiscretize(next)
	row := q.qTable.Row(s)
	// terminal states are tracked too
	q.qTable.Row(s2)

	maxNext := 0.0
	if !done {
		maxNext = q.maxAllowed(s2, next)
	}
	target := shaped + q.config.Gamma*maxNext
	a := action.Index()
	row[a] = q.clampQ(row[a] + q.config.Alpha*(target-row[a]))

	q.stepIndexInEpisode++
	if done {
		q.episodesSeen++
		q.stepIndexInEpisode = 0
	}
}

// maxAllowed is 0 if every action is masked
func (q *QLearningPolicy) maxAllowed(state StateKey, obs types.Observation) float64 {
	blocked, masked := q.blocked(obs)
	best, _ := q.qTable.MaxAmong(state, func(a types.Action) bool {
		return !masked || !types.IsBlocked(a, blocked)
	})
	return best
}

func (q *QLearningPolicy) clampQ(v float64) float64 {
	return math.Max(q.config.QMin, math.Min(q.config.QMax, v))
}

func (q *QLearningPolicy) OnEpisodeEnd() {
	q.stepIndexInEpisode = 0
}

func (q *QLearningPolicy) clampEpsilon(v float64) float64 {
	return math.Max(q.config.EpsilonEnd, math.Min(q.config.EpsilonStart, v))
}

// scheduledEpsilon decays linearly from start to end over the decay horizon
func (q *QLearningPolicy) scheduledEpsilon() float64 {
	t := math.Min(1, float64(q.episodesSeen)/float64(q.config.EpsilonDecayEpisodes))
	return q.config.EpsilonStart + t*(q.config.EpsilonEnd-q.config.EpsilonStart)
}

// Epsilon is the exploration probability used for the next action
func (q *QLearningPolicy) Epsilon() float64 {
	base := math.Min(q.scheduledEpsilon(), q.adaptiveEpsilon)
	return q.clampEpsilon(base + q.adaptiveBoost + q.tempBoost)
}

// UpdatePerformance moves the adaptive epsilon toward a target derived from the
// recent success rate and decays any temporary boost by one episode
func (q *QLearningPolicy) UpdatePerformance(recentSuccessRate float64) {
	c := q.config
	err := c.TargetRecentSuccess - recentSuccessRate
	desired := math.Min(clamp01(err*c.BoostStrength), c.MaxAdaptiveBoost)
	q.adaptiveBoost += c.BoostSmoothing * (desired - q.adaptiveBoost)

	target := c.EpsilonEnd + (c.EpsilonStart-c.EpsilonEnd)*(1-clamp01(recentSuccessRate))
	q.adaptiveEpsilon += c.EpsilonSmoothing * (target - q.adaptiveEpsilon)
	q.adaptiveEpsilon = q.clampEpsilon(q.adaptiveEpsilon)

	if q.tempBoostRemaining > 0 {
		q.tempBoost = math.Max(0, q.tempBoost-q.tempBoostStep)
		q.tempBoostRemaining--
		if q.tempBoostRemaining == 0 {
			q.tempBoost = 0
			q.tempBoostStep = 0
		}
	}
}

// BoostEpsilonToAtLeast raises epsilon to minEpsilon and lets the extra
// exploration decay linearly over decayEpisodes
func (q *QLearningPolicy) BoostEpsilonToAtLeast(minEpsilon float64, decayEpisodes int) {
	boost := minEpsilon - q.Epsilon()
	if boost <= 0 {
		return
	}
	if decayEpisodes < 1 {
		decayEpisodes = 1
	}
	q.tempBoost += boost
	if decayEpisodes > q.tempBoostRemaining {
		q.tempBoostRemaining = decayEpisodes
	}
	q.tempBoostStep = q.tempBoost / float64(q.tempBoostRemaining)
}

func (q *QLearningPolicy) StateCount() int {
	return q.qTable.Len()
}

func (q *QLearningPolicy) EpisodesSeen() int {
	return q.episodesSeen
}

func (q *QLearningPolicy) StepIndex() int {
	return q.stepIndexInEpisode
}

func (q *QLearningPolicy) QTable() *QTable {
	return q.qTable
}

func (q *QLearningPolicy) Config() QLearningConfig {
	return q.config
}

func (q *QLearningPolicy) Record(filePath string) error {
	return q.qTable.Record(filePath)
}

// Load replaces the learned values with a recorded table
func (q *QLearningPolicy) Load(filePath string) error {
	return q.qTable.ReadBounded(filePath, q.config.QMin, q.config.QMax)
}
