package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedObservation = errors.New("malformed observation")
)

// Environment is the simulation the agent is trained against
type Environment interface {
	// Reset starts a new episode and returns the first observation
	Reset() Observation
	// Step advances one unit of simulated time.
	// Once the episode is done it must return a zero reward, done result
	Step(Action) StepResult
	IsDone() bool
	// Observation returns the current observation without advancing
	Observation() Observation
}

// Positioner is implemented by environments that can report the agent's grid position
type Positioner interface {
	AgentPosition() (int, int, int)
}

// Action that the agent can take, the value is the column index in the Q-table
type Action int

const (
	MoveNorth Action = iota
	MoveSouth
	MoveEast
	MoveWest
	Stay
)

// NumActions is the number of defined actions
const NumActions = 5

// Directions in the order used for blocked bits and fallbacks
var Directions = [4]Action{MoveNorth, MoveSouth, MoveEast, MoveWest}

// AllActions in ordinal order
var AllActions = [NumActions]Action{MoveNorth, MoveSouth, MoveEast, MoveWest, Stay}

func (a Action) Index() int {
	return int(a)
}

func (a Action) Valid() bool {
	return a >= MoveNorth && a <= Stay
}

func (a Action) String() string {
	switch a {
	case MoveNorth:
		return "MOVE_NORTH"
	case MoveSouth:
		return "MOVE_SOUTH"
	case MoveEast:
		return "MOVE_EAST"
	case MoveWest:
		return "MOVE_WEST"
	case Stay:
		return "STAY"
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Schema describes the layout of the observation features.
//
// Features are [dx, dz, (dy), dist, trailing...]. With Blocked set the first
// four trailing features are the obstruction bits for N, S, E, W.
type Schema struct {
	Vertical bool
	Blocked  bool
}

var (
	// Planar observations are [dx, dz, dist]
	Planar = Schema{}
	// Full observations are [dx, dz, dy, dist, blockedN, blockedS, blockedE, blockedW]
	Full = Schema{Vertical: true, Blocked: true}
)

// MaxTrailingFeatures bounds the bits appended to a state key
const MaxTrailingFeatures = 32

// Leading is the number of features before the trailing ones
func (s Schema) Leading() int {
	if s.Vertical {
		return 4
	}
	return 3
}

// MinFeatures is the shortest feature vector that fits the schema
func (s Schema) MinFeatures() int {
	if s.Blocked {
		return s.Leading() + 4
	}
	return s.Leading()
}

func (s Schema) DistIndex() int {
	return s.Leading() - 1
}

// Observation is an immutable vector of features
type Observation struct {
	schema   Schema
	features []float64
}

// NewObservation copies the features and checks them against the schema
func NewObservation(schema Schema, features ...float64) (Observation, error) {
	if len(features) < schema.MinFeatures() {
		return Observation{}, fmt.Errorf("%w: %d features, schema needs %d", ErrMalformedObservation, len(features), schema.MinFeatures())
	}
	if len(features)-schema.Leading() > MaxTrailingFeatures {
		return Observation{}, fmt.Errorf("%w: %d trailing features, at most %d", ErrMalformedObservation, len(features)-schema.Leading(), MaxTrailingFeatures)
	}
	f := make([]float64, len(features))
	copy(f, features)
	return Observation{schema: schema, features: f}, nil
}

// MustObservation panics if the features do not fit the schema
func MustObservation(schema Schema, features ...float64) Observation {
	o, err := NewObservation(schema, features...)
	if err != nil {
		panic(err)
	}
	return o
}

func (o Observation) Schema() Schema {
	return o.schema
}

func (o Observation) Len() int {
	return len(o.features)
}

func (o Observation) Feature(i int) float64 {
	return o.features[i]
}

// Features returns a copy of the feature vector
func (o Observation) Features() []float64 {
	f := make([]float64, len(o.features))
	copy(f, o.features)
	return f
}

// Valid is false for the zero value and for vectors too short for the schema
func (o Observation) Valid() bool {
	return o.features != nil && len(o.features) >= o.schema.MinFeatures()
}

// Blocked reports the obstruction bits, ok is false if the schema carries none
func (o Observation) Blocked() (blocked [4]bool, ok bool) {
	if !o.schema.Blocked || len(o.features) < o.schema.MinFeatures() {
		return blocked, false
	}
	start := o.schema.Leading()
	for i := 0; i < 4; i++ {
		blocked[i] = o.features[start+i] >= 0.5
	}
	return blocked, true
}

func (o Observation) String() string {
	parts := make([]string, len(o.features))
	for i, f := range o.features {
		parts[i] = fmt.Sprintf("%.6f", f)
	}
	return strings.Join(parts, ";")
}

// StepResult of a single environment step
type StepResult struct {
	Observation Observation
	Reward      float64
	Done        bool
}
