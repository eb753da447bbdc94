package policies

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zeu5/tickrl/types"
)

// DistanceBins is the number of buckets the normalized distance is split into
const DistanceBins = 8

// StateKey is the discretized observation used to index the Q-table
type StateKey struct {
	DX   int8
	DZ   int8
	DY   int8
	Dist uint8
	// trailing features thresholded at 0.5, bit i is feature Leading()+i
	Bits  uint32
	NBits uint8
}

func (k StateKey) String() string {
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("%d,%d,%d,%d", k.DX, k.DZ, k.DY, k.Dist))
	for i := uint8(0); i < k.NBits; i++ {
		b.WriteString(",")
		b.WriteString(strconv.Itoa(int((k.Bits >> i) & 1)))
	}
	return b.String()
}

// ParseStateKey is the inverse of StateKey.String
func ParseStateKey(s string) (StateKey, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 4 || len(parts)-4 > types.MaxTrailingFeatures {
		return StateKey{}, fmt.Errorf("invalid state key %q", s)
	}
	vals := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return StateKey{}, fmt.Errorf("invalid state key %q: %w", s, err)
		}
		vals[i] = v
	}
	k := StateKey{
		DX:    int8(vals[0]),
		DZ:    int8(vals[1]),
		DY:    int8(vals[2]),
		Dist:  uint8(vals[3]),
		NBits: uint8(len(parts) - 4),
	}
	for i, v := range vals[4:] {
		if v != 0 {
			k.Bits |= 1 << uint(i)
		}
	}
	return k, nil
}

func clampSign(v float64) int8 {
	r := math.Round(v)
	if r < -1 {
		return -1
	}
	if r > 1 {
		return 1
	}
	return int8(r)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func distanceBin(d float64) uint8 {
	bin := int(math.Floor(clamp01(d) * DistanceBins))
	if bin >= DistanceBins {
		bin = DistanceBins - 1
	}
	return uint8(bin)
}

// Discretize maps an observation to its state key.
// Observations too short for their schema return ErrMalformedObservation.
func Discretize(obs types.Observation) (StateKey, error) {
	schema := obs.Schema()
	if !obs.Valid() {
		return StateKey{}, fmt.Errorf("%w: %d features, schema needs %d", types.ErrMalformedObservation, obs.Len(), schema.MinFeatures())
	}
	key := StateKey{
		DX: clampSign(obs.Feature(0)),
		DZ: clampSign(obs.Feature(1)),
	}
	if schema.Vertical {
		key.DY = clampSign(obs.Feature(2))
	}
	key.Dist = distanceBin(obs.Feature(schema.DistIndex()))

	for i := schema.Leading(); i < obs.Len(); i++ {
		if obs.Feature(i) >= 0.5 {
			key.Bits |= 1 << uint(key.NBits)
		}
		key.NBits++
	}
	return key, nil
}

// MustDiscretize panics on malformed observations
func MustDiscretize(obs types.Observation) StateKey {
	k, err := Discretize(obs)
	if err != nil {
		panic(err)
	}
	return k
}
