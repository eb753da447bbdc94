package policies

import (
	"errors"
	"testing"

	"github.com/zeu5/tickrl/types"
)

func TestDiscretizeFull(t *testing.T) {
	obs := types.MustObservation(types.Full, 2, -0.3, 0.6, 1.0, 1, 0, 0.7, 0.2)
	key, err := Discretize(obs)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	expected := StateKey{DX: 1, DZ: 0, DY: 1, Dist: 7, Bits: 0b0101, NBits: 4}
	if key != expected {
		t.Errorf("incorrect key: %+v, expected %+v", key, expected)
	}
	if key.String() != "1,0,1,7,1,0,1,0" {
		t.Errorf("incorrect key string: %s", key.String())
	}
	parsed, err := ParseStateKey(key.String())
	if err != nil {
		t.Fatalf("unexpected parse error: %s", err)
	}
	if parsed != key {
		t.Errorf("parsed key %+v differs from %+v", parsed, key)
	}
}

func TestDiscretizePlanar(t *testing.T) {
	key := MustDiscretize(types.MustObservation(types.Planar, -1, 1, 0.49))
	expected := StateKey{DX: -1, DZ: 1, DY: 0, Dist: 3}
	if key != expected {
		t.Errorf("incorrect key: %+v, expected %+v", key, expected)
	}
	// out of range distances stay within the bins
	if k := MustDiscretize(types.MustObservation(types.Planar, 0, 0, 7)); k.Dist != DistanceBins-1 {
		t.Errorf("distance above 1 should fall in the top bin, got %d", k.Dist)
	}
	if k := MustDiscretize(types.MustObservation(types.Planar, 0, 0, -3)); k.Dist != 0 {
		t.Errorf("negative distance should fall in the first bin, got %d", k.Dist)
	}
}

func TestDiscretizeMalformed(t *testing.T) {
	if _, err := Discretize(types.Observation{}); !errors.Is(err, types.ErrMalformedObservation) {
		t.Errorf("expected malformed observation error, got %v", err)
	}
	if _, err := types.NewObservation(types.Full, 0, 0, 0, 0.5); !errors.Is(err, types.ErrMalformedObservation) {
		t.Errorf("expected short full observation to be rejected, got %v", err)
	}
}

func TestQTableRecordRead(t *testing.T) {
	q := NewQTable(1.0)
	k1 := StateKey{DX: 1, Dist: 2}
	k2 := StateKey{DX: -1, DZ: 1, DY: -1, Dist: 5, Bits: 0b1001, NBits: 4}
	q.Set(k1, types.MoveEast, 3.5)
	q.Set(k2, types.Stay, -2.25)

	filePath := t.TempDir() + "/policy.jsonl"
	if err := q.Record(filePath); err != nil {
		t.Fatalf("failed to record: %s", err)
	}

	read := NewQTable(0)
	if err := read.Read(filePath); err != nil {
		t.Fatalf("failed to read: %s", err)
	}
	if read.Len() != 2 {
		t.Errorf("expected 2 states, got %d", read.Len())
	}
	if v := read.Get(k1, types.MoveEast); v != 3.5 {
		t.Errorf("incorrect value %f", v)
	}
	if v := read.Get(k1, types.MoveNorth); v != 1.0 {
		t.Errorf("unset actions should keep the initial value, got %f", v)
	}
	if v := read.Get(k2, types.Stay); v != -2.25 {
		t.Errorf("incorrect value %f", v)
	}
}
