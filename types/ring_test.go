package types

import "testing"

func TestRing(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 3; i++ {
		if _, evicted := r.Push(i); evicted {
			t.Errorf("nothing should be evicted before full")
		}
	}
	old, evicted := r.Push(4)
	if !evicted || old != 1 {
		t.Errorf("expected 1 to be evicted, got %d %v", old, evicted)
	}
	vals := r.Values()
	expected := []int{2, 3, 4}
	if len(vals) != len(expected) {
		t.Fatalf("incorrect length %d", len(vals))
	}
	for i := range expected {
		if vals[i] != expected[i] {
			t.Errorf("incorrect values %v", vals)
		}
	}
}

func TestRollingSum(t *testing.T) {
	s := NewRollingSum(2)
	if s.Mean() != 0 {
		t.Errorf("empty mean should be 0")
	}
	s.Add(1)
	s.Add(3)
	s.Add(5)
	if s.Sum() != 8 || s.Mean() != 4 || s.Len() != 2 {
		t.Errorf("incorrect window: sum %f mean %f len %d", s.Sum(), s.Mean(), s.Len())
	}
}

func TestObservationSchema(t *testing.T) {
	if _, err := NewObservation(Planar, 1, 2); err == nil {
		t.Errorf("expected short planar observation to be rejected")
	}
	features := []float64{1, 0, 0.5, 1, 0, 1, 0}
	o, err := NewObservation(Schema{Blocked: true}, features...)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	features[0] = 9
	if o.Feature(0) != 1 {
		t.Errorf("observation should not alias the input")
	}
	b, ok := o.Blocked()
	if !ok || b != [4]bool{true, false, true, false} {
		t.Errorf("incorrect blocked bits %v", b)
	}
	if _, ok := MustObservation(Planar, 1, 0, 0.5, 1).Blocked(); ok {
		t.Errorf("planar observations carry no blocked bits")
	}
	if o.String() != "1.000000;0.000000;0.500000;1.000000;0.000000;1.000000;0.000000" {
		t.Errorf("incorrect string %s", o.String())
	}
}
