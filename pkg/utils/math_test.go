package utils

import "testing"

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	if v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("got %v", v)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Errorf("zero vector should be unchanged: %v", zero)
	}
}

func TestNormalizeL2_idempotent(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	NormalizeL2(v)
	if v[0] != 0.6 || v[1] != 0.8 {
		t.Errorf("normalizing a unit vector should be a no-op: %v", v)
	}
}
