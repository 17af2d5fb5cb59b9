package models

import "testing"

func TestAskRequestValidate(t *testing.T) {
	r := &AskRequest{Question: "what happens at the end?"}
	if err := r.Validate(10, 1, 20); err != nil {
		t.Fatalf("valid request: %v", err)
	}
	if r.K != 10 {
		t.Errorf("zero K should take default: %d", r.K)
	}
}

func TestAskRequestValidate_empty(t *testing.T) {
	r := &AskRequest{}
	if err := r.Validate(10, 1, 20); err == nil {
		t.Error("empty question should fail validation")
	}
}

func TestAskRequestValidate_clamp(t *testing.T) {
	r := &AskRequest{Question: "q", K: 500}
	if err := r.Validate(10, 1, 20); err != nil {
		t.Fatal(err)
	}
	if r.K != 20 {
		t.Errorf("K should clamp to max: %d", r.K)
	}

	r = &AskRequest{Question: "q", K: -2}
	if err := r.Validate(10, 1, 20); err != nil {
		t.Fatal(err)
	}
	if r.K != 1 {
		t.Errorf("K should clamp to min: %d", r.K)
	}
}
