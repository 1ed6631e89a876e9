package facematch

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

func TestEvaluate_Threshold(t *testing.T) {
	tests := []struct {
		name      string
		distance  float64
		threshold float64
		matched   bool
	}{
		{"below threshold", 0.3, 0.5, true},
		{"equal to threshold", 0.5, 0.5, true},
		{"above threshold", 0.5001, 0.5, false},
		{"exact match with zero threshold", 0.0, 0.0, true},
		{"near match with zero threshold", 0.0001, 0.0, false},
		{"threshold one", 1.0, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates := []Candidate{{Identity: "database/alice/alice.jpg", Distance: tt.distance}}
			result := Evaluate(1, candidates, tt.threshold)
			if result.Matched() != tt.matched {
				t.Errorf("Evaluate(D=%v, T=%v) matched = %v, want %v", tt.distance, tt.threshold, result.Matched(), tt.matched)
			}
		})
	}
}

func TestEvaluate_OnlyFirstCandidateCounts(t *testing.T) {
	candidates := []Candidate{
		{Identity: "database/bob.jpg", Distance: 0.7},
		{Identity: "database/alice.jpg", Distance: 0.1},
	}

	result := Evaluate(2, candidates, 0.5)

	if result.Matched() {
		t.Errorf("expected no match when the first candidate is above threshold, got %+v", result)
	}
	if result.FaceIndex != 2 {
		t.Errorf("expected face index 2, got %d", result.FaceIndex)
	}
}

func TestEvaluate_MatchFields(t *testing.T) {
	candidates := []Candidate{{Identity: "database/alice/alice_1.jpg", Distance: 0.1234}}

	result := Evaluate(1, candidates, 0.5)

	if result.Outcome != OutcomeMatched {
		t.Fatalf("expected matched, got %s", result.Outcome)
	}
	if result.Identity != "database/alice/alice_1.jpg" {
		t.Errorf("unexpected identity '%s'", result.Identity)
	}
	if result.Label != "alice_1.jpg" {
		t.Errorf("expected label 'alice_1.jpg', got '%s'", result.Label)
	}
	if result.Distance != 0.1234 {
		t.Errorf("expected distance 0.1234, got %v", result.Distance)
	}
}

func TestEvaluate_NoCandidates(t *testing.T) {
	result := Evaluate(1, nil, 1.0)

	if result.Outcome != OutcomeNotMatched {
		t.Errorf("expected not_matched, got %s", result.Outcome)
	}
	if result.Identity != "" || result.Distance != 0 {
		t.Errorf("expected empty match info, got %+v", result)
	}
}

func TestFailed(t *testing.T) {
	result := Failed(3, errors.New("corrupt reference"))

	if result.Matched() {
		t.Error("failed result must not be matched")
	}
	if result.Outcome != OutcomeFailed || result.Reason != "corrupt reference" || result.FaceIndex != 3 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestIdentityLabel(t *testing.T) {
	tests := []struct {
		identity string
		expected string
	}{
		{"database/alice.jpg", "alice.jpg"},
		{"database//alice/img_2.png", "img_2.png"},
		{"alice.jpg", "alice.jpg"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			if got := IdentityLabel(tt.identity); got != tt.expected {
				t.Errorf("IdentityLabel(%q) = %q, want %q", tt.identity, got, tt.expected)
			}
		})
	}
}

func TestIdentityPerson(t *testing.T) {
	db := filepath.Join("data", "database")

	tests := []struct {
		name     string
		identity string
		expected string
	}{
		{"person folder", filepath.Join(db, "alice", "a.jpg"), "alice"},
		{"nested folder", filepath.Join(db, "bob", "2020", "b.jpg"), "bob"},
		{"loose file", filepath.Join(db, "carol.jpg"), ""},
		{"outside database", filepath.Join("elsewhere", "x", "y.jpg"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdentityPerson(db, tt.identity); got != tt.expected {
				t.Errorf("IdentityPerson(%q) = %q, want %q", tt.identity, got, tt.expected)
			}
		})
	}
}

func TestMatchResult_DistanceText(t *testing.T) {
	r := MatchResult{Distance: 0.123456}
	if got := r.DistanceText(); got != "0.1235" {
		t.Errorf("DistanceText() = %q, want %q", got, "0.1235")
	}
}

func TestReport_Summary(t *testing.T) {
	tests := []struct {
		faces    int
		expected string
	}{
		{0, "0 faces found"},
		{1, "1 face found"},
		{3, "3 faces found"},
	}
	for _, tt := range tests {
		r := &Report{FacesFound: tt.faces}
		if got := r.Summary(); got != tt.expected {
			t.Errorf("Summary() with %d faces = %q, want %q", tt.faces, got, tt.expected)
		}
	}
}

func TestMatchResult_JSONDistance(t *testing.T) {
	tests := []struct {
		name         string
		result       MatchResult
		wantDistance bool
	}{
		{"exact copy", Evaluate(1, []Candidate{{Identity: "database/alice.jpg", Distance: 0}}, 0.5), true},
		{"close match", Evaluate(1, []Candidate{{Identity: "database/alice.jpg", Distance: 0.25}}, 0.5), true},
		{"no match", Evaluate(1, []Candidate{{Identity: "database/alice.jpg", Distance: 0.8}}, 0.5), false},
		{"failed", Failed(1, errors.New("boom")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var decoded map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			distance, ok := decoded["distance"]
			if ok != tt.wantDistance {
				t.Fatalf("distance present = %v, want %v: %s", ok, tt.wantDistance, data)
			}
			if ok && distance.(float64) != tt.result.Distance {
				t.Errorf("expected distance %v, got %v", tt.result.Distance, distance)
			}
			if decoded["outcome"] != string(tt.result.Outcome) {
				t.Errorf("expected outcome %s, got %v", tt.result.Outcome, decoded["outcome"])
			}
		})
	}
}
