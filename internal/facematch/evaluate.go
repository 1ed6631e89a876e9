package facematch

import (
	"path/filepath"
	"strings"
)

// Evaluate turns the ranked candidates for one face into a MatchResult.
// Only the first candidate is considered; it matches when its distance does not
// exceed the threshold.
func Evaluate(faceIndex int, candidates []Candidate, threshold float64) MatchResult {
	result := MatchResult{FaceIndex: faceIndex, Outcome: OutcomeNotMatched}
	if len(candidates) == 0 {
		return result
	}

	best := candidates[0]
	if best.Distance <= threshold {
		result.Outcome = OutcomeMatched
		result.Identity = best.Identity
		result.Label = IdentityLabel(best.Identity)
		result.Distance = best.Distance
	}
	return result
}

// Failed builds the result for a face whose lookup could not complete.
func Failed(faceIndex int, err error) MatchResult {
	return MatchResult{FaceIndex: faceIndex, Outcome: OutcomeFailed, Reason: err.Error()}
}

// IdentityLabel derives the displayed identity from a reference file path.
func IdentityLabel(identity string) string {
	if identity == "" {
		return ""
	}
	return filepath.Base(filepath.FromSlash(identity))
}

// IdentityPerson returns the folder a reference image lives in, relative to the
// database root, or "" for images stored directly in the root.
func IdentityPerson(databasePath, identity string) string {
	rel, err := filepath.Rel(filepath.Clean(databasePath), filepath.Clean(filepath.FromSlash(identity)))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}
