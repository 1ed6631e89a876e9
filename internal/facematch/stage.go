package facematch

// Stage is the state of a single run as seen by the interactive UI.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageImageLoaded  Stage = "image_loaded"
	StageDetecting    Stage = "detecting"
	StageNoFacesFound Stage = "no_faces_found"
	StageFacesFound   Stage = "faces_found"
	StageMatching     Stage = "matching"
	StageResultsReady Stage = "results_ready"
	StageFailed       Stage = "failed"
)

var nextStages = map[Stage][]Stage{
	StageIdle:         {StageImageLoaded},
	StageImageLoaded:  {StageDetecting},
	StageDetecting:    {StageNoFacesFound, StageFacesFound},
	StageFacesFound:   {StageMatching, StageResultsReady},
	StageMatching:     {StageResultsReady},
	StageNoFacesFound: {StageIdle},
	StageResultsReady: {StageIdle},
	StageFailed:       {StageIdle},
}

// Terminal reports whether the run has ended for the current image.
func (s Stage) Terminal() bool {
	return s == StageNoFacesFound || s == StageResultsReady || s == StageFailed
}

// CanAdvanceTo reports whether next is a legal transition from s.
// Any non-idle stage may fail.
func (s Stage) CanAdvanceTo(next Stage) bool {
	if next == StageFailed {
		return s != StageIdle && !s.Terminal()
	}
	for _, allowed := range nextStages[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Observer receives progress from a run. Calls happen on the goroutine executing the run.
type Observer interface {
	StageChanged(stage Stage)
	Warning(message string)
	FaceProcessed(crop FaceCrop, result MatchResult)
}

// NopObserver ignores all progress.
type NopObserver struct{}

func (NopObserver) StageChanged(Stage)                  {}
func (NopObserver) Warning(string)                      {}
func (NopObserver) FaceProcessed(FaceCrop, MatchResult) {}
