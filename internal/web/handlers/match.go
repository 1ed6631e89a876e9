package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kozaktomas/face-matcher/internal/config"
	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// SSE event types sent by match jobs
const (
	eventStage     = "stage"
	eventWarning   = "warning"
	eventFace      = "face"
	eventCompleted = "completed"
	eventFailed    = "failed"
)

// MatchHandler handles the detect-and-match endpoints
type MatchHandler struct {
	config     *config.Config
	detector   facematch.Detector
	searcher   facematch.Searcher
	jobManager *JobManager
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(cfg *config.Config, detector facematch.Detector, searcher facematch.Searcher, jm *JobManager) *MatchHandler {
	return &MatchHandler{
		config:     cfg,
		detector:   detector,
		searcher:   searcher,
		jobManager: jm,
	}
}

// FaceResult is one face as presented to the UI.
type FaceResult struct {
	FaceNum   int               `json:"face_num"`
	Outcome   facematch.Outcome `json:"outcome"`
	Matched   bool              `json:"matched"`
	Identity  string            `json:"identity,omitempty"`
	Label     string            `json:"label,omitempty"`
	Person    string            `json:"person,omitempty"`
	Distance  *float64          `json:"distance,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Thumbnail string            `json:"thumbnail,omitempty"`
}

// MatchResponse represents a finished run
type MatchResponse struct {
	Success           bool               `json:"success"`
	Message           string             `json:"message"`
	FacesFound        int                `json:"faces_found"`
	MatchesFound      int                `json:"matches_found"`
	DatabaseAvailable bool               `json:"database_available"`
	Warnings          []string           `json:"warnings,omitempty"`
	Settings          facematch.Settings `json:"settings"`
	Faces             []FaceResult       `json:"faces"`
}

func newFaceResult(crop facematch.FaceCrop, result facematch.MatchResult, databasePath string) FaceResult {
	fr := FaceResult{
		FaceNum:   result.FaceIndex,
		Outcome:   result.Outcome,
		Matched:   result.Matched(),
		Identity:  result.Identity,
		Label:     result.Label,
		Reason:    result.Reason,
		Thumbnail: thumbnailDataURL(crop.Image),
	}
	if fr.FaceNum == 0 {
		fr.FaceNum = crop.Index
	}
	if result.Matched() {
		d := result.Distance
		fr.Distance = &d
		fr.Person = facematch.IdentityPerson(databasePath, result.Identity)
	}
	return fr
}

func newMatchResponse(report *facematch.Report) *MatchResponse {
	resp := &MatchResponse{
		Success:           true,
		Message:           report.Summary(),
		FacesFound:        report.FacesFound,
		MatchesFound:      report.MatchCount(),
		DatabaseAvailable: report.DatabaseAvailable,
		Warnings:          report.Warnings,
		Settings:          report.Settings,
		Faces:             make([]FaceResult, 0, len(report.Results)),
	}
	for i, result := range report.Results {
		var crop facematch.FaceCrop
		if i < len(report.Crops) {
			crop = report.Crops[i]
		}
		resp.Faces = append(resp.Faces, newFaceResult(crop, result, report.Settings.DatabasePath))
	}
	return resp
}

// requestError is a validation failure reported with 400.
type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

// parseMatchForm reads the uploaded image and the sidebar settings. Missing settings
// fall back to the configured defaults.
func (h *MatchHandler) parseMatchForm(r *http.Request) (facematch.Settings, multipart.File, *multipart.FileHeader, error) {
	var settings facematch.Settings

	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return settings, nil, nil, &requestError{"invalid multipart form"}
	}

	file, header, err := r.FormFile(constants.UploadFormField)
	if err != nil {
		return settings, nil, nil, &requestError{"No image file provided"}
	}
	if !h.config.Options.AcceptsUpload(header.Filename) {
		file.Close()
		return settings, nil, nil, &requestError{fmt.Sprintf("unsupported file type %q (accepted: %s)",
			header.Filename, strings.Join(h.config.Options.UploadExtensions, ", "))}
	}

	settings = facematch.Settings{
		Detector:       formValue(r, "detector", h.config.Matcher.Detector),
		Model:          formValue(r, "model", h.config.Matcher.Model),
		DatabasePath:   formValue(r, "database_path", h.config.Matcher.DatabasePath),
		Threshold:      h.config.Matcher.Threshold,
		DistanceMetric: constants.DefaultDistanceMetric,
	}
	if s := r.FormValue("threshold"); s != "" {
		t, err := strconv.ParseFloat(s, 64)
		if err != nil {
			file.Close()
			return settings, nil, nil, &requestError{"threshold must be a number"}
		}
		settings.Threshold = t
	}
	if err := h.config.Options.Validate(settings.Detector, settings.Model, settings.Threshold); err != nil {
		file.Close()
		return settings, nil, nil, &requestError{err.Error()}
	}

	return settings, file, header, nil
}

func formValue(r *http.Request, key, fallback string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return fallback
}

// acquire validates the request and persists the upload for the detector.
func (h *MatchHandler) acquire(w http.ResponseWriter, r *http.Request) (facematch.Settings, *facematch.SourceImage, string, bool) {
	settings, file, header, err := h.parseMatchForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return settings, nil, "", false
	}
	defer file.Close()

	src, err := facematch.Acquire(file, h.config.Matcher.TempDir)
	if err != nil {
		if errors.Is(err, facematch.ErrUnsupportedImage) {
			respondError(w, http.StatusBadRequest, "File must be an image")
			return settings, nil, "", false
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to store upload: %v", err))
		return settings, nil, "", false
	}
	return settings, src, header.Filename, true
}

// DetectAndSearch runs the whole pipeline for one upload and returns the report.
func (h *MatchHandler) DetectAndSearch(w http.ResponseWriter, r *http.Request) {
	settings, src, filename, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer src.Cleanup()

	log.Printf("Matching %s (detector=%s, model=%s, threshold=%.2f)",
		sanitizeForLog(filename), settings.Detector, settings.Model, settings.Threshold)

	matcher := facematch.NewMatcher(h.detector, h.searcher, settings,
		facematch.WithTempDir(h.config.Matcher.TempDir))
	report, err := matcher.Run(r.Context(), src.Path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, newMatchResponse(report))
}

// Start acquires the upload and starts an async match job
func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
	settings, src, filename, ok := h.acquire(w, r)
	if !ok {
		return
	}

	jobID := uuid.New().String()
	job := h.jobManager.CreateJob(jobID, filename, settings, src)

	go h.runMatchJob(job)

	respondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(JobStatusPending),
		"stage":  string(facematch.StageImageLoaded),
	})
}

// Status returns the status of a match job
func (h *MatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobId")
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing job ID")
		return
	}

	job := h.jobManager.GetJob(jobID)
	if job == nil {
		respondError(w, http.StatusNotFound, "job not found")
		return
	}

	respondJSON(w, http.StatusOK, job.Snapshot())
}

// Events streams job events via SSE
func (h *MatchHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamJobEvents(w, r, h.jobManager)
}

// runMatchJob runs the pipeline in the background. Runs are not cancellable; the
// request context is not used because the job outlives the request.
func (h *MatchHandler) runMatchJob(job *MatchJob) {
	defer job.source.Cleanup()

	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()

	matcher := facematch.NewMatcher(h.detector, h.searcher, job.Settings,
		facematch.WithTempDir(h.config.Matcher.TempDir),
		facematch.WithObserver(&jobObserver{job: job}))

	report, err := matcher.Run(context.Background(), job.source.Path)
	if err != nil {
		h.failJob(job, err.Error())
		return
	}

	result := newMatchResponse(report)
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.CompletedAt = &now
	job.FacesFound = report.FacesFound
	job.Result = result
	job.mu.Unlock()

	job.SendEvent(JobEvent{Type: eventCompleted, Message: result.Message, Data: result})
}

func (h *MatchHandler) failJob(job *MatchJob, message string) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Stage = facematch.StageFailed
	job.Error = message
	job.CompletedAt = &now
	job.mu.Unlock()
	log.Printf("Match job %s failed: %s", job.ID, sanitizeForLog(message))
	job.SendEvent(JobEvent{Type: eventFailed, Message: message})
}

// jobObserver forwards pipeline progress to a job and its SSE listeners.
type jobObserver struct {
	job *MatchJob
}

func (o *jobObserver) StageChanged(stage facematch.Stage) {
	o.job.mu.Lock()
	if !o.job.Stage.CanAdvanceTo(stage) {
		log.Printf("Match job %s: unexpected stage change %s -> %s", o.job.ID, o.job.Stage, stage)
	}
	o.job.Stage = stage
	o.job.mu.Unlock()
	o.job.SendEvent(JobEvent{Type: eventStage, Data: map[string]string{"stage": string(stage)}})
}

func (o *jobObserver) Warning(message string) {
	o.job.mu.Lock()
	o.job.Warnings = append(o.job.Warnings, message)
	o.job.mu.Unlock()
	o.job.SendEvent(JobEvent{Type: eventWarning, Message: message})
}

func (o *jobObserver) FaceProcessed(crop facematch.FaceCrop, result facematch.MatchResult) {
	fr := newFaceResult(crop, result, o.job.Settings.DatabasePath)
	o.job.mu.Lock()
	o.job.Faces = append(o.job.Faces, fr)
	o.job.FacesFound = len(o.job.Faces)
	o.job.mu.Unlock()
	o.job.SendEvent(JobEvent{Type: eventFace, Data: fr})
}
