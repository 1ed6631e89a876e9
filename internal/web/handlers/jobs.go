package handlers

import (
	"sync"
	"time"

	"github.com/kozaktomas/face-matcher/internal/constants"
	"github.com/kozaktomas/face-matcher/internal/facematch"
)

// JobStatus represents the status of an async job.
type JobStatus string

// JobStatus constants define the lifecycle states of an async job.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// MatchJob represents an async detect-and-match run for one uploaded image.
type MatchJob struct {
	EventBroadcaster

	ID          string             `json:"id"`
	Filename    string             `json:"filename"`
	Status      JobStatus          `json:"status"`
	Stage       facematch.Stage    `json:"stage"`
	Settings    facematch.Settings `json:"settings"`
	FacesFound  int                `json:"faces_found"`
	Faces       []FaceResult       `json:"faces"`
	Warnings    []string           `json:"warnings,omitempty"`
	Error       string             `json:"error,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	Result      *MatchResponse     `json:"result,omitempty"`

	source *facematch.SourceImage
}

// GetStatus returns the current job status.
func (j *MatchJob) GetStatus() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// Snapshot returns a copy of the job that is safe to encode while the job runs.
func (j *MatchJob) Snapshot() *MatchJob {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return &MatchJob{
		ID:          j.ID,
		Filename:    j.Filename,
		Status:      j.Status,
		Stage:       j.Stage,
		Settings:    j.Settings,
		FacesFound:  j.FacesFound,
		Faces:       append([]FaceResult{}, j.Faces...),
		Warnings:    append([]string(nil), j.Warnings...),
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Result:      j.Result,
	}
}

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners. Progress events are skipped for a
// listener whose buffer is full; a terminal event replaces the oldest buffered event
// instead, so every stream still sees how the job ended.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	terminal := isTerminalEvent(event.Type)
	for _, listener := range b.listeners {
		select {
		case listener <- event:
			continue
		default:
		}
		if !terminal {
			continue
		}
		select {
		case <-listener:
		default:
		}
		select {
		case listener <- event:
		default:
		}
	}
}

// JobManager manages async jobs.
type JobManager struct {
	jobs      map[string]*MatchJob
	retention time.Duration
	mu        sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:      make(map[string]*MatchJob),
		retention: constants.JobRetention,
	}
}

// CreateJob creates a new match job and forgets finished jobs older than the
// retention period.
func (m *JobManager) CreateJob(id, filename string, settings facematch.Settings, source *facematch.SourceImage) *MatchJob {
	job := &MatchJob{
		ID:        id,
		Filename:  filename,
		Status:    JobStatusPending,
		Stage:     facematch.StageImageLoaded,
		Settings:  settings,
		Faces:     []FaceResult{},
		StartedAt: time.Now(),
		source:    source,
	}

	m.mu.Lock()
	m.prune(job.StartedAt)
	m.jobs[id] = job
	m.mu.Unlock()

	return job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *MatchJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// prune removes finished jobs. Callers hold m.mu.
func (m *JobManager) prune(now time.Time) {
	for id, job := range m.jobs {
		job.mu.RLock()
		expired := job.CompletedAt != nil && now.Sub(*job.CompletedAt) > m.retention
		job.mu.RUnlock()
		if expired {
			delete(m.jobs, id)
		}
	}
}
