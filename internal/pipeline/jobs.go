package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/mindgest/internal/document"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}

// Job tracks the state of a single document analysis.
type Job struct {
	mu sync.Mutex

	ID        string
	Filename  string
	Kind      document.Kind
	SizeBytes int64

	Status   JobStatus
	Phase    string
	Progress document.ProgressEvent

	ContentHash string
	Method      string
	Synthetic   bool
	Pages       int
	Cached      bool
	FailedTasks []document.Task

	CreatedAt time.Time
	UpdatedAt time.Time

	// Internal: not serialized.
	fileData []byte
	result   *document.AnalysisResult
	errors   []string
}

// NewJob creates a queued job for an accepted upload.
func NewJob(desc document.Descriptor, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Filename:  desc.Name,
		Kind:      desc.Kind,
		SizeBytes: desc.SizeBytes,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// Descriptor returns the file description the job was created from.
func (j *Job) Descriptor() document.Descriptor {
	j.mu.Lock()
	defer j.mu.Unlock()
	return document.Descriptor{Name: j.Filename, SizeBytes: j.SizeBytes, Kind: j.Kind}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Delete removes a job and reports whether it existed.
func (s *JobStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	delete(s.jobs, id)
	return ok
}

// List returns snapshots of every job, newest first.
func (s *JobStore) List() []JobSnapshot {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	out := make([]JobSnapshot, len(jobs))
	for i, j := range jobs {
		out[i] = j.Snapshot()
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetProgress records the latest extraction progress event. It has the
// document.ProgressFunc signature so it can be handed to extractors.
func (j *Job) SetProgress(ev document.ProgressEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = ev
	j.UpdatedAt = time.Now()
}

// SetExtraction records what extraction produced and drops the raw upload.
func (j *Job) SetExtraction(ex *document.Extraction, hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.Method = ex.Method
	j.Synthetic = ex.Synthetic
	j.Pages = ex.Pages
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// SetResult stores the analysis result and the tasks that fell back.
func (j *Job) SetResult(res *document.AnalysisResult, failed []document.Task, cached bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.FailedTasks = failed
	j.Cached = cached
	j.UpdatedAt = time.Now()
}

// Result returns a copy of the analysis result, or nil before one exists.
func (j *Job) Result() *document.AnalysisResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.result == nil {
		return nil
	}
	return cloneResult(j.result)
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string                 `json:"job_id"`
	Status      JobStatus              `json:"status"`
	Phase       string                 `json:"phase"`
	Filename    string                 `json:"filename"`
	Kind        document.Kind          `json:"kind"`
	SizeBytes   int64                  `json:"size_bytes"`
	Progress    document.ProgressEvent `json:"progress"`
	ContentHash string                 `json:"content_hash,omitempty"`
	Method      string                 `json:"method,omitempty"`
	Synthetic   bool                   `json:"synthetic"`
	Pages       int                    `json:"pages,omitempty"`
	Cached      bool                   `json:"cached"`
	FailedTasks []document.Task        `json:"failed_tasks"`
	Errors      []string               `json:"errors"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	failed := append([]document.Task{}, j.FailedTasks...)
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Kind:        j.Kind,
		SizeBytes:   j.SizeBytes,
		Progress:    j.Progress,
		ContentHash: j.ContentHash,
		Method:      j.Method,
		Synthetic:   j.Synthetic,
		Pages:       j.Pages,
		Cached:      j.Cached,
		FailedTasks: failed,
		Errors:      errs,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
