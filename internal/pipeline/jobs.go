package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a translation job.
type JobStatus string

const (
	StatusQueued      JobStatus = "queued"
	StatusParsing     JobStatus = "parsing"
	StatusCleaning    JobStatus = "cleaning"
	StatusSegmenting  JobStatus = "segmenting"
	StatusTranslating JobStatus = "translating"
	StatusReflowing   JobStatus = "reflowing"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusCancelled   JobStatus = "cancelled"
)

// Done reports whether the status is final.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job tracks the state of a single subtitle translation.
type Job struct {
	mu sync.Mutex

	ID       string  `json:"job_id"`
	Filename string  `json:"filename"`
	Options  Options `json:"options"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Progress Progress  `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData  []byte
	output    *Output
	errors    []string
	cancel    context.CancelFunc
	cancelled bool
}

// Progress tracks processing progress.
type Progress struct {
	TotalSentences      int      `json:"total_sentences"`
	SentencesTranslated int      `json:"sentences_translated"`
	Issues              int      `json:"issues"`
	Warnings            int      `json:"warnings"`
	Errors              []string `json:"errors"`
}

// NewJob creates a queued job for file data.
func NewJob(id, filename string, data []byte, opts Options) *Job {
	now := time.Now()
	return &Job{
		ID:          id,
		Filename:    filename,
		Options:     opts,
		Status:      StatusQueued,
		Phase:       "queued",
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		fileData:    data,
	}
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

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.updatedAt()) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

func (j *Job) updatedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.UpdatedAt
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
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetProgress records how many sentences are translated. It matches
// translate.Progress.
func (j *Job) SetProgress(done, total int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.SentencesTranslated = done
	j.Progress.TotalSentences = total
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// SetOutput stores the result of a successful run.
func (j *Job) SetOutput(out *Output) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.output = out
	j.Progress.Issues = len(out.Issues)
	j.Progress.Warnings = len(out.Warnings)
	j.UpdatedAt = time.Now()
}

// Output returns the result, or nil while the job is not completed.
func (j *Job) Output() *Output {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.output
}

// bindCancel attaches the cancel func of the running job's context. It
// reports false when the job was cancelled before it started.
func (j *Job) bindCancel(cancel context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cancelled {
		return false
	}
	j.cancel = cancel
	return true
}

// Cancel asks a queued or running job to stop. Batches already sent to the
// engine finish first. It reports false for jobs that are already done.
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Done() {
		return false
	}
	j.cancelled = true
	if j.cancel != nil {
		j.cancel()
	}
	j.UpdatedAt = time.Now()
	return true
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Filename    string    `json:"filename"`
	SourceLang  string    `json:"source_lang"`
	TargetLang  string    `json:"target_lang"`
	Engine      string    `json:"engine"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	source := j.Options.SourceLang
	if j.output != nil {
		source = j.output.SourceLang
	}
	return JobSnapshot{
		ID:         j.ID,
		Filename:   j.Filename,
		SourceLang: source,
		TargetLang: j.Options.TargetLang,
		Engine:     j.Options.Engine,
		Status:     j.Status,
		Phase:      j.Phase,
		Progress: Progress{
			TotalSentences:      j.Progress.TotalSentences,
			SentencesTranslated: j.Progress.SentencesTranslated,
			Issues:              j.Progress.Issues,
			Warnings:            j.Progress.Warnings,
			Errors:              append([]string{}, errs...),
		},
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
