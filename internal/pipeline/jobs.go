package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/archindex/internal/ocr"
	"github.com/dgallion1/archindex/internal/preprocess"
	"github.com/google/uuid"
)

// JobStatus represents the state of a processing job.
type JobStatus string

const (
	StatusQueued        JobStatus = "queued"
	StatusPreprocessing JobStatus = "preprocessing"
	StatusRecognizing   JobStatus = "recognizing"
	StatusExtracting    JobStatus = "extracting"
	StatusCompleted     JobStatus = "completed"
	StatusFailed        JobStatus = "failed"
)

// Job tracks one file through preprocess, recognize and extract.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	FileID   string    `json:"file_id"`
	Filename string    `json:"filename"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`

	Language ocr.Language      `json:"language"`
	Model    ocr.ModelType     `json:"model_type"`
	Steps    []preprocess.Step `json:"processing_steps"`

	Progress Progress  `json:"progress"`
	Files    Artifacts `json:"files"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	TextLength      int      `json:"text_length"`
	AttributesFound int      `json:"attributes_found"`
	AttributesValid int      `json:"attributes_valid"`
	Errors          []string `json:"errors"`
}

// Artifacts names the files a job wrote.
type Artifacts struct {
	Processed  string `json:"processed_file,omitempty"`
	OCRResult  string `json:"ocr_result_file,omitempty"`
	Attributes string `json:"attributes_file,omitempty"`
}

// NewJob returns a queued job for an uploaded file.
func NewJob(fileID, filename string, lang ocr.Language, model ocr.ModelType, steps []preprocess.Step) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		FileID:    fileID,
		Filename:  filename,
		Status:    StatusQueued,
		Phase:     "queued",
		Language:  lang,
		Model:     model,
		Steps:     steps,
		CreatedAt: now,
		UpdatedAt: now,
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

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
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
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTextLength records the length of the recognized text in runes.
func (j *Job) SetTextLength(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TextLength = n
	j.UpdatedAt = time.Now()
}

// SetAttributes records how many attributes were filled and how many of
// those validated.
func (j *Job) SetAttributes(found, valid int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.AttributesFound = found
	j.Progress.AttributesValid = valid
	j.UpdatedAt = time.Now()
}

func (j *Job) setFile(set func(*Artifacts)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	set(&j.Files)
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string            `json:"job_id"`
	FileID    string            `json:"file_id"`
	Filename  string            `json:"filename"`
	Status    JobStatus         `json:"status"`
	Phase     string            `json:"phase"`
	Language  ocr.Language      `json:"language"`
	Model     ocr.ModelType     `json:"model_type"`
	Steps     []preprocess.Step `json:"processing_steps"`
	Progress  Progress          `json:"progress"`
	Files     Artifacts         `json:"files"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.errors))
	copy(errs, j.errors)
	steps := make([]preprocess.Step, len(j.Steps))
	copy(steps, j.Steps)
	return JobSnapshot{
		ID:       j.ID,
		FileID:   j.FileID,
		Filename: j.Filename,
		Status:   j.Status,
		Phase:    j.Phase,
		Language: j.Language,
		Model:    j.Model,
		Steps:    steps,
		Progress: Progress{
			TextLength:      j.Progress.TextLength,
			AttributesFound: j.Progress.AttributesFound,
			AttributesValid: j.Progress.AttributesValid,
			Errors:          errs,
		},
		Files:     j.Files,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}
