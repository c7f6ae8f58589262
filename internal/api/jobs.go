package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks an async audit through its lifetime.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "error"
)

// Job is the API-visible state of one background audit. ReportID points at
// the stored report once the audit finishes.
type Job struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Status     JobStatus  `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	ReportID   string     `json:"report_id,omitempty"`
	Error      string     `json:"error,omitempty"`
}

func (j Job) finished() bool {
	return j.Status == JobDone || j.Status == JobFailed
}

// DefaultMaxJobs bounds how many job records the manager retains.
const DefaultMaxJobs = 500

const pruneInterval = 5 * time.Minute

// JobManager holds audit jobs in memory. Finished jobs beyond the retention
// limit are evicted, oldest first; running jobs are never evicted.
type JobManager struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	maxJobs int
}

func NewJobManager(maxJobs int) *JobManager {
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	m := &JobManager{
		jobs:    make(map[string]*Job),
		maxJobs: maxJobs,
	}
	go m.pruneLoop()
	return m
}

// Create registers a pending job for the target and returns a copy of it.
func (m *JobManager) Create(target string) Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	job := &Job{
		ID:        uuid.NewString(),
		Target:    target,
		Status:    JobPending,
		CreatedAt: time.Now().UTC(),
	}
	m.jobs[job.ID] = job
	m.pruneLocked()
	return *job
}

// Update applies fn to the job under the lock and returns the new state.
// Unknown ids return false.
func (m *JobManager) Update(id string, fn func(*Job)) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	fn(job)
	return *job, true
}

// Get returns a copy of the job state.
func (m *JobManager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns up to limit jobs, newest first.
func (m *JobManager) List(limit int) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs
}

func (m *JobManager) pruneLoop() {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		m.pruneLocked()
		m.mu.Unlock()
	}
}

// pruneLocked evicts the oldest finished jobs until the map fits the
// retention limit. Callers hold m.mu.
func (m *JobManager) pruneLocked() {
	excess := len(m.jobs) - m.maxJobs
	if excess <= 0 {
		return
	}

	finished := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		if job.finished() {
			finished = append(finished, job)
		}
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].CreatedAt.Before(finished[j].CreatedAt)
	})

	if excess > len(finished) {
		excess = len(finished)
	}
	for _, job := range finished[:excess] {
		delete(m.jobs, job.ID)
	}
}
