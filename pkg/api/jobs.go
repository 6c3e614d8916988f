package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type jobStatus string

const (
	jobRunning jobStatus = "running"
	jobDone    jobStatus = "done"
	jobFailed  jobStatus = "failed"
)

//job is one background labelling run started by /predict
type job struct {
	ID       string     `json:"job_id"`
	VideoID  string     `json:"video_id"`
	Model    string     `json:"model"`
	Status   jobStatus  `json:"status"`
	Error    string     `json:"error,omitempty"`
	Rallies  int        `json:"rallies"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished,omitempty"`
}

type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*job)}
}

func (r *jobRegistry) start(videoID, model string) job {
	j := &job{ID: uuid.NewString(), VideoID: videoID, Model: model, Status: jobRunning, Started: time.Now()}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
	return *j
}

func (r *jobRegistry) finish(id string, rallies int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return
	}
	now := time.Now()
	j.Finished = &now
	j.Rallies = rallies
	j.Status = jobDone
	if err != nil {
		j.Status = jobFailed
		j.Error = err.Error()
	}
}

func (r *jobRegistry) get(id string) (job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[id]
	if !ok {
		return job{}, false
	}
	return *j, true
}
