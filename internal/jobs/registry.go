package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/engine"
	"github.com/nexconsult/simples-batch/internal/models"
)

// State é o estado de um job assíncrono.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateDone      State = "done"
	StateError     State = "error"
	StateCancelled State = "cancelled"
)

// How many log lines a job keeps for the status endpoint.
const logTailSize = 50

// Job é um job de enriquecimento submetido via API.
type Job struct {
	ID       string         `json:"id"`
	State    State          `json:"state"`
	Created  time.Time      `json:"created"`
	Started  time.Time      `json:"started,omitzero"`
	Finished time.Time      `json:"finished,omitzero"`
	Progress float64        `json:"progress"`
	Total    int            `json:"total"`
	Logs     []string       `json:"logs,omitempty"`
	Result   *models.Result `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	Statuses map[int]string `json:"statuses,omitempty"`
	cancel   context.CancelFunc
}

// EngineFactory constrói o engine de um job. O intervalo de pacing deriva
// do delaySeconds do job, então cada job precisa de seu próprio pacer e
// resolver em vez de um engine compartilhado.
type EngineFactory func(req models.Request) *engine.Engine

// Registry mantém os jobs em memória e executa cada um em sua própria
// goroutine.
type Registry struct {
	factory EngineFactory
	logger  *logrus.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewRegistry creates a job registry that builds one engine per job.
func NewRegistry(factory EngineFactory, logger *logrus.Logger) *Registry {
	return &Registry{
		factory: factory,
		logger:  logger,
		jobs:    make(map[string]*Job),
	}
}

// mapSink collects terminal statuses per row for the API response.
type mapSink struct {
	mu       sync.Mutex
	statuses map[int]string
}

func (s *mapSink) SetStatus(linha int, status models.Status) {
	s.mu.Lock()
	s.statuses[linha] = string(status)
	s.mu.Unlock()
}

// Submit registers a job and starts it in the background.
func (r *Registry) Submit(req models.Request) (*Job, error) {
	if len(req.Rows) == 0 {
		return nil, fmt.Errorf("rows is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:      uuid.New().String(),
		State:   StateQueued,
		Created: time.Now(),
		Total:   len(req.Rows),
		cancel:  cancel,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	sink := &mapSink{statuses: make(map[int]string)}

	go r.run(ctx, job, req, sink)

	r.logger.WithFields(logrus.Fields{
		"job_id": job.ID,
		"rows":   len(req.Rows),
	}).Info("Job submitted")

	return job, nil
}

func (r *Registry) run(ctx context.Context, job *Job, req models.Request, sink *mapSink) {
	r.update(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Started = time.Now()
	})

	events := engine.EventFuncs{
		OnLog: func(message string) {
			r.update(job.ID, func(j *Job) {
				j.Logs = append(j.Logs, message)
				if len(j.Logs) > logTailSize {
					j.Logs = j.Logs[len(j.Logs)-logTailSize:]
				}
			})
		},
		OnProgress: func(done float64, total int) {
			r.update(job.ID, func(j *Job) {
				j.Progress = done
				j.Total = total
			})
		},
	}

	result, err := r.factory(req).Run(ctx, req, sink, events)

	r.update(job.ID, func(j *Job) {
		j.Finished = time.Now()
		sink.mu.Lock()
		j.Statuses = sink.statuses
		sink.mu.Unlock()

		switch {
		case err != nil:
			j.State = StateError
			j.Error = err.Error()
		case result.Interrupted:
			j.State = StateCancelled
			j.Result = &result
		default:
			j.State = StateDone
			j.Result = &result
		}
	})

	r.logger.WithFields(logrus.Fields{
		"job_id":      job.ID,
		"interrupted": result.Interrupted,
	}).Info("Job finished")
}

// Get returns a snapshot of one job.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	snapshot.Logs = append([]string(nil), job.Logs...)
	return &snapshot, true
}

// Stop requests cooperative cancellation of a running job. The job will
// eventually transition to cancelled with its partial result.
func (r *Registry) Stop(id string) bool {
	r.mu.RLock()
	job, ok := r.jobs[id]
	r.mu.RUnlock()

	if !ok {
		return false
	}
	job.cancel()
	return true
}

// List returns snapshots of all jobs, newest first.
func (r *Registry) List() []*Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		snapshot := *job
		snapshot.Logs = append([]string(nil), job.Logs...)
		jobs = append(jobs, &snapshot)
	}
	return jobs
}

func (r *Registry) update(id string, fn func(*Job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		fn(job)
	}
}
