// Package jobmgr runs background jobs with cancellation, status callbacks and
// in-memory tracking, and lets the owner wait for every job to drain.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    logger.Debug("job", "status", msg)
//	})
//
//	jm.Go(ctx, "reply:ping", func(ctx context.Context) error {
//	    return send(ctx)
//	})
//
//	// on shutdown
//	jm.StopAll()
//	jm.Wait()
//
// Several jobs may share a name; each gets its own id.
package jobmgr

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Job is a running unit of work.
type Job struct {
	ID     uint64
	Name   string
	Cancel context.CancelFunc
}

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:reply:ping
//	error:reply:ping:context canceled
//	done:reply:ping
type StatusReporter func(string)

// Manager starts, stops and tracks jobs. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	next     uint64
	jobs     map[uint64]*Job
	Reporter StatusReporter
}

// NewManager creates a Manager. The reporter may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[uint64]*Job),
		Reporter: reporter,
	}
}

// Go runs runner in its own goroutine under a context derived from parent and
// returns the job id. The job is removed when runner returns.
func (m *Manager) Go(parent context.Context, name string, runner func(ctx context.Context) error) uint64 {
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	m.next++
	job := &Job{ID: m.next, Name: name, Cancel: cancel}
	m.jobs[job.ID] = job
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer cancel()

		m.report("running:" + name)
		if err := runner(ctx); err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}

		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
	}()

	return job.ID
}

// Stop cancels a running job by id.
func (m *Manager) Stop(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %d not running", id)
	}
	job.Cancel()
	return nil
}

// StopAll cancels every running job.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		job.Cancel()
	}
}

// Wait blocks until every started job has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// List returns the names of active jobs, sorted.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.Name)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs.
//
//	"Running jobs: reply:help, reply:ping"
//
// If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
