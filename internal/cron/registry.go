package cron

import (
	"context"
	"fmt"
	"strings"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry runs jobs in the order they were first registered. Job names are
// unique; registering a name twice swaps the job but keeps its slot.
type Registry struct {
	jobs  []Job
	index map[string]int
}

func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{index: make(map[string]int, len(jobs))}
	for _, job := range jobs {
		r.Register(job)
	}
	return r
}

func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	if slot, ok := r.index[job.Name()]; ok {
		r.jobs[slot] = job
		return
	}
	r.index[job.Name()] = len(r.jobs)
	r.jobs = append(r.jobs, job)
}

func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// Select narrows the registry to the named jobs, for running a single sweep by
// hand. Unknown names are an error so a typo never silently runs nothing.
func (r *Registry) Select(names ...string) (*Registry, error) {
	out := NewRegistry()
	var unknown []string
	for _, name := range names {
		slot, ok := r.index[strings.TrimSpace(name)]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		out.Register(r.jobs[slot])
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown cron job(s) %s; registered: %s", strings.Join(unknown, ", "), strings.Join(r.names(), ", "))
	}
	return out, nil
}

func (r *Registry) names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
