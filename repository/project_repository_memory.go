package repository

import (
	"context"
	"sync"

	"payment-schedule/domain"
)

// ProjectRepositoryMemory is an in-memory implementation of ProjectRepository.
type ProjectRepositoryMemory struct {
	mu   sync.RWMutex
	data map[string]domain.Project
}

// NewProjectRepositoryMemory creates a new in-memory project repository.
func NewProjectRepositoryMemory() *ProjectRepositoryMemory {
	return &ProjectRepositoryMemory{
		data: make(map[string]domain.Project),
	}
}

func (r *ProjectRepositoryMemory) Create(_ context.Context, project domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[project.ID]; ok {
		return ErrProjectExists
	}
	r.data[project.ID] = cloneProject(project)
	return nil
}

func (r *ProjectRepositoryMemory) Get(_ context.Context, id string) (domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	project, ok := r.data[id]
	if !ok {
		return domain.Project{}, ErrProjectNotFound
	}
	return cloneProject(project), nil
}

func (r *ProjectRepositoryMemory) UpdateSchedule(_ context.Context, project domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.data[project.ID]
	if !ok {
		return ErrProjectNotFound
	}
	stored.Schedule = project.Schedule
	stored.CustomSchedule = project.CustomSchedule
	stored.UpdatedAt = project.UpdatedAt
	r.data[project.ID] = cloneProject(stored)
	return nil
}

// cloneProject copies the schedule slice so callers cannot mutate stored state.
func cloneProject(p domain.Project) domain.Project {
	schedule := make(domain.PaymentSchedule, len(p.Schedule))
	copy(schedule, p.Schedule)
	p.Schedule = schedule
	return p
}
