package repository

import (
	"context"
	"errors"

	"payment-schedule/domain"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectExists   = errors.New("project already exists")
)

type ProjectRepository interface {
	Create(ctx context.Context, project domain.Project) error
	Get(ctx context.Context, id string) (domain.Project, error)
	// UpdateSchedule persists the schedule fields of an existing project.
	UpdateSchedule(ctx context.Context, project domain.Project) error
}
