package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"payment-schedule/domain"
	"payment-schedule/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("not allowed to edit payment schedule")
)

// ScheduleRejectedError is returned when a schedule fails validation and
// was not persisted.
type ScheduleRejectedError struct {
	Errors []domain.ValidationError
}

func (e *ScheduleRejectedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Message
	}
	return "schedule rejected: " + strings.Join(msgs, "; ")
}

type ScheduleService struct {
	repo            repository.ProjectRepository
	cache           repository.CacheRepository
	defaultSchedule domain.PaymentSchedule
	logger          *zap.Logger
	now             func() time.Time
}

// NewScheduleService creates a ScheduleService. defaultSchedule applies to
// projects that have not opted into a custom schedule.
func NewScheduleService(
	repo repository.ProjectRepository,
	cache repository.CacheRepository,
	defaultSchedule domain.PaymentSchedule,
	logger *zap.Logger,
) *ScheduleService {
	return &ScheduleService{
		repo:            repo,
		cache:           cache,
		defaultSchedule: defaultSchedule,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *ScheduleService) DefaultSchedule() domain.PaymentSchedule {
	return s.defaultSchedule
}

// Calculate computes stage amounts for an ad-hoc schedule. Validation
// findings are part of the result, not an error.
func (s *ScheduleService) Calculate(
	ctx context.Context,
	input domain.ScheduleInput,
) (domain.ScheduleResult, error) {

	if err := checkContractValue(input.ContractValue); err != nil {
		return domain.ScheduleResult{}, err
	}
	if err := checkStages(input.Stages); err != nil {
		return domain.ScheduleResult{}, err
	}

	key, err := calculationKey(input)
	if err != nil {
		return domain.ScheduleResult{}, fmt.Errorf("building cache key: %w", err)
	}

	if cached, ok := s.cache.Get(ctx, key); ok {
		var result domain.ScheduleResult
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			s.logger.Debug("calculation cache hit", zap.String("key", key))
			return result, nil
		}
		s.logger.Warn("discarding unreadable cache entry", zap.String("key", key))
	}

	result := Evaluate(input.Stages, input.ContractValue)

	// Guardar en caché (no crítico si falla)
	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, string(data)); err != nil {
			s.logger.Warn("failed to cache calculation", zap.Error(err))
		}
	}

	return result, nil
}

func (s *ScheduleService) CreateProject(
	ctx context.Context,
	input domain.ProjectInput,
) (domain.Project, error) {

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.Project{}, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	if len(name) > MaxProjectNameLength {
		return domain.Project{}, fmt.Errorf("%w: project name exceeds %d characters", ErrInvalidInput, MaxProjectNameLength)
	}
	if err := checkContractValue(input.ContractValue); err != nil {
		return domain.Project{}, err
	}

	now := s.now().UTC()
	project := domain.Project{
		ID:            uuid.NewString(),
		Name:          name,
		ContractValue: input.ContractValue,
		Schedule:      domain.PaymentSchedule{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return domain.Project{}, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID),
		zap.Float64("contract_value", project.ContractValue))

	return project, nil
}

// GetSchedule returns the schedule in effect for a project.
func (s *ScheduleService) GetSchedule(
	ctx context.Context,
	projectID string,
) (domain.ProjectSchedule, error) {

	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return domain.ProjectSchedule{}, err
	}
	return s.projectSchedule(project), nil
}

// SaveSchedule replaces a project's custom schedule wholesale. Nothing is
// written while the schedule has validation findings.
func (s *ScheduleService) SaveSchedule(
	ctx context.Context,
	projectID string,
	schedule domain.PaymentSchedule,
	canEdit bool,
) (domain.ProjectSchedule, error) {

	if !canEdit {
		return domain.ProjectSchedule{}, ErrForbidden
	}
	if err := checkStages(schedule); err != nil {
		return domain.ProjectSchedule{}, err
	}

	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return domain.ProjectSchedule{}, err
	}

	return s.persistSchedule(ctx, project, schedule)
}

// AddStage appends a zero percentage stage to the schedule in effect.
func (s *ScheduleService) AddStage(
	ctx context.Context,
	projectID string,
	canEdit bool,
) (domain.ProjectSchedule, error) {
	return s.editSchedule(ctx, projectID, canEdit, func(p domain.PaymentSchedule) (domain.PaymentSchedule, error) {
		return p.AddStage(), nil
	})
}

// UpdateStage replaces the stage at index.
func (s *ScheduleService) UpdateStage(
	ctx context.Context,
	projectID string,
	index int,
	stage domain.PaymentStage,
	canEdit bool,
) (domain.ProjectSchedule, error) {
	return s.editSchedule(ctx, projectID, canEdit, func(p domain.PaymentSchedule) (domain.PaymentSchedule, error) {
		return p.UpdateStage(index, stage)
	})
}

// RemoveStage drops the stage at index.
func (s *ScheduleService) RemoveStage(
	ctx context.Context,
	projectID string,
	index int,
	canEdit bool,
) (domain.ProjectSchedule, error) {
	return s.editSchedule(ctx, projectID, canEdit, func(p domain.PaymentSchedule) (domain.PaymentSchedule, error) {
		return p.RemoveStage(index)
	})
}

// editSchedule applies edit to the schedule in effect (the default one for
// projects without a custom schedule) and saves the outcome under the same
// rules as SaveSchedule.
func (s *ScheduleService) editSchedule(
	ctx context.Context,
	projectID string,
	canEdit bool,
	edit func(domain.PaymentSchedule) (domain.PaymentSchedule, error),
) (domain.ProjectSchedule, error) {

	if !canEdit {
		return domain.ProjectSchedule{}, ErrForbidden
	}

	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return domain.ProjectSchedule{}, err
	}

	current := s.defaultSchedule
	if project.CustomSchedule {
		current = project.Schedule
	}

	schedule, err := edit(current)
	if err != nil {
		return domain.ProjectSchedule{}, err
	}
	if err := checkStages(schedule); err != nil {
		return domain.ProjectSchedule{}, err
	}

	return s.persistSchedule(ctx, project, schedule)
}

func (s *ScheduleService) persistSchedule(
	ctx context.Context,
	project domain.Project,
	schedule domain.PaymentSchedule,
) (domain.ProjectSchedule, error) {
	projectID := project.ID

	if errs := Validate(schedule); len(errs) > 0 {
		s.logger.Info("schedule rejected",
			zap.String("project_id", projectID),
			zap.Int("findings", len(errs)))
		return domain.ProjectSchedule{}, &ScheduleRejectedError{Errors: errs}
	}

	project.Schedule = schedule
	project.CustomSchedule = true
	project.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateSchedule(ctx, project); err != nil {
		return domain.ProjectSchedule{}, fmt.Errorf("saving schedule: %w", err)
	}

	s.logger.Info("schedule saved",
		zap.String("project_id", projectID),
		zap.Int("stages", len(schedule)))

	return s.projectSchedule(project), nil
}

// ResetSchedule drops a project's custom schedule so it falls back to the
// default one.
func (s *ScheduleService) ResetSchedule(
	ctx context.Context,
	projectID string,
	canEdit bool,
) (domain.ProjectSchedule, error) {

	if !canEdit {
		return domain.ProjectSchedule{}, ErrForbidden
	}

	project, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return domain.ProjectSchedule{}, err
	}

	project.Schedule = domain.PaymentSchedule{}
	project.CustomSchedule = false
	project.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateSchedule(ctx, project); err != nil {
		return domain.ProjectSchedule{}, fmt.Errorf("resetting schedule: %w", err)
	}

	s.logger.Info("schedule reset", zap.String("project_id", projectID))

	return s.projectSchedule(project), nil
}

func (s *ScheduleService) projectSchedule(project domain.Project) domain.ProjectSchedule {
	schedule := s.defaultSchedule
	if project.CustomSchedule {
		schedule = project.Schedule
	}
	return domain.ProjectSchedule{
		ProjectID:      project.ID,
		CustomSchedule: project.CustomSchedule,
		Schedule:       schedule,
		Result:         Evaluate(schedule, project.ContractValue),
	}
}

func checkContractValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: contract value must be a finite number", ErrInvalidInput)
	}
	if v < 0 {
		return fmt.Errorf("%w: contract value cannot be negative", ErrInvalidInput)
	}
	if v > MaxContractValue {
		return fmt.Errorf("%w: contract value exceeds the maximum of %.2f", ErrInvalidInput, MaxContractValue)
	}
	return nil
}

// checkStages only guards shape and numeric sanity; sign of amounts and
// percentages is left to the caller.
func checkStages(schedule domain.PaymentSchedule) error {
	if len(schedule) > MaxStagesPerSchedule {
		return fmt.Errorf("%w: schedule exceeds %d stages", ErrInvalidInput, MaxStagesPerSchedule)
	}
	for i, stage := range schedule {
		var v float64
		switch st := stage.(type) {
		case domain.FixedStage:
			v = st.Amount
		case domain.PercentageStage:
			v = st.Percentage
		case domain.RemainingStage:
			continue
		default:
			return fmt.Errorf("%w: stage %d has no kind", ErrInvalidInput, i)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: stage %d must hold a finite number", ErrInvalidInput, i)
		}
	}
	return nil
}

func calculationKey(input domain.ScheduleInput) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return calculationCachePrefix + strconv.FormatUint(xxhash.Sum64(data), 16), nil
}
