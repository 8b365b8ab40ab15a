package service

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"payment-schedule/domain"
	"payment-schedule/repository"
)

type MockProjectRepository struct {
	*repository.ProjectRepositoryMemory
	UpdateCalled bool
	ForceError   bool
}

func (m *MockProjectRepository) UpdateSchedule(ctx context.Context, project domain.Project) error {
	m.UpdateCalled = true
	if m.ForceError {
		return errors.New("update error")
	}
	return m.ProjectRepositoryMemory.UpdateSchedule(ctx, project)
}

var testDefaultSchedule = domain.PaymentSchedule{
	domain.PercentageStage{Name: "Booking", Percentage: 10},
	domain.RemainingStage{Name: "Handover"},
}

func newTestService(t *testing.T) (*ScheduleService, *MockProjectRepository, *repository.MockCache) {
	t.Helper()
	repo := &MockProjectRepository{ProjectRepositoryMemory: repository.NewProjectRepositoryMemory()}
	cache := repository.NewMockCache()
	svc := NewScheduleService(repo, cache, testDefaultSchedule, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc, repo, cache
}

func TestCalculate_ReturnsAmountsAndFindings(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Calculate(context.Background(), domain.ScheduleInput{
		ContractValue: 100000,
		Stages: domain.PaymentSchedule{
			domain.PercentageStage{Name: "A", Percentage: 60},
			domain.PercentageStage{Name: "B", Percentage: 50},
		},
	})

	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, 110000.0, result.Total)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, domain.PercentageOverflow, result.Errors[0].Code)
}

func TestCalculate_InvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	tooMany := make(domain.PaymentSchedule, MaxStagesPerSchedule+1)
	for i := range tooMany {
		tooMany[i] = domain.FixedStage{Amount: 1}
	}

	tests := []struct {
		name  string
		input domain.ScheduleInput
	}{
		{"negative contract value", domain.ScheduleInput{ContractValue: -1}},
		{"contract value over max", domain.ScheduleInput{ContractValue: MaxContractValue + 1}},
		{"NaN contract value", domain.ScheduleInput{ContractValue: math.NaN()}},
		{"infinite percentage", domain.ScheduleInput{
			ContractValue: 100,
			Stages:        domain.PaymentSchedule{domain.PercentageStage{Percentage: math.Inf(1)}},
		}},
		{"nil stage", domain.ScheduleInput{ContractValue: 100, Stages: domain.PaymentSchedule{nil}}},
		{"too many stages", domain.ScheduleInput{ContractValue: 100, Stages: tooMany}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Calculate(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCalculate_UsesCache(t *testing.T) {
	svc, _, cache := newTestService(t)
	input := domain.ScheduleInput{
		ContractValue: 50000,
		Stages:        domain.PaymentSchedule{domain.RemainingStage{Name: "All"}},
	}

	first, err := svc.Calculate(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, cache.Data, 1)

	// Overwrite the entry to prove the second call reads from the cache.
	for key := range cache.Data {
		planted := first
		planted.Total = 1
		data, _ := json.Marshal(planted)
		cache.Data[key] = string(data)
	}

	second, err := svc.Calculate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1.0, second.Total)
}

func TestCalculate_CacheFailureIsNotFatal(t *testing.T) {
	svc, _, cache := newTestService(t)
	cache.SetErr = errors.New("redis down")

	result, err := svc.Calculate(context.Background(), domain.ScheduleInput{
		ContractValue: 1000,
		Stages:        domain.PaymentSchedule{domain.FixedStage{Amount: 250}},
	})

	require.NoError(t, err)
	assert.Equal(t, 250.0, result.Total)
}

func TestCreateProject(t *testing.T) {
	svc, repo, _ := newTestService(t)

	project, err := svc.CreateProject(context.Background(), domain.ProjectInput{
		Name:          "  Villa 12 interiors ",
		ContractValue: 1_800_000,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, project.ID)
	assert.Equal(t, "Villa 12 interiors", project.Name)
	assert.False(t, project.CustomSchedule)

	stored, err := repo.Get(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, project.ContractValue, stored.ContractValue)
}

func TestCreateProject_InvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateProject(context.Background(), domain.ProjectInput{Name: " ", ContractValue: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateProject(context.Background(), domain.ProjectInput{Name: "Flat", ContractValue: -10})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetSchedule_DefaultUntilCustomSaved(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	project, err := svc.CreateProject(ctx, domain.ProjectInput{Name: "Office", ContractValue: 200000})
	require.NoError(t, err)

	got, err := svc.GetSchedule(ctx, project.ID)
	require.NoError(t, err)
	assert.False(t, got.CustomSchedule)
	assert.Equal(t, testDefaultSchedule, got.Schedule)
	assert.Equal(t, []domain.StageAmount{
		{Label: "Booking", Kind: domain.StagePercentage, Amount: 20000},
		{Label: "Handover", Kind: domain.StageRemaining, Amount: 180000},
	}, got.Result.Stages)

	custom := domain.PaymentSchedule{
		domain.FixedStage{Name: "Advance", Amount: 10000},
		domain.PercentageStage{Name: "Design", Percentage: 50},
		domain.RemainingStage{Name: "Handover"},
	}
	_, err = svc.SaveSchedule(ctx, project.ID, custom, true)
	require.NoError(t, err)

	got, err = svc.GetSchedule(ctx, project.ID)
	require.NoError(t, err)
	assert.True(t, got.CustomSchedule)
	assert.Equal(t, custom, got.Schedule)
	assert.Equal(t, 200000.0, got.Result.Total)
	assert.Equal(t, 90000.0, got.Result.Stages[2].Amount)
}

func TestGetSchedule_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetSchedule(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)
}

func TestSaveSchedule_Forbidden(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	project, err := svc.CreateProject(ctx, domain.ProjectInput{Name: "Flat", ContractValue: 100})
	require.NoError(t, err)

	_, err = svc.SaveSchedule(ctx, project.ID, domain.PaymentSchedule{domain.RemainingStage{}}, false)

	assert.ErrorIs(t, err, ErrForbidden)
	assert.False(t, repo.UpdateCalled)
}

func TestSaveSchedule_RejectedIsNotPersisted(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	project, err := svc.CreateProject(ctx, domain.ProjectInput{Name: "Flat", ContractValue: 100})
	require.NoError(t, err)

	_, err = svc.SaveSchedule(ctx, project.ID, domain.PaymentSchedule{
		domain.RemainingStage{Name: "A"},
		domain.RemainingStage{Name: "B"},
		domain.PercentageStage{Name: "C", Percentage: 101},
	}, true)

	var rejected *ScheduleRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Len(t, rejected.Errors, 2)
	assert.False(t, repo.UpdateCalled)

	got, err := svc.GetSchedule(ctx, project.ID)
	require.NoError(t, err)
	assert.False(t, got.CustomSchedule)
}

func TestSaveSchedule_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SaveSchedule(context.Background(), "missing", domain.PaymentSchedule{}, true)
	assert.ErrorIs(t, err, repository.ErrProjectNotFound)
}

func TestSaveSchedule_RepositoryError(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	project, err := svc.CreateProject(ctx, domain.ProjectInput{Name: "Flat", ContractValue: 100})
	require.NoError(t, err)
	repo.ForceError = true

	_, err = svc.SaveSchedule(ctx, project.ID, domain.PaymentSchedule{domain.RemainingStage{}}, true)

	require.Error(t, err)
	assert.True(t, repo.UpdateCalled)
}

func TestResetSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	project, err := svc.CreateProject(ctx, domain.ProjectInput{Name: "Flat", ContractValue: 1000})
	require.NoError(t, err)

	_, err = svc.SaveSchedule(ctx, project.ID, domain.PaymentSchedule{domain.FixedStage{Amount: 1000}}, true)
	require.NoError(t, err)

	_, err = svc.ResetSchedule(ctx, project.ID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.ResetSchedule(ctx, project.ID, true)
	require.NoError(t, err)
	assert.False(t, got.CustomSchedule)
	assert.Equal(t, testDefaultSchedule, got.Schedule)
}

func TestEditStages_StartFromDefaultSchedule(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	project, err := svc.CreateProject(ctx, domain.ProjectInput{Name: "Studio", ContractValue: 100000})
	require.NoError(t, err)

	got, err := svc.AddStage(ctx, project.ID, true)
	require.NoError(t, err)
	assert.True(t, got.CustomSchedule)
	assert.Equal(t, domain.PaymentSchedule{
		domain.PercentageStage{Name: "Booking", Percentage: 10},
		domain.RemainingStage{Name: "Handover"},
		domain.PercentageStage{Name: "Stage 3", Percentage: 0},
	}, got.Schedule)

	got, err = svc.UpdateStage(ctx, project.ID, 2, domain.FixedStage{Name: "Survey", Amount: 5000}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.FixedStage{Name: "Survey", Amount: 5000}, got.Schedule[2])
	assert.Equal(t, 85000.0, got.Result.Stages[1].Amount)

	got, err = svc.RemoveStage(ctx, project.ID, 0, true)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSchedule{
		domain.RemainingStage{Name: "Handover"},
		domain.FixedStage{Name: "Survey", Amount: 5000},
	}, got.Schedule)

	stored, err := svc.GetSchedule(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Schedule, stored.Schedule)

	// The configured default is never modified by edits.
	assert.Len(t, svc.DefaultSchedule(), 2)
	assert.Equal(t, domain.PercentageStage{Name: "Booking", Percentage: 10}, svc.DefaultSchedule()[0])
}

func TestEditStages_Errors(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	project, err := svc.CreateProject(ctx, domain.ProjectInput{Name: "Studio", ContractValue: 100000})
	require.NoError(t, err)

	t.Run("forbidden", func(t *testing.T) {
		_, err := svc.AddStage(ctx, project.ID, false)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown project", func(t *testing.T) {
		_, err := svc.RemoveStage(ctx, "missing", 0, true)
		assert.ErrorIs(t, err, repository.ErrProjectNotFound)
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := svc.UpdateStage(ctx, project.ID, 2, domain.RemainingStage{}, true)
		assert.ErrorIs(t, err, domain.ErrStageIndexOutOfRange)

		_, err = svc.RemoveStage(ctx, project.ID, -1, true)
		assert.ErrorIs(t, err, domain.ErrStageIndexOutOfRange)
	})

	t.Run("nil stage", func(t *testing.T) {
		_, err := svc.UpdateStage(ctx, project.ID, 0, nil, true)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("edit that breaks validation", func(t *testing.T) {
		_, err := svc.UpdateStage(ctx, project.ID, 0, domain.RemainingStage{Name: "Second"}, true)

		var rejected *ScheduleRejectedError
		require.ErrorAs(t, err, &rejected)
		require.Len(t, rejected.Errors, 1)
		assert.Equal(t, domain.TooManyRemainingStages, rejected.Errors[0].Code)
	})

	assert.False(t, repo.UpdateCalled)
}
