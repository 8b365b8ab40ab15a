package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

type StageKind string

const (
	StageFixed      StageKind = "fixed"
	StagePercentage StageKind = "percentage"
	StageRemaining  StageKind = "remaining"
)

var ErrStageIndexOutOfRange = errors.New("stage index out of range")

func ParseStageKind(s string) (StageKind, error) {
	switch k := StageKind(s); k {
	case StageFixed, StagePercentage, StageRemaining:
		return k, nil
	}
	return "", fmt.Errorf("unknown stage type %q", s)
}

// PaymentStage is one line of a payment schedule. The set of variants is
// closed: FixedStage, PercentageStage and RemainingStage.
type PaymentStage interface {
	Label() string
	Kind() StageKind
	isStage()
}

// FixedStage contributes a set amount.
type FixedStage struct {
	Name   string
	Amount float64
}

// PercentageStage contributes a share of the contract value.
type PercentageStage struct {
	Name       string
	Percentage float64
}

// RemainingStage takes whatever the other stages leave uncommitted.
type RemainingStage struct {
	Name string
}

func (s FixedStage) Label() string   { return s.Name }
func (s FixedStage) Kind() StageKind { return StageFixed }
func (FixedStage) isStage()          {}

func (s PercentageStage) Label() string   { return s.Name }
func (s PercentageStage) Kind() StageKind { return StagePercentage }
func (PercentageStage) isStage()          {}

func (s RemainingStage) Label() string   { return s.Name }
func (s RemainingStage) Kind() StageKind { return StageRemaining }
func (RemainingStage) isStage()          {}

// PaymentSchedule is an ordered list of stages.
type PaymentSchedule []PaymentStage

// StageRecord is the stored and transported shape of a stage.
type StageRecord struct {
	Stage       string    `json:"stage" toml:"stage"`
	Type        StageKind `json:"type" toml:"type"`
	Percentage  float64   `json:"percentage,omitempty" toml:"percentage,omitempty"`
	FixedAmount float64   `json:"fixedAmount,omitempty" toml:"fixed_amount,omitempty"`
}

func RecordOf(stage PaymentStage) StageRecord {
	rec := StageRecord{Stage: stage.Label(), Type: stage.Kind()}
	switch s := stage.(type) {
	case FixedStage:
		rec.FixedAmount = s.Amount
	case PercentageStage:
		rec.Percentage = s.Percentage
	}
	return rec
}

func (r StageRecord) ToStage() (PaymentStage, error) {
	kind, err := ParseStageKind(string(r.Type))
	if err != nil {
		return nil, err
	}
	switch kind {
	case StageFixed:
		return FixedStage{Name: r.Stage, Amount: r.FixedAmount}, nil
	case StagePercentage:
		return PercentageStage{Name: r.Stage, Percentage: r.Percentage}, nil
	default:
		return RemainingStage{Name: r.Stage}, nil
	}
}

func (p PaymentSchedule) Records() []StageRecord {
	out := make([]StageRecord, 0, len(p))
	for _, stage := range p {
		out = append(out, RecordOf(stage))
	}
	return out
}

func ScheduleFromRecords(records []StageRecord) (PaymentSchedule, error) {
	out := make(PaymentSchedule, 0, len(records))
	for i, rec := range records {
		stage, err := rec.ToStage()
		if err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		out = append(out, stage)
	}
	return out, nil
}

func (p PaymentSchedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Records())
}

func (p *PaymentSchedule) UnmarshalJSON(data []byte) error {
	var records []StageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	schedule, err := ScheduleFromRecords(records)
	if err != nil {
		return err
	}
	*p = schedule
	return nil
}

// AddStage returns a copy with a new zero percentage stage appended.
func (p PaymentSchedule) AddStage() PaymentSchedule {
	out := make(PaymentSchedule, len(p), len(p)+1)
	copy(out, p)
	return append(out, PercentageStage{
		Name:       fmt.Sprintf("Stage %d", len(p)+1),
		Percentage: 0,
	})
}

func (p PaymentSchedule) UpdateStage(index int, stage PaymentStage) (PaymentSchedule, error) {
	if index < 0 || index >= len(p) {
		return nil, fmt.Errorf("update stage %d: %w", index, ErrStageIndexOutOfRange)
	}
	out := make(PaymentSchedule, len(p))
	copy(out, p)
	out[index] = stage
	return out, nil
}

func (p PaymentSchedule) RemoveStage(index int) (PaymentSchedule, error) {
	if index < 0 || index >= len(p) {
		return nil, fmt.Errorf("remove stage %d: %w", index, ErrStageIndexOutOfRange)
	}
	out := make(PaymentSchedule, 0, len(p)-1)
	out = append(out, p[:index]...)
	return append(out, p[index+1:]...), nil
}

type ValidationCode string

const (
	TooManyRemainingStages ValidationCode = "too_many_remaining_stages"
	PercentageOverflow     ValidationCode = "percentage_overflow"
)

type ValidationError struct {
	Code    ValidationCode `json:"code"`
	Message string         `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Message
}

type StageAmount struct {
	Label  string    `json:"label"`
	Kind   StageKind `json:"kind"`
	Amount float64   `json:"amount"`
}

type ScheduleInput struct {
	ContractValue float64         `json:"contractValue"`
	Stages        PaymentSchedule `json:"stages"`
}

type ScheduleResult struct {
	ContractValue   float64           `json:"contractValue"`
	Stages          []StageAmount     `json:"stages"`
	Total           float64           `json:"total"`
	TotalPercentage float64           `json:"totalPercentage"`
	Errors          []ValidationError `json:"errors"`
	Valid           bool              `json:"valid"`
}
