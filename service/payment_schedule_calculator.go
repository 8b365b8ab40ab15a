package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"payment-schedule/domain"
)

var hundred = decimal.NewFromInt(100)

// ComputeAmounts returns one amount per stage, in schedule order.
//
// Fixed and percentage stages are committed first; the remaining stage is
// then resolved against the committed total and clamped at zero. Only the
// first remaining stage receives the remainder, later ones get 0. Amounts
// keep full precision; rounding is left to display. A nil stage yields 0.
func ComputeAmounts(schedule domain.PaymentSchedule, contractValue float64) []float64 {
	amounts := computeDecimalAmounts(schedule, decimal.NewFromFloat(contractValue))

	out := make([]float64, len(amounts))
	for i, amt := range amounts {
		out[i] = amt.InexactFloat64()
	}
	return out
}

func computeDecimalAmounts(schedule domain.PaymentSchedule, contractValue decimal.Decimal) []decimal.Decimal {
	amounts := make([]decimal.Decimal, len(schedule))
	committed := decimal.Zero
	remainingIndex := -1

	for i, stage := range schedule {
		switch s := stage.(type) {
		case domain.FixedStage:
			amounts[i] = decimal.NewFromFloat(s.Amount)
		case domain.PercentageStage:
			amounts[i] = contractValue.Mul(decimal.NewFromFloat(s.Percentage)).Div(hundred)
		case domain.RemainingStage:
			if remainingIndex < 0 {
				remainingIndex = i
			}
			amounts[i] = decimal.Zero
			continue
		default:
			amounts[i] = decimal.Zero
			continue
		}
		committed = committed.Add(amounts[i])
	}

	if remainingIndex >= 0 {
		amounts[remainingIndex] = decimal.Max(decimal.Zero, contractValue.Sub(committed))
	}
	return amounts
}

// TotalPercentage sums the percentages of all percentage stages.
func TotalPercentage(schedule domain.PaymentSchedule) float64 {
	total := decimal.Zero
	for _, stage := range schedule {
		if s, ok := stage.(domain.PercentageStage); ok {
			total = total.Add(decimal.NewFromFloat(s.Percentage))
		}
	}
	return total.InexactFloat64()
}

// Validate reports schedule-level problems. Findings are advisory: callers
// block persistence while any exist but may keep editing.
func Validate(schedule domain.PaymentSchedule) []domain.ValidationError {
	var errs []domain.ValidationError

	remaining := 0
	totalPct := decimal.Zero
	for _, stage := range schedule {
		switch s := stage.(type) {
		case domain.RemainingStage:
			remaining++
		case domain.PercentageStage:
			totalPct = totalPct.Add(decimal.NewFromFloat(s.Percentage))
		}
	}

	if remaining > 1 {
		errs = append(errs, domain.ValidationError{
			Code:    domain.TooManyRemainingStages,
			Message: `only one "remaining" stage is allowed`,
		})
	}
	if totalPct.GreaterThan(hundred) {
		errs = append(errs, domain.ValidationError{
			Code:    domain.PercentageOverflow,
			Message: fmt.Sprintf("total percentage (%s%%) exceeds 100%%", totalPct.String()),
		})
	}
	return errs
}

// Evaluate runs the calculator and validation together.
func Evaluate(schedule domain.PaymentSchedule, contractValue float64) domain.ScheduleResult {
	amounts := computeDecimalAmounts(schedule, decimal.NewFromFloat(contractValue))

	stages := make([]domain.StageAmount, len(schedule))
	total := decimal.Zero
	for i, stage := range schedule {
		stages[i] = domain.StageAmount{Amount: amounts[i].InexactFloat64()}
		if stage != nil {
			stages[i].Label = stage.Label()
			stages[i].Kind = stage.Kind()
		}
		total = total.Add(amounts[i])
	}

	errs := Validate(schedule)
	if errs == nil {
		errs = []domain.ValidationError{}
	}

	return domain.ScheduleResult{
		ContractValue:   contractValue,
		Stages:          stages,
		Total:           total.InexactFloat64(),
		TotalPercentage: TotalPercentage(schedule),
		Errors:          errs,
		Valid:           len(errs) == 0,
	}
}
