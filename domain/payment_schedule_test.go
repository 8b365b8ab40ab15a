package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentSchedule_UnmarshalJSON(t *testing.T) {
	body := `[
		{"stage": "Booking", "type": "fixed", "fixedAmount": 10000, "percentage": 99},
		{"stage": "Design", "type": "percentage", "percentage": 50},
		{"stage": "Handover", "type": "remaining", "fixedAmount": 5}
	]`

	var schedule PaymentSchedule
	require.NoError(t, json.Unmarshal([]byte(body), &schedule))

	assert.Equal(t, PaymentSchedule{
		FixedStage{Name: "Booking", Amount: 10000},
		PercentageStage{Name: "Design", Percentage: 50},
		RemainingStage{Name: "Handover"},
	}, schedule)
}

func TestPaymentSchedule_UnmarshalJSON_UnknownType(t *testing.T) {
	var schedule PaymentSchedule
	err := json.Unmarshal([]byte(`[{"stage":"x","type":"installment"}]`), &schedule)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage 0")
}

func TestPaymentSchedule_MarshalJSON_OmitsIrrelevantFields(t *testing.T) {
	schedule := PaymentSchedule{
		FixedStage{Name: "Booking", Amount: 10000},
		RemainingStage{Name: "Handover"},
	}

	data, err := json.Marshal(schedule)
	require.NoError(t, err)

	assert.JSONEq(t,
		`[{"stage":"Booking","type":"fixed","fixedAmount":10000},{"stage":"Handover","type":"remaining"}]`,
		string(data))
}

func TestPaymentSchedule_MarshalJSON_Nil(t *testing.T) {
	var schedule PaymentSchedule

	data, err := json.Marshal(schedule)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestPaymentSchedule_AddStage(t *testing.T) {
	original := PaymentSchedule{FixedStage{Name: "Booking", Amount: 500}}

	updated := original.AddStage().AddStage()

	require.Len(t, updated, 3)
	assert.Equal(t, PercentageStage{Name: "Stage 2", Percentage: 0}, updated[1])
	assert.Equal(t, PercentageStage{Name: "Stage 3", Percentage: 0}, updated[2])
	assert.Len(t, original, 1)
}

func TestPaymentSchedule_UpdateStage(t *testing.T) {
	original := PaymentSchedule{
		PercentageStage{Name: "Stage 1", Percentage: 20},
		RemainingStage{Name: "Stage 2"},
	}

	updated, err := original.UpdateStage(0, FixedStage{Name: "Advance", Amount: 25000})
	require.NoError(t, err)

	assert.Equal(t, FixedStage{Name: "Advance", Amount: 25000}, updated[0])
	assert.Equal(t, PercentageStage{Name: "Stage 1", Percentage: 20}, original[0])

	_, err = original.UpdateStage(2, RemainingStage{})
	assert.ErrorIs(t, err, ErrStageIndexOutOfRange)

	_, err = original.UpdateStage(-1, RemainingStage{})
	assert.ErrorIs(t, err, ErrStageIndexOutOfRange)
}

func TestPaymentSchedule_RemoveStage(t *testing.T) {
	original := PaymentSchedule{
		FixedStage{Name: "A", Amount: 1},
		FixedStage{Name: "B", Amount: 2},
		FixedStage{Name: "C", Amount: 3},
	}

	updated, err := original.RemoveStage(1)
	require.NoError(t, err)

	assert.Equal(t, PaymentSchedule{
		FixedStage{Name: "A", Amount: 1},
		FixedStage{Name: "C", Amount: 3},
	}, updated)
	assert.Len(t, original, 3)
	assert.Equal(t, FixedStage{Name: "B", Amount: 2}, original[1])

	_, err = original.RemoveStage(3)
	assert.ErrorIs(t, err, ErrStageIndexOutOfRange)
}

func TestParseStageKind(t *testing.T) {
	for _, s := range []string{"fixed", "percentage", "remaining"} {
		k, err := ParseStageKind(s)
		require.NoError(t, err)
		assert.Equal(t, StageKind(s), k)
	}

	_, err := ParseStageKind("Fixed")
	assert.Error(t, err)
}
