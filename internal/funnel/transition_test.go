package funnel

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func TestApplyHappyPath(t *testing.T) {
	state := NewState(testNow)
	require.Equal(t, StepPlan, state.Step)
	require.Equal(t, PlanTrial, state.SelectedPlan)

	state, err := Apply(state, PlanSelected{Plan: PlanYearly}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StepRegister, state.Step)
	assert.Equal(t, PlanYearly, state.SelectedPlan)

	state, err = Apply(state, Registered{Name: "Иван", Email: "ivan@example.com"}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StepBilling, state.Step)
	assert.Equal(t, "ivan@example.com", state.UserData.Email)

	state, err = Apply(state, BillingSubmitted{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StepProcessing, state.Step)
	assert.Nil(t, state.Metrics.CompletedAt)

	done := testNow.Add(3500 * time.Millisecond)
	state, err = Apply(state, ProcessingDone{}, done)
	require.NoError(t, err)
	assert.Equal(t, StepReveal, state.Step)
	require.NotNil(t, state.Metrics.CompletedAt)
	assert.Equal(t, done, *state.Metrics.CompletedAt)

	state, err = Apply(state, Accepted{}, done)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, state.Outcome)
}

func TestApplyRejectsIllegalJumps(t *testing.T) {
	tests := []struct {
		name string
		step Step
		tr   Transition
	}{
		{"register before plan", StepPlan, Registered{Name: "a", Email: "a@b.io"}},
		{"billing before register", StepRegister, BillingSubmitted{}},
		{"reveal before processing", StepBilling, ProcessingDone{}},
		{"plan after plan step", StepRegister, PlanSelected{Plan: PlanTrial}},
		{"accept before reveal", StepProcessing, Accepted{}},
		{"decline before reveal", StepBilling, Declined{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := NewState(testNow)
			state.Step = tt.step
			_, err := Apply(state, tt.tr, testNow)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestApplyBackNavigation(t *testing.T) {
	state := NewState(testNow)
	state.Step = StepBilling
	state, err := Apply(state, WentBack{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StepRegister, state.Step)

	state, err = Apply(state, WentBack{}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StepPlan, state.Step)

	// Plan is the first step; there is nothing to go back to.
	_, err = Apply(state, WentBack{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyProcessingCannotBeLeftByGoingBack(t *testing.T) {
	state := NewState(testNow)
	state.Step = StepProcessing
	_, err := Apply(state, WentBack{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyRejectsUnknownPlan(t *testing.T) {
	state := NewState(testNow)
	_, err := Apply(state, PlanSelected{Plan: "lifetime"}, testNow)
	assert.ErrorIs(t, err, ErrUnknownPlan)
	assert.False(t, errors.Is(err, ErrInvalidTransition))
}

func TestApplyOutcomeIsFinal(t *testing.T) {
	state := NewState(testNow)
	state.Step = StepReveal
	state, err := Apply(state, Declined{}, testNow)
	require.NoError(t, err)

	_, err = Apply(state, Accepted{}, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyIsPure(t *testing.T) {
	original := NewState(testNow)
	_, err := Apply(original, PlanSelected{Plan: PlanMonthly}, testNow)
	require.NoError(t, err)
	assert.Equal(t, StepPlan, original.Step)
	assert.Equal(t, PlanTrial, original.SelectedPlan)
}

func TestPlanPrices(t *testing.T) {
	assert.Equal(t, 0, PlanTrial.PriceRUB())
	assert.Equal(t, 1990, PlanMonthly.PriceRUB())
	assert.Equal(t, 1330, PlanYearly.PriceRUB())
}

func TestCatalogShape(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, 3)
	assert.Equal(t, PlanTrial, catalog[0].ID)
	assert.True(t, catalog[2].Popular, "yearly plan is the highlighted one")
	assert.Equal(t, "-33%", catalog[2].Discount)
}
