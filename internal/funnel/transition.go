package funnel

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a transition is not legal from the
// current step.
var ErrInvalidTransition = errors.New("funnel: invalid transition")

// ErrUnknownPlan is returned when a plan outside the catalog is selected.
var ErrUnknownPlan = errors.New("funnel: unknown plan")

// Transition is a tagged union of every state change the wizard supports.
// Using explicit variants instead of a free-form patch makes illegal jumps
// (for example straight to reveal) unrepresentable.
type Transition interface {
	transition()
}

// PlanSelected moves plan -> register with the chosen plan.
type PlanSelected struct {
	Plan Plan
}

// Registered moves register -> billing with the collected contact details.
type Registered struct {
	Name  string
	Email string
}

// BillingSubmitted moves billing -> processing. The mock card fields are
// validated by the caller and never appear here.
type BillingSubmitted struct{}

// ProcessingDone moves processing -> reveal once the simulated timeline has
// played out.
type ProcessingDone struct{}

// WentBack moves one step backward where allowed (register -> plan,
// billing -> register).
type WentBack struct{}

// Accepted records the early-access opt-in on the reveal step.
type Accepted struct{}

// Declined records the opt-out on the reveal step.
type Declined struct{}

func (PlanSelected) transition()     {}
func (Registered) transition()       {}
func (BillingSubmitted) transition() {}
func (ProcessingDone) transition()   {}
func (WentBack) transition()         {}
func (Accepted) transition()         {}
func (Declined) transition()         {}

// Apply reduces state by one transition. It is pure: no I/O, no side
// effects beyond the returned state. now is injected so reveal completion
// time is deterministic in tests.
func Apply(state State, tr Transition, now time.Time) (State, error) {
	switch t := tr.(type) {
	case PlanSelected:
		if state.Step != StepPlan {
			return state, transitionErr(state.Step, "plan_selected")
		}
		if !t.Plan.Valid() {
			return state, fmt.Errorf("%w: %q", ErrUnknownPlan, t.Plan)
		}
		state.SelectedPlan = t.Plan
		state.Step = StepRegister
		return state, nil

	case Registered:
		if state.Step != StepRegister {
			return state, transitionErr(state.Step, "registered")
		}
		state.UserData = UserData{Name: t.Name, Email: t.Email}
		state.Step = StepBilling
		return state, nil

	case BillingSubmitted:
		if state.Step != StepBilling {
			return state, transitionErr(state.Step, "billing_submitted")
		}
		state.Step = StepProcessing
		return state, nil

	case ProcessingDone:
		if state.Step != StepProcessing {
			return state, transitionErr(state.Step, "processing_done")
		}
		state.Step = StepReveal
		completed := now
		state.Metrics.CompletedAt = &completed
		return state, nil

	case WentBack:
		switch state.Step {
		case StepRegister:
			state.Step = StepPlan
			return state, nil
		case StepBilling:
			state.Step = StepRegister
			return state, nil
		default:
			// No back-navigation from plan, processing or reveal.
			return state, transitionErr(state.Step, "went_back")
		}

	case Accepted:
		if state.Step != StepReveal || state.Outcome != OutcomeNone {
			return state, transitionErr(state.Step, "accepted")
		}
		state.Outcome = OutcomeAccepted
		return state, nil

	case Declined:
		if state.Step != StepReveal || state.Outcome != OutcomeNone {
			return state, transitionErr(state.Step, "declined")
		}
		state.Outcome = OutcomeDeclined
		return state, nil

	default:
		return state, fmt.Errorf("funnel: unknown transition %T", tr)
	}
}

func transitionErr(step Step, transition string) error {
	return fmt.Errorf("%w: %s from step %s", ErrInvalidTransition, transition, step)
}
