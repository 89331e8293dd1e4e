package billing

import (
	"context"
	"time"
)

// TimelineStep is one named sub-step of the simulated payment processing.
type TimelineStep struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Duration time.Duration `json:"-"`
}

// DefaultTimeline returns the fixed processing sub-steps played after a
// billing submit, in order.
func DefaultTimeline() []TimelineStep {
	return []TimelineStep{
		{ID: "card-validation", Label: "Проверка данных карты", Duration: 1200 * time.Millisecond},
		{ID: "bank-connection", Label: "Связь с банком", Duration: 1500 * time.Millisecond},
		{ID: "final-verification", Label: "Финальная проверка", Duration: 800 * time.Millisecond},
	}
}

// Timeline plays processing sub-steps with their fixed durations. Once
// started it always runs to completion — the simulated payment has no
// cancellation path, mirroring the point of no return in a real charge.
type Timeline struct {
	steps []TimelineStep
	// sleep is replaceable so tests run instantly.
	sleep func(time.Duration)
}

// NewTimeline creates a timeline over the given steps. Empty steps fall
// back to the default set.
func NewTimeline(steps []TimelineStep) *Timeline {
	if len(steps) == 0 {
		steps = DefaultTimeline()
	}
	return &Timeline{steps: steps, sleep: time.Sleep}
}

// Steps returns the ordered sub-steps.
func (t *Timeline) Steps() []TimelineStep { return t.steps }

// Run plays every sub-step in order, invoking onStep as each completes.
// ctx is observed only for process shutdown; a live session's timeline is
// deliberately not cancellable.
func (t *Timeline) Run(ctx context.Context, onStep func(step TimelineStep, index int)) {
	for i, step := range t.steps {
		t.sleep(step.Duration)
		if ctx.Err() != nil {
			return
		}
		if onStep != nil {
			onStep(step, i)
		}
	}
}

// TotalDuration is the sum of all sub-step durations.
func (t *Timeline) TotalDuration() time.Duration {
	var total time.Duration
	for _, step := range t.steps {
		total += step.Duration
	}
	return total
}
