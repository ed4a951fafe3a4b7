package pipeline

import "feedback_agent/feedback"

// State is a step of the generate -> evaluate -> revise state machine.
type State string

const (
	StateGenerating State = "GENERATING"
	StateEvaluating State = "EVALUATING"
	StateRevising   State = "REVISING"
	StateValidated  State = "VALIDATED"
	StateExhausted  State = "EXHAUSTED"
)

// Terminal reports whether the run ends in this state.
func (s State) Terminal() bool {
	return s == StateValidated || s == StateExhausted
}

// Status maps a terminal state onto the run status it reports.
func (s State) Status() feedback.Status {
	if s == StateValidated {
		return feedback.StatusValidated
	}
	return feedback.StatusMaxIterationsReached
}

// Next is the transition taken after an evaluation. iteration counts the
// revision cycles completed so far.
func Next(review feedback.Review, iteration, maxIterations int) State {
	switch {
	case review.Pass:
		return StateValidated
	case iteration >= maxIterations:
		return StateExhausted
	default:
		return StateRevising
	}
}
