package tree

import "github.com/pkg/errors"

var (
	// ErrThresholdOrder is returned when the stop thresholds are not strictly
	// below their restart counterparts.
	ErrThresholdOrder = errors.New("tree: stop thresholds must be below restart thresholds")
	// ErrSamplings is returned when fewer than one split candidate is requested.
	ErrSamplings = errors.New("tree: samplings must be at least 1")
)

// Params controls how a tree grows. The gap between the stop thresholds
// (ObjectiveThreshold, MinExamples) and the restart thresholds
// (ObjectiveRestart, RestartExamples) keeps a leaf from flipping between
// buffering and regrowing on borderline data during online training.
type Params struct {
	ObjectiveThreshold float64 // stop growing at or below this objective
	ObjectiveRestart   float64 // online regrowth requires at least this objective
	MinExamples        int     // stop growing at or below this many examples
	RestartExamples    int     // online regrowth requires at least this many buffered examples
	Samplings          int     // random split candidates tried per node
	Chatty             bool    // log every node decision
}

// ObjectiveThreshold sets the objective value at or below which a node
// becomes a leaf.
func ObjectiveThreshold(v float64) func(*Params) {
	return func(p *Params) {
		p.ObjectiveThreshold = v
	}
}

// ObjectiveRestart sets the objective value a buffered leaf must reach
// before online training tries to split it.
func ObjectiveRestart(v float64) func(*Params) {
	return func(p *Params) {
		p.ObjectiveRestart = v
	}
}

// MinExamples limits the size for a node to be split vs marked as a leaf.
func MinExamples(n int) func(*Params) {
	return func(p *Params) {
		p.MinExamples = n
	}
}

// RestartExamples sets how many examples a leaf buffers during online
// training before it reconsiders splitting.
func RestartExamples(n int) func(*Params) {
	return func(p *Params) {
		p.RestartExamples = n
	}
}

// Samplings sets the number of randomized split tests evaluated at each node.
func Samplings(n int) func(*Params) {
	return func(p *Params) {
		p.Samplings = n
	}
}

// Chatty turns on per-node logging while training.
func Chatty(b bool) func(*Params) {
	return func(p *Params) {
		p.Chatty = b
	}
}

// NewParams returns validated training parameters. If no options are passed
// the result is equivalent to the following call:
//
//	p, err := NewParams(ObjectiveThreshold(0), ObjectiveRestart(0.1),
//		MinExamples(1), RestartExamples(500), Samplings(300), Chatty(false))
func NewParams(options ...func(*Params)) (Params, error) {
	p := Params{
		ObjectiveThreshold: 0,
		ObjectiveRestart:   0.1,
		MinExamples:        1,
		RestartExamples:    500,
		Samplings:          300,
	}

	for _, opt := range options {
		opt(&p)
	}

	return p, p.Validate()
}

// Validate reports whether p can be used for training.
func (p Params) Validate() error {
	if !(p.ObjectiveThreshold < p.ObjectiveRestart) || !(p.MinExamples < p.RestartExamples) {
		return errors.Wrapf(ErrThresholdOrder, "objective %v/%v, examples %d/%d",
			p.ObjectiveThreshold, p.ObjectiveRestart, p.MinExamples, p.RestartExamples)
	}
	if p.Samplings < 1 {
		return errors.Wrapf(ErrSamplings, "got %d", p.Samplings)
	}
	return nil
}
