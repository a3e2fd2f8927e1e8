package relax

import "fmt"

// Phase is a binding or provider lifecycle phase.
type Phase int

const (
	PhaseConstructed Phase = iota
	PhaseMounting
	PhaseMounted
	PhaseUpdating
	PhaseUnmounted
)

func (p Phase) String() string {
	switch p {
	case PhaseConstructed:
		return "constructed"
	case PhaseMounting:
		return "mounting"
	case PhaseMounted:
		return "mounted"
	case PhaseUpdating:
		return "updating"
	case PhaseUnmounted:
		return "unmounted"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Open reports whether store notifications may invalidate the host directly.
func (p Phase) Open() bool {
	return p == PhaseMounted
}

var phaseTransitions = map[Phase][]Phase{
	PhaseConstructed: {PhaseMounting, PhaseUnmounted},
	PhaseMounting:    {PhaseMounted, PhaseUnmounted},
	PhaseMounted:     {PhaseUpdating, PhaseUnmounted},
	PhaseUpdating:    {PhaseMounted, PhaseUnmounted},
}

func (p Phase) canTransition(to Phase) bool {
	for _, next := range phaseTransitions[p] {
		if next == to {
			return true
		}
	}
	return false
}

// PhaseError reports a lifecycle call made out of order.
type PhaseError struct {
	From Phase
	To   Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("relax: illegal lifecycle transition %s -> %s", e.From, e.To)
}

func (e *PhaseError) Is(target error) bool {
	return target == ErrIllegalTransition
}
