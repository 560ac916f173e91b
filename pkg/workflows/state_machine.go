package workflows

// StepMachine enforces wizard step transitions.
//
// Steps are numbered 1..N for input steps and N+1 for the terminal step.
// Forward movement is one step at a time; backward movement may return to
// any earlier input step. The terminal step has no outgoing transitions.
type StepMachine struct {
	allowedTransitions map[int][]int
	steps              int
}

// NewStepMachine creates a machine for a wizard with the given number of input steps
func NewStepMachine(steps int) *StepMachine {
	allowed := make(map[int][]int, steps+1)
	for from := 1; from <= steps; from++ {
		next := make([]int, 0, from)
		next = append(next, from+1)
		for back := from - 1; back >= 1; back-- {
			next = append(next, back)
		}
		allowed[from] = next
	}
	allowed[steps+1] = []int{}
	return &StepMachine{allowedTransitions: allowed, steps: steps}
}

// CanTransition checks if a step transition is allowed
func (sm *StepMachine) CanTransition(from, to int) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next steps for a given step
func (sm *StepMachine) GetAllowedTransitions(from int) []int {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []int{}
	}
	return allowed
}

// Steps returns the number of input steps.
func (sm *StepMachine) Steps() int {
	return sm.steps
}

// Terminal returns the success step that follows the last input step.
func (sm *StepMachine) Terminal() int {
	return sm.steps + 1
}
