package types

import "sync"

// Transition is a single (state, action, reward, nextState, done) record
type Transition struct {
	State     Observation
	Action    Action
	Reward    float64
	NextState Observation
	Done      bool
}

// Trace of transitions, also usable as an in-memory TransitionLogger
type Trace struct {
	mu          sync.Mutex
	transitions []Transition
	closed      bool
}

var _ TransitionLogger = &Trace{}

func NewTrace() *Trace {
	return &Trace{
		transitions: make([]Transition, 0),
	}
}

func (t *Trace) LogTransition(state Observation, action Action, reward float64, next Observation, done bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.transitions = append(t.transitions, Transition{
		State:     state,
		Action:    action,
		Reward:    reward,
		NextState: next,
		Done:      done,
	})
	return nil
}

func (t *Trace) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *Trace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.transitions)
}

func (t *Trace) Get(i int) (Transition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.transitions) {
		return Transition{}, false
	}
	return t.transitions[i], true
}

func (t *Trace) Last() (Transition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.transitions) < 1 {
		return Transition{}, false
	}
	return t.transitions[len(t.transitions)-1], true
}

// Episodes splits the trace at terminal transitions
func (t *Trace) Episodes() [][]Transition {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]Transition, 0)
	cur := make([]Transition, 0)
	for _, tr := range t.transitions {
		cur = append(cur, tr)
		if tr.Done {
			out = append(out, cur)
			cur = make([]Transition, 0)
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
