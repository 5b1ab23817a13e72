package client

import "fmt"

// Op identifies which operation an OpError came from.
type Op string

const (
	OpAdd    Op = "add"
	OpMove   Op = "move"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
)

// OpError is a tagged operation failure. Add and move failures surface
// at the grid level; update and remove failures surface on the affected
// talk. Prior state is always intact and nothing is retried.
type OpError struct {
	Op     Op
	SlotID string
	TalkID string
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s talk: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// GridError returns the first grid-level operation failure, or nil.
func (e *Engine) GridError() *OpError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gridErr
}

// TalkError returns the first failure recorded for the given talk, or
// nil.
func (e *Engine) TalkError(talkID string) *OpError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.talkErrs[talkID]
}

// ClearErrors resets both error surfaces, typically on a user-driven
// refresh.
func (e *Engine) ClearErrors() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gridErr = nil
	e.talkErrs = make(map[string]*OpError)
}

// recordGridError keeps the first grid-level failure for visibility.
func (e *Engine) recordGridError(opErr *OpError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gridErr == nil {
		e.gridErr = opErr
	}
}

// recordTalkError keeps the first failure per talk.
func (e *Engine) recordTalkError(talkID string, opErr *OpError) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.talkErrs[talkID]; !ok {
		e.talkErrs[talkID] = opErr
	}
}
