package grove

import (
	"errors"
	"fmt"
)

// Sentinel errors for broken registry and collection invariants. They are
// always returned wrapped in an *InvariantError; match them with errors.Is.
var (
	ErrDuplicateID    = errors.New("duplicate id")
	ErrUnknownID      = errors.New("unknown id")
	ErrShaderNotBound = errors.New("shader not bound")
	ErrNotRenderable  = errors.New("representation is not renderable")
	ErrNilInstance    = errors.New("nil instance")
	ErrNilOccurrence  = errors.New("nil occurrence")
)

// InvariantError reports a call that would have broken the consistency of a
// World or Collection. Nothing was mutated when one is returned.
type InvariantError struct {
	Op  string
	ID  uint32
	Err error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("grove: %s %d: %v", e.Op, e.ID, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}

func invariant(op string, id uint32, err error) error {
	Logger().Warn("grove: invariant violation", "op", op, "id", id, "err", err)
	return &InvariantError{Op: op, ID: id, Err: err}
}
