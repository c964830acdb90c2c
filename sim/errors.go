package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAttribute is returned when an attribute is not declared in the entity type's schema.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrUnboundInput is returned when a non-delayed connection's source has not produced a value yet.
	ErrUnboundInput = errors.New("unbound input")
	// ErrDependencyCycle is returned when non-delayed connections form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle through non-delayed connections")
	// ErrUnknownEntity is returned when an entity id is not in the arena.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrUnknownType is returned when an entity type is not in the catalog.
	ErrUnknownType = errors.New("unknown entity type")
	// ErrUnknownParam is returned when a construction parameter is not declared by the type.
	ErrUnknownParam = errors.New("unknown parameter")
)

// AttributeError names the entity and attribute behind an ErrUnknownAttribute.
type AttributeError struct {
	Entity string
	Attr   string
	// Role is "input" or "output".
	Role string
}

func (e *AttributeError) Error() string {
	return fmt.Sprintf("entity %s has no %s attribute %q", e.Entity, e.Role, e.Attr)
}

func (e *AttributeError) Unwrap() error { return ErrUnknownAttribute }

// StepError aborts a run. It records which entity failed and at which logical time.
type StepError struct {
	Entity string
	Clock  int64
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("[tick %07d] entity %s: %v", e.Clock, e.Entity, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
