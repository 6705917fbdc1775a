package activechart

import (
	"errors"
	"fmt"

	"github.com/comalice/activechart/kernel"
)

var (
	// Capacity exhaustion. Transient: the caller may drop or retry.
	ErrQueueFull   = errors.New("event queue full")
	ErrAllocFailed = errors.New("message pool exhausted")

	// Misuse by the caller.
	ErrNoQueue           = errors.New("active object has no event queue")
	ErrNotRegistered     = errors.New("active object not registered")
	ErrAlreadyRegistered = errors.New("active object already registered")
	ErrNotStarted        = errors.New("processor not started")
	ErrAlreadyStarted    = errors.New("processor already started")
	ErrReleased          = errors.New("mutable message already sent or released")
	ErrInvalidSize       = errors.New("invalid message size")

	// Conditions the system cannot continue from.
	ErrRegistryFull       = errors.New("active object registry full")
	ErrUnregisteredTarget = errors.New("message addressed to unregistered object")
	ErrBadEnvelope        = errors.New("malformed message envelope")
)

// Class tells a caller how to react to an error.
type Class int

const (
	ClassUnknown Class = iota
	// ClassTransient errors are expected under load; drop or retry.
	ClassTransient
	// ClassInvalid errors are programming mistakes at the call site.
	ClassInvalid
	// ClassFatal errors mean the system state can no longer be trusted.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassInvalid:
		return "invalid"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassOf classifies err by the sentinel it wraps.
func ClassOf(err error) Class {
	var fe *FatalError
	switch {
	case err == nil:
		return ClassUnknown
	case errors.As(err, &fe):
		return ClassFatal
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrAllocFailed), errors.Is(err, kernel.ErrMailboxFull):
		return ClassTransient
	case errors.Is(err, ErrRegistryFull), errors.Is(err, ErrUnregisteredTarget), errors.Is(err, ErrBadEnvelope):
		return ClassFatal
	case errors.Is(err, ErrNoQueue), errors.Is(err, ErrNotRegistered), errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrNotStarted), errors.Is(err, ErrAlreadyStarted), errors.Is(err, ErrReleased),
		errors.Is(err, ErrInvalidSize), errors.Is(err, kernel.ErrInvalidTask):
		return ClassInvalid
	default:
		return ClassUnknown
	}
}

// FatalError reports a condition the processor cannot recover from. It is
// handed to the fatal handler; the default handler panics with it.
type FatalError struct {
	Op     string
	Object string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Object == "" {
		return fmt.Sprintf("activechart: fatal: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("activechart: fatal: %s %s: %v", e.Op, e.Object, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
