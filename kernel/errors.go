package kernel

import "errors"

var (
	ErrInvalidTask   = errors.New("invalid task id")
	ErrTaskTableFull = errors.New("task table full")
	ErrMailboxFull   = errors.New("task mailbox full")
	ErrNilBuffer     = errors.New("nil message buffer")
	ErrForeignBuffer = errors.New("buffer not owned by this kernel")
	ErrDoubleFree    = errors.New("buffer already released")
)
