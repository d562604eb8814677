package sdspi

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCommand  = errors.New("sdspi: invalid command")
	ErrResponseTimeout = errors.New("sdspi: no response from card")
	ErrShortRead       = errors.New("sdspi: truncated response")
	ErrNotReady        = errors.New("sdspi: card not initialized")
	ErrBusConfigured   = errors.New("sdspi: bus already configured differently")
)

// CommandRejectedError is returned when a well-formed R1 response reports
// illegal-command or parameter-error for the command sent.
type CommandRejectedError struct {
	Command Command
	Status  R1
}

func (e *CommandRejectedError) Error() string {
	return fmt.Sprintf("sdspi: %s rejected by card: %s", e.Command, e.Status)
}

// TransportError wraps an I/O failure reported by the Transport. These are
// never retried by this package.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sdspi: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// InitError reports why Initialize left the card in the Failed state.
type InitError struct {
	Reason FailureReason
	State  State // state in which the failure happened
	Err    error // underlying cause, may be nil
}

func (e *InitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sdspi: initialization failed in %s: %s", e.State, e.Reason)
	}
	return fmt.Sprintf("sdspi: initialization failed in %s: %s: %v", e.State, e.Reason, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }
