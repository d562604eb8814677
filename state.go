package sdspi

import "fmt"

// State is the position of a Card in the SPI-mode initialization sequence.
// [SD-PLS|7.2.1 Mode Selection and Initialization]
type State int

const (
	PoweringUp State = iota
	AwaitingIdle
	NegotiatingVoltage
	PollingOperatingCondition
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case PoweringUp:
		return "PoweringUp"
	case AwaitingIdle:
		return "AwaitingIdle"
	case NegotiatingVoltage:
		return "NegotiatingVoltage"
	case PollingOperatingCondition:
		return "PollingOperatingCondition"
	case Ready:
		return "Ready"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) terminal() bool { return s == Ready || s == Failed }

// FailureReason tells why a Card ended in the Failed state.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonNoIdleResponse
	ReasonInitTimeout
	ReasonUnexpectedIllegalCommand
	ReasonTransport
	ReasonVoltageMismatch
	ReasonMalformedResponse
	ReasonCommandRejected
	ReasonInvalidCommand
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoIdleResponse:
		return "no idle response"
	case ReasonInitTimeout:
		return "initialization timeout"
	case ReasonUnexpectedIllegalCommand:
		return "unexpected illegal command"
	case ReasonTransport:
		return "transport error"
	case ReasonVoltageMismatch:
		return "voltage mismatch"
	case ReasonMalformedResponse:
		return "malformed response"
	case ReasonCommandRejected:
		return "command rejected"
	case ReasonInvalidCommand:
		return "invalid command"
	}
	return fmt.Sprintf("FailureReason(%d)", int(r))
}
