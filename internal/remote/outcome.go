package remote

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnreachable reports that a request could not be dispatched or no
// response arrived (DNS, refused connection, timeout).
var ErrUnreachable = errors.New("remote backend unreachable")

// Kind classifies the outcome of one remote call.
type Kind int

const (
	Success Kind = iota
	Unreachable
	Rejected
	// Failed means the call did not complete because of a local problem
	// (unmarshallable body, session lookup error, the caller's context
	// ending). Err carries it.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Unreachable:
		return "unreachable"
	case Rejected:
		return "rejected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of Client.Call. Body is set on Success,
// Status/Detail on Rejected, Err on Unreachable and Failed.
type Outcome struct {
	Kind   Kind
	Body   json.RawMessage
	Status int
	Detail string
	Err    error
}

// AsError converts a non-success outcome to an error. It returns nil on Success.
func (o Outcome) AsError() error {
	switch o.Kind {
	case Success:
		return nil
	case Unreachable:
		if o.Err != nil {
			return fmt.Errorf("%w: %w", ErrUnreachable, o.Err)
		}
		return ErrUnreachable
	case Failed:
		return o.Err
	default:
		return &RejectedError{Status: o.Status, Detail: o.Detail}
	}
}

// RejectedError is an authoritative answer from a backend: a non-2xx
// response, or a local credential check that failed. Detail is meant to be
// shown to the user as is.
type RejectedError struct {
	Status int
	Detail string
	Err    error
}

func (e *RejectedError) Error() string {
	return e.Detail
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Decode unmarshals a Success body into v.
func (o Outcome) Decode(v any) error {
	if o.Kind != Success {
		return o.AsError()
	}
	body := o.Body
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
