// Package failover decides, per call, whether the remote backend or the
// local store answers, and demotes to local-only after the remote is found
// unreachable. Demotion is sticky until Reset.
package failover

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/houhousishu/houhou/internal/remote"
)

// State is the routing mode.
type State int32

const (
	// Normal attempts the remote backend first.
	Normal State = iota
	// Demoted skips the remote backend entirely.
	Demoted
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Demoted:
		return "demoted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Decision tells the caller what to do with a call.
type Decision int

const (
	// Accept returns the remote result.
	Accept Decision = iota
	// Fallback answers from the local store after a failed remote attempt.
	Fallback
	// Surface returns the remote error to the caller untouched.
	Surface
	// Local answers from the local store without trying the remote.
	Local
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Fallback:
		return "fallback"
	case Surface:
		return "surface"
	case Local:
		return "local"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Transition maps the current state and the kind of a remote attempt to the
// next state and a decision. In the Demoted state no remote attempt is made,
// so kind is ignored. Only Unreachable demotes.
func Transition(s State, kind remote.Kind) (State, Decision) {
	if s == Demoted {
		return Demoted, Local
	}
	switch kind {
	case remote.Success:
		return Normal, Accept
	case remote.Unreachable:
		return Demoted, Fallback
	default:
		return Normal, Surface
	}
}

// Router holds the routing state shared by every caller of one facade.
// Concurrent calls may both observe Normal and both demote; that is harmless.
type Router struct {
	state    atomic.Int32
	logger   *slog.Logger
	onChange func(from, to State)
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the logger used for state changes.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithOnChange registers a callback invoked after every state change.
func WithOnChange(fn func(from, to State)) Option {
	return func(r *Router) { r.onChange = fn }
}

// NewRouter returns a Router in the Normal state.
func NewRouter(opts ...Option) *Router {
	r := &Router{logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// State returns the current routing state.
func (r *Router) State() State {
	return State(r.state.Load())
}

// Reset returns the router to Normal. Called on logout.
func (r *Router) Reset() {
	r.set(Normal)
}

func (r *Router) set(to State) {
	from := State(r.state.Swap(int32(to)))
	if from == to {
		return
	}
	if to == Demoted {
		r.logger.Warn("remote backend unreachable, switching to local store")
	} else {
		r.logger.Info("routing reset, remote backend will be tried again")
	}
	if r.onChange != nil {
		r.onChange(from, to)
	}
}

// Do runs one routed call. remoteFn performs the remote request; decode turns
// its success body into T; localFn answers from the local store.
// Unreachability is absorbed here and never returned to the caller.
func Do[T any](
	ctx context.Context,
	r *Router,
	remoteFn func(context.Context) remote.Outcome,
	decode func(remote.Outcome) (T, error),
	localFn func(context.Context) (T, error),
) (T, error) {
	if r.State() == Demoted {
		return localFn(ctx)
	}

	out := remoteFn(ctx)
	next, decision := Transition(Normal, out.Kind)
	if next != Normal {
		r.logger.Debug("remote attempt failed", "error", out.Err)
		r.set(next)
	}

	switch decision {
	case Accept:
		return decode(out)
	case Fallback:
		return localFn(ctx)
	default:
		var zero T
		return zero, out.AsError()
	}
}
