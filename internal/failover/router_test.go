package failover

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/houhousishu/houhou/internal/remote"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		state    State
		kind     remote.Kind
		next     State
		decision Decision
	}{
		{Normal, remote.Success, Normal, Accept},
		{Normal, remote.Unreachable, Demoted, Fallback},
		{Normal, remote.Rejected, Normal, Surface},
		{Normal, remote.Failed, Normal, Surface},
		{Demoted, remote.Success, Demoted, Local},
		{Demoted, remote.Unreachable, Demoted, Local},
		{Demoted, remote.Rejected, Demoted, Local},
	}
	for _, tc := range cases {
		next, d := Transition(tc.state, tc.kind)
		if next != tc.next || d != tc.decision {
			t.Errorf("Transition(%v, %v) = (%v, %v), want (%v, %v)",
				tc.state, tc.kind, next, d, tc.next, tc.decision)
		}
	}
}

// fakeBackend counts calls to each side of a routed operation.
type fakeBackend struct {
	mu          sync.Mutex
	outcome     remote.Outcome
	remoteCalls int
	localCalls  int
}

func (f *fakeBackend) remote(context.Context) remote.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCalls++
	return f.outcome
}

func (f *fakeBackend) local(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.localCalls++
	return "local", nil
}

func decodeString(out remote.Outcome) (string, error) {
	var s string
	err := out.Decode(&s)
	return s, err
}

func call(r *Router, f *fakeBackend) (string, error) {
	return Do(context.Background(), r, f.remote, decodeString, f.local)
}

func TestDo_SuccessDoesNotTouchLocal(t *testing.T) {
	r := NewRouter()
	f := &fakeBackend{outcome: remote.Outcome{Kind: remote.Success, Body: []byte(`"remote"`)}}

	got, err := call(r, f)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got != "remote" {
		t.Errorf("got %q, want %q", got, "remote")
	}
	if f.localCalls != 0 {
		t.Errorf("localCalls = %d, want 0", f.localCalls)
	}
	if r.State() != Normal {
		t.Errorf("State = %v, want normal", r.State())
	}
}

// TestDo_DemotionIsSticky covers failover stickiness: after one unreachable
// outcome every later call goes local until Reset.
func TestDo_DemotionIsSticky(t *testing.T) {
	r := NewRouter()
	f := &fakeBackend{outcome: remote.Outcome{Kind: remote.Unreachable, Err: errors.New("refused")}}

	got, err := call(r, f)
	if err != nil {
		t.Fatalf("unreachable must be absorbed, got %v", err)
	}
	if got != "local" {
		t.Errorf("got %q, want %q", got, "local")
	}
	if r.State() != Demoted {
		t.Fatalf("State = %v, want demoted", r.State())
	}

	// The remote recovers, but the router never probes it.
	f.outcome = remote.Outcome{Kind: remote.Success, Body: []byte(`"remote"`)}
	for i := 0; i < 5; i++ {
		if got, _ := call(r, f); got != "local" {
			t.Errorf("call %d got %q, want %q", i, got, "local")
		}
	}
	if f.remoteCalls != 1 {
		t.Errorf("remoteCalls = %d, want 1", f.remoteCalls)
	}

	r.Reset()
	if got, _ := call(r, f); got != "remote" {
		t.Errorf("after Reset got %q, want %q", got, "remote")
	}
	if f.remoteCalls != 2 {
		t.Errorf("remoteCalls = %d, want 2", f.remoteCalls)
	}
}

func TestDo_RejectionSurfacedWithoutDemotion(t *testing.T) {
	r := NewRouter()
	f := &fakeBackend{outcome: remote.Outcome{Kind: remote.Rejected, Status: 401, Detail: "bad credentials"}}

	_, err := call(r, f)
	var rej *remote.RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v, want *remote.RejectedError", err)
	}
	if rej.Detail != "bad credentials" {
		t.Errorf("Detail = %q, want %q", rej.Detail, "bad credentials")
	}
	if f.localCalls != 0 {
		t.Errorf("localCalls = %d, want 0", f.localCalls)
	}
	if r.State() != Normal {
		t.Errorf("State = %v, want normal", r.State())
	}
}

func TestRouter_OnChange(t *testing.T) {
	var changes []State
	r := NewRouter(WithOnChange(func(_, to State) { changes = append(changes, to) }))

	f := &fakeBackend{outcome: remote.Outcome{Kind: remote.Unreachable}}
	call(r, f)
	call(r, f)
	r.Reset()
	r.Reset()

	if len(changes) != 2 || changes[0] != Demoted || changes[1] != Normal {
		t.Errorf("changes = %v, want [demoted normal]", changes)
	}
}

// TestDo_ConcurrentDemotion runs many calls at once against an unreachable
// remote; all must answer locally and the router ends Demoted.
func TestDo_ConcurrentDemotion(t *testing.T) {
	r := NewRouter()
	f := &fakeBackend{outcome: remote.Outcome{Kind: remote.Unreachable}}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got, err := call(r, f); err != nil || got != "local" {
				t.Errorf("got (%q, %v), want (local, nil)", got, err)
			}
		}()
	}
	wg.Wait()

	if r.State() != Demoted {
		t.Errorf("State = %v, want demoted", r.State())
	}
	if f.localCalls != 16 {
		t.Errorf("localCalls = %d, want 16", f.localCalls)
	}
}
