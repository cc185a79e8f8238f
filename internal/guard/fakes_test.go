package guard

import (
	"context"
	"errors"
	"sync"
)

type fakeRoutes struct {
	mu      sync.Mutex
	present bool
	err     error
	checks  int
}

func (f *fakeRoutes) RoutesPresent() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.present, f.err
}

func (f *fakeRoutes) set(present bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present = present
}

type fakeActions struct {
	mu      sync.Mutex
	calls   []string
	alerts  int
	playing bool // when true, Alert reports an alert already in flight
}

func (f *fakeActions) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "pause")
}

func (f *fakeActions) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "resume")
}

func (f *fakeActions) Alert() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playing {
		return false
	}
	f.alerts++
	f.calls = append(f.calls, "alert")
	return true
}

func (f *fakeActions) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeActions) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.alerts = 0
}

type fakeProbe struct {
	active   bool
	failures int
	calls    int
}

func (f *fakeProbe) TunnelActive(ctx context.Context) (bool, error) {
	f.calls++
	if f.calls <= f.failures {
		return false, errors.New("probe failed")
	}
	return f.active, nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Push(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}
