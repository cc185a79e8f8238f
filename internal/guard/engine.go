package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/user/vpn-guard/internal/logger"
)

// ErrUnknownEvent is returned when the engine receives a value that no
// producer emits. It is fatal for the daemon.
var ErrUnknownEvent = errors.New("unknown guard event")

// RouteChecker reports whether the tunnel routes are installed.
type RouteChecker interface {
	RoutesPresent() (bool, error)
}

// Actions are the side effects the engine issues.
type Actions interface {
	Pause()
	Resume()
	// Alert starts the alert and reports whether it did; it does not block.
	Alert() bool
}

// Transition records one processed event.
type Transition struct {
	At     time.Time
	Event  Event
	From   State
	To     State
	Action Action

	RoutesChecked bool
	RoutesPresent bool

	// AlertRequested is set when the transition opens a disconnection episode.
	AlertRequested bool
	Alerted        bool

	// Episode identifies the disconnection episode the transition belongs to.
	Episode string
}

// Changed reports whether the state or the process was touched.
func (t Transition) Changed() bool {
	return t.From != t.To || t.Action != ActionNone
}

// Engine is the single consumer of the queue and the only owner of State.
type Engine struct {
	queue   *Queue
	routes  RouteChecker
	actions Actions

	state   State
	episode string

	observers  []func(Transition)
	now        func() time.Time
	newEpisode func() string
}

// NewEngine creates an engine in the unset state.
func NewEngine(q *Queue, routes RouteChecker, actions Actions) *Engine {
	return &Engine{
		queue:      q,
		routes:     routes,
		actions:    actions,
		now:        time.Now,
		newEpisode: func() string { return uuid.NewString() },
	}
}

// OnTransition registers fn to run after every processed event, on the
// consumer goroutine. Register observers before Run.
func (e *Engine) OnTransition(fn func(Transition)) {
	e.observers = append(e.observers, fn)
}

// State returns the current state. Call it from the consumer goroutine or after Run returns.
func (e *Engine) State() State {
	return e.state
}

// Run pops and handles events until ctx is done or a fatal error occurs.
func (e *Engine) Run(ctx context.Context) error {
	logger.Info("Guard engine started")
	for {
		ev, err := e.queue.Pop(ctx)
		if err != nil {
			return err
		}
		if _, err := e.Handle(ev); err != nil {
			return err
		}
	}
}

// Handle processes one event to completion, including its actions.
func (e *Engine) Handle(ev Event) (Transition, error) {
	if !ev.Valid() {
		logger.Error("Received unknown event %d in state %s", int(ev), e.state)
		return Transition{}, fmt.Errorf("%w: %d", ErrUnknownEvent, int(ev))
	}

	t := Transition{At: e.now(), Event: ev, From: e.state, To: e.state}

	switch ev {
	case EventDisconnect:
		t.To = StateDisconnected
		t.Action = ActionPause
		if e.state != StateDisconnected {
			t.AlertRequested = true
			e.episode = e.newEpisode()
		}
	case EventConnect:
		e.decideOnRoutes(&t)
	case EventTick:
		if e.state == StateConnectWhenSafe {
			e.decideOnRoutes(&t)
		}
	}

	e.state = t.To
	t.Episode = e.episode

	switch t.Action {
	case ActionPause:
		e.actions.Pause()
	case ActionResume:
		e.actions.Resume()
	}
	if t.AlertRequested {
		t.Alerted = e.actions.Alert()
	}

	e.log(t)
	if t.To == StateConnected {
		e.episode = ""
	}

	for _, fn := range e.observers {
		fn(t)
	}
	return t, nil
}

// decideOnRoutes resumes only when the tunnel routes are verified; a failed
// check counts as absent.
func (e *Engine) decideOnRoutes(t *Transition) {
	present, err := e.routes.RoutesPresent()
	if err != nil {
		logger.Warning("Route verification failed, treating routes as absent: %v", err)
		present = false
	}
	t.RoutesChecked = true
	t.RoutesPresent = present
	if present {
		t.To = StateConnected
		t.Action = ActionResume
	} else {
		t.To = StateConnectWhenSafe
		t.Action = ActionPause
	}
}

func (e *Engine) log(t Transition) {
	if !t.Changed() {
		logger.Debug("event=%s state=%s no-op", t.Event, t.From)
		return
	}

	routes := "-"
	if t.RoutesChecked {
		routes = "absent"
		if t.RoutesPresent {
			routes = "present"
		}
	}
	alert := "no"
	switch {
	case t.Alerted:
		alert = "yes"
	case t.AlertRequested:
		alert = "suppressed"
	}
	episode := t.Episode
	if episode == "" {
		episode = "-"
	}

	logger.Transition("event=%s %s -> %s action=%s routes=%s alert=%s episode=%s",
		t.Event, t.From, t.To, t.Action, routes, alert, episode)
}
