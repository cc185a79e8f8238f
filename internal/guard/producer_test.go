package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func level(n int) *int { return &n }

func TestProducerPolicy(t *testing.T) {
	cases := []struct {
		name   string
		level  int
		active bool
		want   Event
	}{
		{"full without tunnel", 4, false, EventDisconnect},
		{"portal without tunnel", 2, false, EventDisconnect},
		{"full with tunnel", 4, true, EventConnect},
		{"no connectivity", 1, false, EventConnect},
		{"unknown", 0, false, EventConnect},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &recorder{}
			p := NewNotificationProducer(&fakeProbe{active: tc.active}, q)

			ev, ok := p.Handle(context.Background(), Notification{Level: level(tc.level), ActiveChanged: true})
			require.True(t, ok)
			require.Equal(t, tc.want, ev)
			require.Equal(t, []Event{tc.want}, q.events)
		})
	}
}

func TestProducerIgnoresEmptyAndUnchanged(t *testing.T) {
	q := &recorder{}
	probe := &fakeProbe{active: true}
	p := NewNotificationProducer(probe, q)

	_, ok := p.Handle(context.Background(), Notification{})
	require.False(t, ok)

	_, ok = p.Handle(context.Background(), Notification{Level: level(4), ActiveChanged: true})
	require.True(t, ok)
	require.Equal(t, 1, probe.calls)

	// same level again, no delta
	_, ok = p.Handle(context.Background(), Notification{Level: level(4)})
	require.False(t, ok)

	// once the tunnel state is known, level-only changes reuse it
	_, ok = p.Handle(context.Background(), Notification{Level: level(3)})
	require.True(t, ok)
	require.Len(t, q.events, 2)
	require.Equal(t, 1, probe.calls, "level-only changes must not query the probe")
}

func TestProducerLevelIsSticky(t *testing.T) {
	q := &recorder{}
	probe := &fakeProbe{active: false}
	p := NewNotificationProducer(probe, q)

	p.Handle(context.Background(), Notification{Level: level(4)})
	ev, ok := p.Handle(context.Background(), Notification{ActiveChanged: true})
	require.True(t, ok)
	require.Equal(t, EventDisconnect, ev)

	lvl, known, active := p.Snapshot()
	require.Equal(t, 4, lvl)
	require.True(t, known)
	require.False(t, active)

	probe.active = true
	ev, _ = p.Handle(context.Background(), Notification{ActiveChanged: true})
	require.Equal(t, EventConnect, ev)

	// Level drops: tunnel state is kept from the last probe.
	ev, _ = p.Handle(context.Background(), Notification{Level: level(1)})
	require.Equal(t, EventConnect, ev)
	require.Equal(t, []Event{EventDisconnect, EventDisconnect, EventConnect, EventConnect}, q.events)
}

func TestProducerProbeFailureDropsNotification(t *testing.T) {
	q := &recorder{}
	var dropped []error
	p := NewNotificationProducer(&fakeProbe{failures: 1}, q)
	p.OnDrop(func(err error) { dropped = append(dropped, err) })

	_, ok := p.Handle(context.Background(), Notification{Level: level(4), ActiveChanged: true})
	require.False(t, ok)
	require.Empty(t, q.events)
	require.Len(t, dropped, 1)

	// The level was still recorded.
	lvl, known, _ := p.Snapshot()
	require.Equal(t, 4, lvl)
	require.True(t, known)
}

func TestProducerLevelChangeBeforeTunnelKnown(t *testing.T) {
	q := &recorder{}
	probe := &fakeProbe{failures: 2, active: true}
	p := NewNotificationProducer(probe, q)

	// Startup evaluation fails: the tunnel state stays undetermined.
	_, ok := p.Handle(context.Background(), Notification{Level: level(4), ActiveChanged: true})
	require.False(t, ok)

	// A level-only change must not guess "tunnel down"; it probes, and
	// drops the notification when the probe fails again.
	_, ok = p.Handle(context.Background(), Notification{Level: level(3)})
	require.False(t, ok)
	require.Equal(t, 2, probe.calls)
	require.Empty(t, q.events)

	ev, ok := p.Handle(context.Background(), Notification{Level: level(4)})
	require.True(t, ok)
	require.Equal(t, EventConnect, ev)
	require.Equal(t, 3, probe.calls)
	require.Equal(t, []Event{EventConnect}, q.events)
}

type blockingProbe struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProbe) TunnelActive(ctx context.Context) (bool, error) {
	close(b.entered)
	<-b.release
	return true, nil
}

func TestSnapshotDoesNotWaitForProbe(t *testing.T) {
	probe := &blockingProbe{entered: make(chan struct{}), release: make(chan struct{})}
	p := NewNotificationProducer(probe, &recorder{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Handle(context.Background(), Notification{Level: level(4), ActiveChanged: true})
	}()
	<-probe.entered

	snap := make(chan int, 1)
	go func() {
		lvl, _, _ := p.Snapshot()
		snap <- lvl
	}()
	select {
	case lvl := <-snap:
		require.Equal(t, 4, lvl)
	case <-time.After(time.Second):
		t.Fatal("Snapshot blocked while the probe was running")
	}

	close(probe.release)
	<-done
	_, _, active := p.Snapshot()
	require.True(t, active)
}
