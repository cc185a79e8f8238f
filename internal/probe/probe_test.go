package probe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/require"

	"github.com/user/vpn-guard/internal/netmgr"
)

type fakeSource struct {
	profiles []netmgr.Profile
	active   []dbus.ObjectPath
	failures int // number of calls to fail before succeeding
	calls    int
	hang     bool // block until ctx is done
}

func (f *fakeSource) ListProfiles(ctx context.Context) ([]netmgr.Profile, error) {
	f.calls++
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.calls <= f.failures {
		return nil, errors.New("org.freedesktop.DBus.Error.NoReply")
	}
	return f.profiles, nil
}

func (f *fakeSource) ActiveProfilePaths(ctx context.Context) ([]dbus.ObjectPath, error) {
	return f.active, nil
}

func newSource(failures int, activeIDs ...string) *fakeSource {
	src := &fakeSource{
		failures: failures,
		profiles: []netmgr.Profile{
			{Path: "/org/freedesktop/NetworkManager/Settings/1", N: 1, ID: "Wired connection 1", Type: "802-3-ethernet"},
			{Path: "/org/freedesktop/NetworkManager/Settings/2", N: 2, ID: "tun0", Type: "vpn"},
		},
	}
	for _, id := range activeIDs {
		for _, p := range src.profiles {
			if p.ID == id {
				src.active = append(src.active, p.Path)
			}
		}
	}
	return src
}

func noSleep(p *Probe) *Probe {
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return p
}

func TestTunnelActive(t *testing.T) {
	p := noSleep(New(newSource(0, "Wired connection 1", "tun0"), "tun0", 2, time.Second))
	ok, err := p.TunnelActive(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	p = noSleep(New(newSource(0, "Wired connection 1"), "tun0", 2, time.Second))
	ok, err = p.TunnelActive(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSnapshotResolvesActiveSubset(t *testing.T) {
	src := newSource(0, "tun0")
	src.active = append(src.active, "/org/freedesktop/NetworkManager/Settings/99")

	snap, err := noSleep(New(src, "tun0", 0, 0)).Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Profiles, 2)
	require.Len(t, snap.Active, 1)
	require.Equal(t, "tun0", snap.Active[0].ID)
}

func TestRetriesWithinBound(t *testing.T) {
	src := newSource(2, "tun0")
	var delays []time.Duration
	var retried []int
	p := New(src, "tun0", 2, 250*time.Millisecond)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	p.OnRetry(func(attempt int, err error) { retried = append(retried, attempt) })

	ok, err := p.TunnelActive(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, src.calls)
	require.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, delays)
	require.Equal(t, []int{1, 2}, retried)
}

func TestRetriesExhausted(t *testing.T) {
	src := newSource(3, "tun0")
	p := noSleep(New(src, "tun0", 2, time.Second))

	_, err := p.TunnelActive(context.Background())
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorContains(t, err, "NoReply")
	require.Equal(t, 3, src.calls)
}

func TestCancelledDuringBackoff(t *testing.T) {
	src := newSource(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, "tun0", 2, time.Hour).Snapshot(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNegativeRetriesMeansSingleAttempt(t *testing.T) {
	src := newSource(1)
	_, err := noSleep(New(src, "tun0", -3, 0)).Snapshot(context.Background())
	require.ErrorIs(t, err, ErrExhausted)
	require.Equal(t, 1, src.calls)
}

func TestAttemptTimeoutBoundsHungCall(t *testing.T) {
	src := newSource(0, "tun0")
	src.hang = true
	p := noSleep(New(src, "tun0", 1, 0))
	p.SetAttemptTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := p.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 2, src.calls)
	require.Less(t, time.Since(start), 2*time.Second)
}
