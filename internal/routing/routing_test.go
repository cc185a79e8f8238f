package routing

import (
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTable = `Iface	Destination	Gateway 	Flags	RefCnt	Use	Metric	Mask		MTU	Window	IRTT
tun0	00000000	0100080A	0003	0	0	0	00000080	0	0	0
wlp2s0	00000000	0101A8C0	0003	0	0	600	00000000	0	0	0
tun0	00000080	0100080A	0003	0	0	0	00000080	0	0	0
tun0	0000080A	00000000	0001	0	0	0	0000FFFF	0	0	0
wlp2s0	0001A8C0	00000000	0001	0	0	600	00FFFFFF	0	0	0
garbage line
`

func TestParseRouteTable(t *testing.T) {
	routes, err := ParseRouteTable(strings.NewReader(sampleTable))
	require.NoError(t, err)
	require.Len(t, routes, 5)

	require.Equal(t, Route{
		Destination: netip.MustParsePrefix("0.0.0.0/1"),
		Gateway:     netip.MustParseAddr("10.8.0.1"),
		Interface:   "tun0",
		Flags:       FlagUp | FlagGateway,
	}, routes[0])
	require.Equal(t, netip.MustParsePrefix("0.0.0.0/0"), routes[1].Destination)
	require.Equal(t, 600, routes[1].Metric)
	require.Equal(t, netip.MustParsePrefix("128.0.0.0/1"), routes[2].Destination)
	require.Equal(t, netip.MustParsePrefix("10.8.0.0/16"), routes[3].Destination)
	require.Equal(t, netip.MustParsePrefix("192.168.1.0/24"), routes[4].Destination)
	require.Equal(t, "192.168.1.0/24 dev wlp2s0 metric 600", routes[4].String())
	require.Equal(t, "0.0.0.0/1 via 10.8.0.1 dev tun0 metric 0", routes[0].String())
}

func tableReader(text string) TableReader {
	return func() ([]Route, error) {
		return ParseRouteTable(strings.NewReader(text))
	}
}

func TestVerifierPresent(t *testing.T) {
	v := NewVerifierWithReader("tun0", tableReader(sampleTable))
	ok, err := v.RoutesPresent()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tun0", v.Interface())
}

func TestVerifierMissingHalf(t *testing.T) {
	lines := strings.Split(sampleTable, "\n")
	// drop the 128.0.0.0/1 entry
	table := strings.Join(append(lines[:3:3], lines[4:]...), "\n")

	v := NewVerifierWithReader("tun0", tableReader(table))
	ok, err := v.RoutesPresent()
	require.NoError(t, err)
	require.False(t, ok)

	routes, err := ParseRouteTable(strings.NewReader(table))
	require.NoError(t, err)
	require.Equal(t, []netip.Prefix{netip.MustParsePrefix("128.0.0.0/1")}, v.Missing(routes))
}

func TestVerifierWrongInterface(t *testing.T) {
	v := NewVerifierWithReader("wg0", tableReader(sampleTable))
	ok, err := v.RoutesPresent()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifierIgnoresRejectRoutes(t *testing.T) {
	routes := []Route{
		{Destination: SplitDefaultRoutes[0], Interface: "tun0", Flags: FlagUp | FlagReject},
		{Destination: SplitDefaultRoutes[1], Interface: "tun0", Flags: FlagUp},
	}
	v := NewVerifierWithReader("tun0", func() ([]Route, error) { return routes, nil })
	ok, err := v.RoutesPresent()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifierReadError(t *testing.T) {
	v := NewVerifierWithReader("tun0", func() ([]Route, error) { return nil, errors.New("permission denied") })
	ok, err := v.RoutesPresent()
	require.Error(t, err)
	require.False(t, ok)
}
