//go:build linux

package routing

import "os"

const procRoute = "/proc/net/route"

// ReadRouteTable reads the IPv4 main routing table from procfs.
func ReadRouteTable() ([]Route, error) {
	f, err := os.Open(procRoute)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseRouteTable(f)
}
