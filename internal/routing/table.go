package routing

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"math/bits"
	"net/netip"
	"strconv"
	"strings"
)

// ParseRouteTable parses the /proc/net/route format:
//
//	Iface Destination Gateway Flags RefCnt Use Metric Mask MTU Window IRTT
//	tun0  00000000    0100080A 0003  0      0   0      00000080 0 0 0
//
// Addresses are hex in host (little-endian) byte order. Malformed lines are skipped.
func ParseRouteTable(r io.Reader) ([]Route, error) {
	var routes []Route
	scanner := bufio.NewScanner(r)
	scanner.Scan() // skip header

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 8 {
			continue
		}

		dest, err := parseHexAddr(fields[1])
		if err != nil {
			continue
		}
		gw, err := parseHexAddr(fields[2])
		if err != nil {
			continue
		}
		mask, err := parseHexAddr(fields[7])
		if err != nil {
			continue
		}
		flags, err := strconv.ParseUint(fields[3], 16, 32)
		if err != nil {
			continue
		}
		metric, _ := strconv.Atoi(fields[6])

		m := mask.As4()
		ones := bits.OnesCount32(uint32(m[0])<<24 | uint32(m[1])<<16 | uint32(m[2])<<8 | uint32(m[3]))
		prefix, err := dest.Prefix(ones)
		if err != nil {
			continue
		}

		routes = append(routes, Route{
			Destination: prefix,
			Gateway:     gw,
			Interface:   fields[0],
			Metric:      metric,
			Flags:       uint32(flags),
		})
	}

	return routes, scanner.Err()
}

func parseHexAddr(s string) (netip.Addr, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 4 {
		return netip.Addr{}, fmt.Errorf("invalid address: %s", s)
	}
	// Linux stores IP in little-endian
	return netip.AddrFrom4([4]byte{b[3], b[2], b[1], b[0]}), nil
}
