package netutil

import (
	"errors"
	"net"
	"net/netip"
)

// LookupIPFunc is swapped out in tests.
var LookupIPFunc = net.LookupIP

// ResolveIPv4 resolves the given target (hostname or IP string) and returns
// its first IPv4 address. IPv6 literals and IPv6-only hosts are errors.
func ResolveIPv4(target string) (netip.Addr, error) {
	if ip, err := netip.ParseAddr(target); err == nil {
		if ip.Is4() || ip.Is4In6() {
			return ip.Unmap(), nil
		}
		return netip.Addr{}, errors.New("IPv6 addresses are not supported")
	}

	ips, err := LookupIPFunc(target)
	if err != nil {
		return netip.Addr{}, err
	}
	sawV6 := false
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			addr, _ := netip.AddrFromSlice(v4)
			return addr, nil
		}
		sawV6 = true
	}
	if sawV6 {
		return netip.Addr{}, errors.New("hostname resolves only to IPv6 addresses; IPv6 is not supported")
	}
	return netip.Addr{}, errors.New("no A records found for host")
}
