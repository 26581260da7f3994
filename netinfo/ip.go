package netinfo

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoAddress is returned when no interface carries a usable IPv4 address.
var ErrNoAddress = errors.New("IP could not be determined")

// Iface is the subset of an interface the address search needs.
type Iface struct {
	Name  string
	Flags net.Flags
	Addrs []net.Addr
}

// LocalIPv4 returns the first IPv4 address bound to a non-loopback interface.
func LocalIPv4() (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	list := make([]Iface, 0, len(ifaces))
	for _, ifc := range ifaces {
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		list = append(list, Iface{Name: ifc.Name, Flags: ifc.Flags, Addrs: addrs})
	}
	return FirstIPv4(list)
}

// FirstIPv4 scans interfaces in order and returns the first external IPv4 address.
func FirstIPv4(ifaces []Iface) (net.IP, error) {
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagLoopback != 0 || ifc.Flags&net.FlagUp == 0 {
			continue
		}
		for _, addr := range ifc.Addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			if v4 := ip.To4(); v4 != nil {
				return v4, nil
			}
		}
	}
	return nil, ErrNoAddress
}
