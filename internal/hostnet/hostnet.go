// Package hostnet inspects the running host's network configuration to
// offer sensible defaults for the bridge prompts.
package hostnet

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Defaults are the detected bridge parameters. Any field may be empty
// when it could not be determined.
type Defaults struct {
	Interface  string
	Address    string
	Broadcast  string
	Netmask    string
	Gateway    string
	Nameserver string
}

// Detector reads host network state. Root is prefixed to the /proc and
// /etc paths it reads; Interfaces lists the host's interfaces.
type Detector struct {
	Root       string
	Interfaces func() ([]net.Interface, error)
	Addrs      func(net.Interface) ([]net.Addr, error)
}

// Detect inspects the local host.
func Detect() Defaults {
	return (&Detector{}).Detect()
}

// Detect returns whatever defaults can be determined. Detection failures
// are not errors; the operator is prompted regardless.
func (d *Detector) Detect() Defaults {
	var out Defaults

	if f, err := os.Open(d.path("/proc/net/route")); err == nil {
		out.Interface, out.Gateway = ParseDefaultRoute(f)
		f.Close()
	}
	if f, err := os.Open(d.path("/etc/resolv.conf")); err == nil {
		out.Nameserver = ParseNameserver(f)
		f.Close()
	}

	ipnet, name := d.primaryIPv4(out.Interface)
	if ipnet != nil {
		if out.Interface == "" {
			out.Interface = name
		}
		out.Address = ipnet.IP.String()
		out.Netmask = net.IP(ipnet.Mask).String()
		out.Broadcast = Broadcast(ipnet).String()
	}
	return out
}

func (d *Detector) path(p string) string {
	if d.Root == "" {
		return p
	}
	return filepath.Join(d.Root, p)
}

// primaryIPv4 returns the first IPv4 network of the preferred interface,
// or of the first non-loopback interface that is up.
func (d *Detector) primaryIPv4(preferred string) (*net.IPNet, string) {
	list := net.Interfaces
	if d.Interfaces != nil {
		list = d.Interfaces
	}
	addrs := func(ifc net.Interface) ([]net.Addr, error) { return ifc.Addrs() }
	if d.Addrs != nil {
		addrs = d.Addrs
	}

	ifaces, err := list()
	if err != nil {
		return nil, ""
	}

	var fallback *net.IPNet
	var fallbackName string
	for _, ifc := range ifaces {
		if ifc.Flags&net.FlagUp == 0 || ifc.Flags&net.FlagLoopback != 0 {
			continue
		}
		as, err := addrs(ifc)
		if err != nil {
			continue
		}
		for _, a := range as {
			ipnet, ok := a.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil {
				continue
			}
			v4 := &net.IPNet{IP: ipnet.IP.To4(), Mask: ipv4Mask(ipnet.Mask)}
			if ifc.Name == preferred {
				return v4, ifc.Name
			}
			if fallback == nil {
				fallback, fallbackName = v4, ifc.Name
			}
			break
		}
	}
	return fallback, fallbackName
}

func ipv4Mask(m net.IPMask) net.IPMask {
	if len(m) == net.IPv6len {
		return m[12:]
	}
	return m
}

// Broadcast returns the directed broadcast address of an IPv4 network.
func Broadcast(n *net.IPNet) net.IP {
	ip := n.IP.To4()
	mask := ipv4Mask(n.Mask)
	out := make(net.IP, net.IPv4len)
	for i := range out {
		out[i] = ip[i] | ^mask[i]
	}
	return out
}

// ParseDefaultRoute reads a /proc/net/route table and returns the
// interface and gateway of the default route.
func ParseDefaultRoute(r io.Reader) (iface, gateway string) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		gw, err := hexIPv4(fields[2])
		if err != nil || gw == "0.0.0.0" {
			continue
		}
		return fields[0], gw
	}
	return "", ""
}

// hexIPv4 decodes the little-endian hex encoding used by /proc/net/route.
func hexIPv4(h string) (string, error) {
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return "", fmt.Errorf("hostnet: bad route address %q: %w", h, err)
	}
	ip := make(net.IP, net.IPv4len)
	binary.LittleEndian.PutUint32(ip, uint32(v))
	return ip.String(), nil
}

// ParseNameserver returns the first IPv4 nameserver in a resolv.conf.
func ParseNameserver(r io.Reader) string {
	s := bufio.NewScanner(r)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 2 || fields[0] != "nameserver" {
			continue
		}
		if ip := net.ParseIP(fields[1]); ip != nil && ip.To4() != nil {
			return fields[1]
		}
	}
	return ""
}
