package counter

import "strings"

// Kind is a coarse interface category derived from the interface name.
type Kind string

// Interface kinds.
const (
	KindLoopback Kind = "loopback"
	KindVirtual  Kind = "virtual"
	KindDocker   Kind = "docker"
	KindWireless Kind = "wireless"
	KindWired    Kind = "wired"
	KindBridge   Kind = "bridge"
	KindTunnel   Kind = "tunnel"
	KindUnknown  Kind = "unknown"
)

// Classify guesses the kind of an interface from its name.
// Order matters: "virbr0" is virtual, not a bridge; "wg0" is a tunnel, not wireless.
func Classify(name string) Kind {
	n := strings.ToLower(name)
	switch {
	case n == "lo" || strings.HasPrefix(n, "lo:"):
		return KindLoopback
	case hasAnyPrefix(n, "veth", "virbr"):
		return KindVirtual
	case strings.HasPrefix(n, "docker"):
		return KindDocker
	case isTunnel(n):
		return KindTunnel
	case strings.HasPrefix(n, "w"):
		return KindWireless
	case hasAnyPrefix(n, "eth", "en"):
		return KindWired
	case strings.HasPrefix(n, "br"):
		return KindBridge
	default:
		return KindUnknown
	}
}

// IsDockerBridge reports whether traffic on the interface is seen from the
// containers' side, where receive and transmit read inverted.
func IsDockerBridge(name string) bool {
	return strings.HasPrefix(name, "docker") || strings.HasPrefix(name, "br-")
}

// isTunnel matches VPN and tunnel devices: openfortivpn creates ppp* or tun*,
// WireGuard wg*, GlobalProtect gpd*.
func isTunnel(name string) bool {
	return hasAnyPrefix(name, "ppp", "tun", "tap", "wg", "gpd")
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
