package counter

import "fmt"

// Backend names accepted by Open.
const (
	BackendProcfs    = "procfs"
	BackendSysfs     = "sysfs"
	BackendGopsutil  = "gopsutil"
	BackendWireGuard = "wireguard"
)

// Backends lists every backend name accepted by Open.
var Backends = []string{BackendProcfs, BackendSysfs, BackendGopsutil, BackendWireGuard}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	ProcNetDev string
	SysfsNet   string
}

// Open builds the source named by opts.Backend. It does not touch the feed;
// an unreadable feed is reported by Snapshot.
func Open(opts Options) (Source, error) {
	switch opts.Backend {
	case BackendProcfs, "":
		return NewProcNetDevSource(opts.ProcNetDev), nil
	case BackendSysfs:
		return NewSysfsSource(opts.SysfsNet), nil
	case BackendGopsutil:
		return NewGopsutilSource(), nil
	case BackendWireGuard:
		return NewWireGuardSource(), nil
	default:
		return nil, fmt.Errorf("unknown counter source %q (want one of %v)", opts.Backend, Backends)
	}
}
