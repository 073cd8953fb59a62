package stats

import (
	"fmt"
	"time"
)

// binaryUnits are the 1024-based prefixes used for sizes and rates.
var binaryUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB"}

const unitStep = 1024

// scaleBinary reduces v to a value that still prints below 1024 and returns
// it with its unit, or ok=false when v prints below 1 KiB. Whole bytes print
// with no decimals and scaled values with one, so the cut-offs sit half a
// printed digit under 1024.
func scaleBinary(v float64) (scaled float64, unit string, ok bool) {
	if v < unitStep-0.5 {
		return v, "", false
	}
	for _, u := range binaryUnits {
		v /= unitStep
		if v < unitStep-0.05 || u == binaryUnits[len(binaryUnits)-1] {
			return v, u, true
		}
	}
	return v, binaryUnits[len(binaryUnits)-1], true
}

// FormatBytes formats a byte count using binary units (KiB, MiB, GiB, ...).
func FormatBytes(bytes uint64) string {
	v, unit, ok := scaleBinary(float64(bytes))
	if !ok {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

// FormatRate formats a bytes-per-second rate using binary units.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec < 0 {
		bytesPerSec = 0
	}
	v, unit, ok := scaleBinary(bytesPerSec)
	if !ok {
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
	return fmt.Sprintf("%.1f %s/s", v, unit)
}

// FormatPacketRate formats packets per second with SI suffixes. As with
// scaleBinary, a value promotes once it would print as 1000 of its unit.
func FormatPacketRate(pps float64) string {
	switch {
	case pps >= 1e6-50:
		return fmt.Sprintf("%.1fM pkt/s", pps/1e6)
	case pps >= 1e3-0.5:
		return fmt.Sprintf("%.1fk pkt/s", pps/1e3)
	default:
		return fmt.Sprintf("%.0f pkt/s", pps)
	}
}

// FormatDuration formats a duration as "1h 23m 45s", "23m 45s" or "45s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}

	total := int(d / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
