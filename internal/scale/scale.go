// Package scale derives the display-axis maximum ("stretchy" scaling) from
// the peak rate in an interface's retained window.
//
// The axis is recomputed from the current window every tick. Old peaks fall
// out of the window and take the axis down with them, so there is no separate
// decay logic.
package scale

import (
	"errors"
	"math"
)

const (
	// DefaultHeadroom is the margin above the window peak.
	DefaultHeadroom = 1.2
	// DefaultFloor is the smallest peak used, in bytes per second.
	DefaultFloor = 1.0
)

var (
	// ErrInvalidHeadroom is returned for a headroom below 1 or not finite.
	ErrInvalidHeadroom = errors.New("headroom must be a finite number >= 1")
	// ErrInvalidFloor is returned for a floor that is not a positive finite number.
	ErrInvalidFloor = errors.New("floor must be a finite number > 0")
)

// Peaker is anything that knows the highest rate in its window.
type Peaker interface {
	MaxRate() float64
}

// Model turns a window peak into an axis maximum.
type Model struct {
	// Headroom multiplies the peak so the top of the graph is never flush with the line.
	Headroom float64
	// Floor is the minimum peak, keeping idle interfaces away from a zero axis.
	Floor float64
}

// Default returns the model used when nothing is configured.
func Default() Model {
	return Model{Headroom: DefaultHeadroom, Floor: DefaultFloor}
}

// Validate checks Headroom and Floor.
func (m Model) Validate() error {
	if math.IsNaN(m.Headroom) || math.IsInf(m.Headroom, 0) || m.Headroom < 1 {
		return ErrInvalidHeadroom
	}
	if math.IsNaN(m.Floor) || math.IsInf(m.Floor, 0) || m.Floor <= 0 {
		return ErrInvalidFloor
	}
	return nil
}

// AxisMax returns max(Floor, p.MaxRate()) * Headroom.
// Zero-valued fields fall back to the defaults, so the result is always > 0.
func (m Model) AxisMax(p Peaker) float64 {
	return m.ForPeak(p.MaxRate())
}

// ForPeak is AxisMax for an already known peak.
func (m Model) ForPeak(peak float64) float64 {
	headroom, floor := m.Headroom, m.Floor
	if headroom < 1 {
		headroom = DefaultHeadroom
	}
	if floor <= 0 {
		floor = DefaultFloor
	}
	if math.IsNaN(peak) || peak < floor {
		peak = floor
	}
	return peak * headroom
}

// Normalize maps a rate onto [0, 1] of the axis.
func Normalize(rate, axisMax float64) float64 {
	if axisMax <= 0 || math.IsNaN(rate) || rate <= 0 {
		return 0
	}
	return min(rate/axisMax, 1)
}
