// Package config separates the controller's two tunable surfaces: an
// immutable snapshot of the length parameters captured once at flow
// init, and an atomically-readable struct of hot-path scalars that may
// change for the life of a process without resizing any live history.
package config

import "sync/atomic"

// SlowStartMode mirrors window.SlowStartMode at the configuration
// boundary, so this package has no dependency on internal/window.
type SlowStartMode int32

const (
	NoSlowStart SlowStartMode = iota
	SlowStart
	SlowStartThreshold
)

// Defaults match spec.md §6's configuration table.
const (
	DefaultBaseHistoLen   = 10
	DefaultNoiseFilterLen = 4
	DefaultTarget         = 100
	DefaultGainNum        = 1
	DefaultGainDen        = 1
	DefaultDoSS           = NoSlowStart
	DefaultSSThresh       = 65535
)

// Lengths is captured once per flow at init time; changing the
// process-wide defaults afterward never resizes an already-allocated
// flow's histories (spec.md §5, §9).
type Lengths struct {
	BaseHistoLen   uint32
	NoiseFilterLen uint32
}

// Live holds the scalars read on every data-path call. Each field is a
// separate atomic so a writer can update one tunable without blocking
// readers of the others; there is no cross-field consistency
// requirement (spec.md §5: "read at each use").
type Live struct {
	target   atomic.Uint32
	gainNum  atomic.Uint32
	gainDen  atomic.Uint32
	doSS     atomic.Int32
	ssThresh atomic.Uint32
}

// NewLive builds a Live snapshot seeded with the package defaults. The
// zero value of Live is usable but reads back gain_den=0, which would
// make every flow reject BadConfig; callers should always start from
// NewLive (or Store explicit values) rather than a bare zero Live.
func NewLive() *Live {
	l := &Live{}
	l.target.Store(DefaultTarget)
	l.gainNum.Store(DefaultGainNum)
	l.gainDen.Store(DefaultGainDen)
	l.doSS.Store(int32(DefaultDoSS))
	l.ssThresh.Store(DefaultSSThresh)
	return l
}

func (l *Live) Target() uint32        { return l.target.Load() }
func (l *Live) GainNum() uint32       { return l.gainNum.Load() }
func (l *Live) GainDen() uint32       { return l.gainDen.Load() }
func (l *Live) DoSS() SlowStartMode   { return SlowStartMode(l.doSS.Load()) }
func (l *Live) SSThresh() uint32      { return l.ssThresh.Load() }

func (l *Live) SetTarget(v uint32)      { l.target.Store(v) }
func (l *Live) SetGainNum(v uint32)     { l.gainNum.Store(v) }
func (l *Live) SetGainDen(v uint32)     { l.gainDen.Store(v) }
func (l *Live) SetDoSS(v SlowStartMode) { l.doSS.Store(int32(v)) }
func (l *Live) SetSSThresh(v uint32)    { l.ssThresh.Store(v) }

// ValidGainDen reports whether g is usable as a gain denominator.
// spec.md §7 classifies zero (or negative, not representable here since
// the field is unsigned) gain_den as BadConfig, to be rejected at
// init/parameter-set time rather than surfacing a division at runtime.
func ValidGainDen(g uint32) bool { return g != 0 }

// ValidLength reports whether a history length parameter yields a ring
// capacity (len+1) that satisfies the bounded-history invariant len>=2.
func ValidLength(n uint32) bool { return n >= 1 }
