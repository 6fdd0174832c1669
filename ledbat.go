// Package ledbat is the host-facing adapter for a LEDBAT-family,
// delay-based congestion controller: it translates a transport host's
// callbacks (init, release, ack-sample, cwnd-avoidance, ssthresh
// query) into calls on the frequency estimator, OWD calculator, the
// two bounded histories, and the window controller underneath.
package ledbat

import (
	"errors"

	"github.com/runZeroInc/ledbat/internal/config"
	"github.com/runZeroInc/ledbat/internal/flowstate"
	"github.com/runZeroInc/ledbat/internal/hostapi"
	"github.com/runZeroInc/ledbat/internal/window"
)

// Name is the ASCII identifier the controller is registered under, so
// a host can select it per-socket (spec.md §6).
const Name = "ledbat"

// ErrAllocFailed is returned from Init when a flow's history backing
// storage cannot be obtained (spec.md §7). The flow must fall back to
// the host's default congestion control.
var ErrAllocFailed = errors.New("ledbat: history allocation failed")

// ErrBadConfig is returned from Init when the process-wide
// configuration is invalid for a new flow: zero gain_den, or a length
// parameter that would produce a ring below the capacity-2 minimum
// (spec.md §7).
var ErrBadConfig = errors.New("ledbat: invalid configuration")

// Config is the process-wide tunable surface (spec.md §5, §9): Lengths
// is captured once per flow at Init; Live is read on every data-path
// call and may be changed concurrently with running flows.
type Config struct {
	Lengths config.Lengths
	Live    *config.Live
}

// DefaultConfig returns a Config seeded with spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		Lengths: config.Lengths{
			BaseHistoLen:   config.DefaultBaseHistoLen,
			NoiseFilterLen: config.DefaultNoiseFilterLen,
		},
		Live: config.NewLive(),
	}
}

// Controller is one flow's LEDBAT state, bound to the host that owns
// it. It has no goroutines and performs no blocking operation; every
// method must be called from the host's own per-flow serialization
// (spec.md §5).
type Controller struct {
	cfg   Config
	host  hostapi.Host
	state *flowstate.State
}

// Init allocates a flow's histories and returns a bound Controller.
// cfg.Live is retained by reference so later changes to its scalars
// take effect immediately for this flow, per spec.md §5; cfg.Lengths
// is copied by value and never revisited.
func Init(host hostapi.Host, cfg Config) (*Controller, error) {
	if !config.ValidGainDen(cfg.Live.GainDen()) {
		return nil, ErrBadConfig
	}
	if !config.ValidLength(cfg.Lengths.BaseHistoLen) || !config.ValidLength(cfg.Lengths.NoiseFilterLen) {
		return nil, ErrBadConfig
	}

	cwnd := host.SndCWND()
	state, err := flowstate.New(cfg.Lengths.BaseHistoLen, cfg.Lengths.NoiseFilterLen, cwnd, host.SndCWNDClamp())
	if err != nil {
		return nil, ErrAllocFailed
	}

	if cfg.Live.DoSS() != config.NoSlowStart {
		state.Window.CanSS = true
	}

	return &Controller{cfg: cfg, host: host, state: state}, nil
}

// FlowState exposes the Controller's underlying per-flow state, for
// callers that need to read it directly (e.g. a metrics collector
// snapshotting cwnd and delay estimates without going through the
// host callback surface).
func (c *Controller) FlowState() *flowstate.State { return c.state }

// Release frees a flow's history backing storage. The two ring buffers
// are plain Go slices (spec.md §9's "arena plus indices"), so Release
// is a no-op beyond dropping the Controller's own reference and
// letting the garbage collector reclaim it; it exists as a named
// lifecycle step to mirror the host callback surface (spec.md §6).
func (c *Controller) Release() {
	c.state = nil
}

// AckSample runs the per-sample acknowledgement path (spec.md §4.7) if
// rttUs is positive, as spec.md §6's host callback surface requires.
func (c *Controller) AckSample(rttUs int32) {
	if rttUs <= 0 {
		return
	}

	hz := c.host.HZ()
	srttMicros := c.host.SRTTMicros() >> 3
	srttTicks := uint32(uint64(srttMicros) * uint64(hz) / 1000000)
	c.state.AckSample(c.host.RcvTSVal(), c.host.RcvTSEcr(), hz, c.host.Now(), srttTicks)
}

// CongAvoid runs one cwnd-avoidance tick (spec.md §4.6). acked is the
// byte count the host reports acked since the last tick.
func (c *Controller) CongAvoid(acked uint32) {
	p := window.Params{
		Target:   c.cfg.Live.Target(),
		GainNum:  c.cfg.Live.GainNum(),
		GainDen:  c.cfg.Live.GainDen(),
		DoSS:     window.SlowStartMode(c.cfg.Live.DoSS()),
		SSThresh: c.cfg.Live.SSThresh(),
	}
	c.state.CongAvoid(p, controllerHost{c}, acked)
	c.host.SetSndCWND(c.state.Window.Cwnd)
}

// SSThresh runs the retransmit-threshold query (spec.md §4.8): the
// module-configured constant under SlowStartThreshold mode, otherwise
// the host's own default computation.
func (c *Controller) SSThresh() uint32 {
	if window.SlowStartMode(c.cfg.Live.DoSS()) == window.SlowStartThreshold {
		return c.cfg.Live.SSThresh()
	}
	return c.host.DefaultSSThresh()
}

// controllerHost adapts hostapi.Host plus the Controller's own window
// state to the narrower window.Host interface, so SlowStart calls land
// back on the real host while IsCwndLimited/DefaultSSThresh pass
// through unchanged.
type controllerHost struct {
	c *Controller
}

func (h controllerHost) IsCwndLimited() bool           { return h.c.host.IsCwndLimited() }
func (h controllerHost) SlowStart(acked uint32) uint32 { return h.c.host.SlowStart(acked) }
func (h controllerHost) DefaultSSThresh() uint32       { return h.c.host.DefaultSSThresh() }
func (h controllerHost) SndSSThresh() uint32           { return h.c.host.SndSSThresh() }
