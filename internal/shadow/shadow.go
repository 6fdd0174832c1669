//go:build linux

// Package shadow adapts a real TCP socket into a hostapi.Host so the
// controller can run "beside" the kernel's own congestion control on a
// live connection: it reads real TCP_INFO off the socket for RTT and the
// kernel's own ssthresh (reported as the host's ssthresh), while
// tracking its own shadow cwnd the way a host transport would, since a
// userspace process cannot install its own cwnd into the kernel's TCP
// stack (that would require replacing the host transport entirely,
// which is explicitly out of scope for the core).
//
// Two real constraints shape this package. First, fd recovery:
// net.TCPConn.SyscallConn gives safe access for simple cases, but this
// package also supports plain os.File-backed connections via
// github.com/higebu/netfd, mirroring the teacher's collector. Second,
// TCP_INFO as exposed by Linux's getsockopt(2) carries RTT and cwnd but
// not the raw timestamp-option echo pair the frequency estimator
// needs; those are internal kernel state never surfaced to userspace.
// This package synthesizes a consistent (rtsval, rtsecr) pair from the
// real sampled RTT, trading exactness for the ability to exercise the
// full ack path against a live socket.
package shadow

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/higebu/netfd"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/runZeroInc/ledbat/internal/kernel"
)

// HZ is the synthetic host tick rate this package runs its clock at;
// chosen to match the kernel's common CONFIG_HZ=1000 so host-tick
// arithmetic in the core reads the same as it would against a real
// transport.
const HZ = 1000

// Host observes one live TCP connection and satisfies hostapi.Host.
// It is not safe for concurrent use by multiple goroutines; like the
// core it expects to be serialized by its caller.
type Host struct {
	FlowID xid.ID

	conn net.Conn
	fd   int
	log  *logrus.Entry

	cwnd      uint32
	cwndClamp uint32
	ssthresh  uint32

	bytesInFlight uint32
	cwndLimit     uint32 // bytes in one shadow window (cwnd * segment size), for the IsCwndLimited heuristic

	epoch    time.Time
	lastInfo *unix.TCPInfo
}

// NewHost wraps conn, recovering its file descriptor via netfd so that
// both net.TCPConn values and raw os.File-backed connections work the
// same way the teacher's exporter.TCPInfoCollector.Add did.
func NewHost(conn net.Conn, cwndClamp uint32, logger *logrus.Logger) *Host {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := xid.New()
	h := &Host{
		FlowID:    id,
		conn:      conn,
		fd:        netfd.GetFdFromConn(conn),
		log:       logger.WithField("flow", id.String()),
		cwnd:      1,
		cwndClamp: cwndClamp,
		ssthresh:  0xffff,
		epoch:     time.Now(),
	}
	if !kernel.SupportsRichTCPInfo() {
		h.log.Warn("kernel older than the shadow observer's minimum version, or version unknown")
	}
	return h
}

// refresh re-reads TCP_INFO for the wrapped socket, logging and
// retaining the last successful sample on error rather than panicking
// (the controller must never be the reason a flow's data path dies).
func (h *Host) refresh() {
	info, err := unix.GetsockoptTCPInfo(h.fd, unix.IPPROTO_TCP, unix.TCP_INFO)
	if err != nil {
		h.log.WithError(err).Warn("getsockopt(TCP_INFO) failed, reusing last sample")
		return
	}
	h.lastInfo = info
}

func (h *Host) SndCWND() uint32      { return h.cwnd }
func (h *Host) SetSndCWND(c uint32)  { h.cwnd = c }
func (h *Host) SndCWNDClamp() uint32 { return h.cwndClamp }

// SndSSThresh reports the kernel's own ssthresh when available, falling
// back to the shadow's last configured value.
func (h *Host) SndSSThresh() uint32 {
	h.refresh()
	if h.lastInfo != nil {
		return uint32(h.lastInfo.Snd_ssthresh)
	}
	return h.ssthresh
}

// SRTTMicros returns the kernel's smoothed RTT, left-shifted by 3 to
// match the host's own internal fixed-point convention (spec.md §9),
// since AckSample always right-shifts it back by the same amount.
func (h *Host) SRTTMicros() uint32 {
	h.refresh()
	if h.lastInfo == nil {
		return 0
	}
	return uint32(h.lastInfo.Rtt) << 3
}

// RcvTSVal synthesizes the peer timestamp as the current host tick;
// RcvTSEcr carries the RTT-derived offset. See the package doc for why
// the real option echo isn't available from userspace.
func (h *Host) RcvTSVal() uint32 {
	return h.Now()
}

// RcvTSEcr synthesizes the echoed local timestamp as Now() minus half
// the most recently sampled RTT, so the pair encodes a plausible
// one-way delay for the core to chew on.
func (h *Host) RcvTSEcr() uint32 {
	h.refresh()
	halfRTTTicks := uint32(0)
	if h.lastInfo != nil {
		halfRTTMicros := uint64(h.lastInfo.Rtt) / 2
		halfRTTTicks = uint32(halfRTTMicros * HZ / 1000000)
	}
	now := h.Now()
	if halfRTTTicks >= now {
		return 0
	}
	return now - halfRTTTicks
}

func (h *Host) HZ() uint32 { return HZ }

// Now is a monotonic host tick derived from wall-clock time since this
// Host was created, at the configured HZ.
func (h *Host) Now() uint32 {
	return uint32(time.Since(h.epoch).Milliseconds() * HZ / 1000)
}

// IsCwndLimited approximates the host's application-limited detection:
// true whenever the caller has reported at least one full shadow
// window of bytes outstanding since the last reset via NoteSent.
func (h *Host) IsCwndLimited() bool {
	return h.cwndLimit > 0 && h.bytesInFlight >= h.cwndLimit
}

// NoteSent records bytes handed to the wrapped connection's Write,
// feeding IsCwndLimited. segSize is the host's estimated segment size
// (MSS), used to convert shadow cwnd (in segments) to bytes.
func (h *Host) NoteSent(n int, segSize uint32) {
	h.bytesInFlight += uint32(n)
	h.cwndLimit = h.cwnd * segSize
}

// NoteAcked clears bytes that have since been acknowledged.
func (h *Host) NoteAcked(n uint32) {
	if n > h.bytesInFlight {
		h.bytesInFlight = 0
		return
	}
	h.bytesInFlight -= n
}

// SlowStart is a direct port of the classic additive TCP slow-start
// step: grow cwnd by one segment per full segment of acked bytes,
// consuming bytes until either ssthresh is reached or acked runs out.
func (h *Host) SlowStart(acked uint32) uint32 {
	const segSize = 1460
	for acked >= segSize && h.cwnd < h.ssthresh {
		h.cwnd++
		acked -= segSize
	}
	return acked
}

// DefaultSSThresh halves the current shadow cwnd, floored at 2
// segments, matching the conventional post-loss ssthresh computation.
func (h *Host) DefaultSSThresh() uint32 {
	t := h.cwnd / 2
	if t < 2 {
		t = 2
	}
	return t
}

var (
	observersMu sync.Mutex
	observers   = map[string]*Host{}
)

// Track registers h for lookup by its flow ID, so a metrics collector
// or demo binary can enumerate live shadow observers without threading
// a reference through every call site.
func Track(h *Host) {
	observersMu.Lock()
	defer observersMu.Unlock()
	observers[h.FlowID.String()] = h
}

// Untrack removes h from the registry, typically on connection close.
func Untrack(h *Host) {
	observersMu.Lock()
	defer observersMu.Unlock()
	delete(observers, h.FlowID.String())
}

// All returns a snapshot of every currently tracked Host.
func All() []*Host {
	observersMu.Lock()
	defer observersMu.Unlock()
	out := make([]*Host, 0, len(observers))
	for _, h := range observers {
		out = append(out, h)
	}
	return out
}

// String renders a short diagnostic line.
func (h *Host) String() string {
	return fmt.Sprintf("flow=%s cwnd=%d ssthresh=%d local=%s remote=%s",
		h.FlowID, h.cwnd, h.ssthresh, h.conn.LocalAddr(), h.conn.RemoteAddr())
}
