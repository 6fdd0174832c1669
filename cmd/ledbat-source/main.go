// Command ledbat-source is a trivial loopback byte source (spec.md
// §1): it dials a peer, writes a continuous byte stream, and drives a
// shadow-hosted Controller off the connection's live TCP_INFO so the
// cwnd trace in its log output reflects the algorithm running against
// a real socket.
package main

import (
	"flag"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/ledbat"
	"github.com/runZeroInc/ledbat/internal/shadow"
)

func main() {
	addr := flag.String("addr", "", "address to dial; a loopback listener is spun up if empty")
	clamp := flag.Uint("clamp", 1000, "shadow cwnd clamp, in segments")
	flag.Parse()

	target := *addr
	if target == "" {
		target = mustLoopbackSink()
	}

	conn, err := net.Dial("tcp", target)
	if err != nil {
		logrus.Fatalf("dial %s: %v", target, err)
	}
	defer conn.Close()

	host := shadow.NewHost(conn, uint32(*clamp), nil)
	shadow.Track(host)
	defer shadow.Untrack(host)

	ctl, err := ledbat.Init(host, ledbat.DefaultConfig())
	if err != nil {
		logrus.Fatalf("ledbat.Init: %v", err)
	}
	defer ctl.Release()

	buf := make([]byte, 1460)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		n, err := conn.Write(buf)
		if err != nil {
			logrus.WithError(err).Info("source: connection closed")
			return
		}
		host.NoteSent(n, 1460)

		select {
		case <-tick.C:
			ctl.AckSample(int32(host.SRTTMicros()))
			ctl.CongAvoid(uint32(n))
			host.NoteAcked(uint32(n))
			logrus.WithField("flow", host.FlowID).Infof("cwnd=%d", host.SndCWND())
		default:
		}
	}
}

// mustLoopbackSink spins up an in-process sink so ledbat-source is
// runnable with no arguments, the same "hallucinate a peer" shape the
// teacher's exporter example used for its own demo binary.
func mustLoopbackSink() string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		logrus.Fatalf("loopback listen: %v", err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				buf := make([]byte, 4096)
				for {
					if _, err := conn.Read(buf); err != nil {
						return
					}
				}
			}()
		}
	}()
	return ln.Addr().String()
}
