// Command ledbat-observe demonstrates the full shadow stack: it dials
// a self-hallucinated loopback peer (the same shape as the teacher's
// exporter_example1), runs a Controller against it via shadow.Host,
// and serves the resulting per-flow metrics over /metrics for
// Prometheus to scrape.
package main

import (
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/runZeroInc/ledbat"
	"github.com/runZeroInc/ledbat/internal/metrics"
	"github.com/runZeroInc/ledbat/internal/shadow"
)

// hallucinate dials a freshly-listened loopback peer and keeps it fed
// with a steady byte stream, exactly as the teacher's exporter example
// did to give its collector something to observe without requiring an
// external peer.
func hallucinate() net.Conn {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		logrus.Fatalf("loopback listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			logrus.Fatalf("loopback accept: %v", err)
		}
		buf := make([]byte, 4096)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		logrus.Fatalf("loopback dial: %v", err)
	}

	go func() {
		buf := make([]byte, 1460)
		for {
			if _, err := conn.Write(buf); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	return conn
}

func main() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	conn := hallucinate()
	host := shadow.NewHost(conn, 1000, nil)
	shadow.Track(host)

	cfg := ledbat.DefaultConfig()
	ctl, err := ledbat.Init(host, cfg)
	if err != nil {
		logrus.Fatalf("ledbat.Init: %v", err)
	}

	collector := metrics.NewCollector(
		"ledbat",
		[]string{"flow"},
		prometheus.Labels{"app": "ledbat-observe", "hostname": hostname},
		func(err error) { logrus.WithError(err).Warn("metrics collector") },
	)
	collector.Track(host.FlowID.String(), func() metrics.Sample {
		return metrics.Sample{Labels: []string{host.FlowID.String()}, State: ctl.FlowState()}
	})
	prometheus.MustRegister(collector)

	go driveController(host, ctl)

	http.Handle("/metrics", promhttp.Handler())
	logrus.Info("ledbat-observe: serving /metrics on :18080")
	if err := http.ListenAndServe(":18080", nil); err != nil {
		logrus.Fatalf("http: %v", err)
	}
}

// driveController periodically runs the ack-sample and cwnd-avoidance
// paths against the live shadow host, the same cadence a transport
// stack's own timer-driven congestion-avoidance callback would use.
func driveController(host *shadow.Host, ctl *ledbat.Controller) {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for range tick.C {
		host.NoteSent(1460, 1460)
		ctl.AckSample(int32(host.SRTTMicros()))
		ctl.CongAvoid(1460)
		host.NoteAcked(1460)
	}
}
