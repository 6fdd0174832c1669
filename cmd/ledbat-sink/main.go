// Command ledbat-sink is a trivial loopback byte sink (spec.md §1): it
// accepts connections, drains each one, and logs throughput. It exists
// purely as ledbat-source's counterpart for manual testing; it runs no
// congestion-control logic of its own, since a receiver has no cwnd.
package main

import (
	"flag"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:0", "address to accept connections on")
	flag.Parse()

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		logrus.Fatalf("listen %s: %v", *listen, err)
	}
	logrus.Infof("ledbat-sink: listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			logrus.WithError(err).Fatal("accept")
		}
		go serve(conn)
	}
}

func serve(conn net.Conn) {
	defer conn.Close()
	log := logrus.WithField("remote", conn.RemoteAddr())
	log.Info("accepted")

	buf := make([]byte, 64*1024)
	var total int64
	start := time.Now()
	lastReport := start

	for {
		n, err := conn.Read(buf)
		total += int64(n)
		if time.Since(lastReport) > time.Second {
			log.Infof("received %d bytes (%.1f KB/s)", total, float64(total)/1024/time.Since(start).Seconds())
			lastReport = time.Now()
		}
		if err != nil {
			log.WithError(err).Infof("closed after %d bytes", total)
			return
		}
	}
}
