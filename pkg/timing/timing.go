// Package timing measures the phases of establishing and using a
// Connection: DNS lookup, TCP connect, TLS handshake, and time to first
// body byte. Adapted from the teacher's pkg/timing/timing.go, trimmed of
// its deprecated duplicate fields (DNS/TCP/TLS/Total) since this module
// has no prior release to stay binary-compatible with.
package timing

import (
	"fmt"
	"time"
)

// Metrics captures the timing breakdown for one connection's lifetime.
type Metrics struct {
	DNSLookup    time.Duration
	TCPConnect   time.Duration
	TLSHandshake time.Duration
	TTFB         time.Duration
	TotalTime    time.Duration
}

// Timer accumulates phase start/end marks for a single Connection.
type Timer struct {
	start     time.Time
	dnsStart  time.Time
	dnsEnd    time.Time
	tcpStart  time.Time
	tcpEnd    time.Time
	tlsStart  time.Time
	tlsEnd    time.Time
	ttfbStart time.Time
	ttfbEnd   time.Time
}

// NewTimer starts a timing session anchored at the current time.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) StartDNS()  { t.dnsStart = time.Now() }
func (t *Timer) EndDNS()    { t.dnsEnd = time.Now() }
func (t *Timer) StartTCP()  { t.tcpStart = time.Now() }
func (t *Timer) EndTCP()    { t.tcpEnd = time.Now() }
func (t *Timer) StartTLS()  { t.tlsStart = time.Now() }
func (t *Timer) EndTLS()    { t.tlsEnd = time.Now() }
func (t *Timer) StartTTFB() { t.ttfbStart = time.Now() }
func (t *Timer) EndTTFB()   { t.ttfbEnd = time.Now() }

// Metrics computes the elapsed duration of each marked phase.
func (t *Timer) Metrics() Metrics {
	m := Metrics{TotalTime: time.Since(t.start)}
	if !t.dnsStart.IsZero() && !t.dnsEnd.IsZero() {
		m.DNSLookup = t.dnsEnd.Sub(t.dnsStart)
	}
	if !t.tcpStart.IsZero() && !t.tcpEnd.IsZero() {
		m.TCPConnect = t.tcpEnd.Sub(t.tcpStart)
	}
	if !t.tlsStart.IsZero() && !t.tlsEnd.IsZero() {
		m.TLSHandshake = t.tlsEnd.Sub(t.tlsStart)
	}
	if !t.ttfbStart.IsZero() && !t.ttfbEnd.IsZero() {
		m.TTFB = t.ttfbEnd.Sub(t.ttfbStart)
	}
	return m
}

// ConnectionTime returns the total time spent establishing the
// connection (DNS + TCP + TLS), before any request was sent.
func (m Metrics) ConnectionTime() time.Duration {
	return m.DNSLookup + m.TCPConnect + m.TLSHandshake
}

func (m Metrics) String() string {
	return fmt.Sprintf("dns=%v tcp=%v tls=%v ttfb=%v total=%v",
		m.DNSLookup, m.TCPConnect, m.TLSHandshake, m.TTFB, m.TotalTime)
}
