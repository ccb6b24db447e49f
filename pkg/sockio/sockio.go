// Package sockio implements blocking and non-blocking I/O over a net.Conn,
// including the timeout callback that lets a caller poll and decide
// whether to keep waiting, and the one-time SIGPIPE suppression the
// teacher's transport performs before any socket is touched. Grounded on
// the teacher's connectTCP/keepalive handling in pkg/transport/transport.go,
// generalized from a single connect path into a reusable read/write/wait
// component.
package sockio

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-ipp/httpcore/pkg/httperr"
)

var ignoreSIGPIPEOnce sync.Once

// IgnoreSIGPIPE arranges for the process to ignore SIGPIPE once, so a
// write to a peer that has reset the connection surfaces as an EPIPE
// error instead of terminating the process. It is safe to call from
// multiple goroutines; the signal action is installed exactly once.
func IgnoreSIGPIPE() {
	ignoreSIGPIPEOnce.Do(func() {
		signal.Ignore(syscall.SIGPIPE)
	})
}

// WaitCallback is polled while waiting for a socket to become ready. It
// receives the elapsed wait time and returns false to abandon the wait,
// turning it into a Timeout error.
type WaitCallback func(elapsed time.Duration) bool

// Mode selects blocking vs. non-blocking wait semantics for a Conn.
type Mode int

const (
	// Blocking waits use a single deadline and return Timeout on expiry.
	Blocking Mode = iota
	// NonBlocking waits poll in short slices, invoking the WaitCallback
	// between polls so the caller can service other work.
	NonBlocking
)

// Conn wraps a net.Conn with the transport core's blocking/non-blocking
// read and write semantics.
type Conn struct {
	net.Conn

	mode       Mode
	timeout    time.Duration
	pollSlice  time.Duration
	onWait     WaitCallback
}

// New wraps conn in Blocking mode with the given timeout.
func New(conn net.Conn, timeout time.Duration) *Conn {
	IgnoreSIGPIPE()
	return &Conn{Conn: conn, mode: Blocking, timeout: timeout, pollSlice: 100 * time.Millisecond}
}

// SetMode switches between Blocking and NonBlocking wait semantics.
func (c *Conn) SetMode(mode Mode) {
	c.mode = mode
}

// Mode reports the current wait mode.
func (c *Conn) Mode() Mode {
	return c.mode
}

// SetTimeout sets the per-operation timeout budget.
func (c *Conn) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Timeout returns the configured timeout budget.
func (c *Conn) Timeout() time.Duration {
	return c.timeout
}

// SetWaitCallback installs the callback polled during a NonBlocking wait.
func (c *Conn) SetWaitCallback(cb WaitCallback) {
	c.onWait = cb
}

// Read performs a deadline-bounded read, retrying transparently on
// EINTR/EAGAIN per the teacher's socket-handling convention (Go's net
// package already retries EINTR internally; the retry loop here exists
// for the NonBlocking poll-and-callback path, where a timeout deadline
// expiring mid-poll must not itself be treated as the final error until
// the callback declines to continue).
func (c *Conn) Read(p []byte) (int, error) {
	start := time.Now()
	for {
		deadline := c.nextDeadline(start)
		if err := c.Conn.SetReadDeadline(deadline); err != nil {
			return 0, httperr.NewIO("read", err)
		}
		n, err := c.Conn.Read(p)
		if err == nil {
			return n, nil
		}
		if n > 0 {
			return n, nil
		}
		if isEOF(err) {
			return 0, httperr.NewPeerClosed("read", err)
		}
		if !isTimeout(err) {
			return 0, httperr.NewIO("read", err)
		}
		if c.mode == Blocking {
			return 0, httperr.NewTimeout("read", c.timeout)
		}
		if !c.pollContinue(start) {
			return 0, httperr.NewTimeout("read", c.timeout)
		}
	}
}

// Write performs a deadline-bounded write with the same retry semantics
// as Read.
func (c *Conn) Write(p []byte) (int, error) {
	start := time.Now()
	written := 0
	for written < len(p) {
		deadline := c.nextDeadline(start)
		if err := c.Conn.SetWriteDeadline(deadline); err != nil {
			if isBrokenPipe(err) {
				return written, httperr.NewPeerClosed("write", err)
			}
			return written, httperr.NewIO("write", err)
		}
		n, err := c.Conn.Write(p[written:])
		written += n
		if err == nil {
			continue
		}
		if isBrokenPipe(err) {
			return written, httperr.NewPeerClosed("write", err)
		}
		if !isTimeout(err) {
			return written, httperr.NewIO("write", err)
		}
		if c.mode == Blocking {
			return written, httperr.NewTimeout("write", c.timeout)
		}
		if !c.pollContinue(start) {
			return written, httperr.NewTimeout("write", c.timeout)
		}
	}
	return written, nil
}

// WaitReadable blocks until the connection has data available or the
// timeout/wait-callback budget is exhausted, without consuming any bytes.
// It is used by the server accept loop to detect an idle client before
// investing in a read.
//
// A *tls.Conn may already hold decrypted application bytes in its record
// layer from a prior read of a larger TLS record, with nothing new
// waiting on the underlying socket; an fd-level poll would then wait out
// the full timeout despite data being available. crypto/tls exposes no
// public API to query that buffered count directly (spec.md §4.C's
// pending(conn) -> bytes has no exact equivalent here), so for a
// *tls.Conn this always takes the zero-byte read-probe path below, which
// drains any already-buffered plaintext before it would touch the fd.
func (c *Conn) WaitReadable() error {
	_, isTLS := c.Conn.(*tls.Conn)
	sc, ok := c.Conn.(syscall.Conn)
	if !ok || isTLS {
		// No fd-level peek available, or the conn may hold buffered
		// plaintext the fd poll below can't see; fall back to a
		// zero-byte read probe.
		one := make([]byte, 1)
		if err := c.Conn.SetReadDeadline(c.nextDeadline(time.Now())); err != nil {
			return httperr.NewIO("wait_readable", err)
		}
		_, err := c.Conn.Read(one)
		return err
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return httperr.NewIO("wait_readable", err)
	}
	var ready bool
	var opErr error
	pollErr := raw.Read(func(fd uintptr) bool {
		ready = true
		return true
	})
	if pollErr != nil {
		opErr = pollErr
	}
	if !ready {
		return httperr.NewTimeout("wait_readable", c.timeout)
	}
	return opErr
}

func (c *Conn) nextDeadline(start time.Time) time.Time {
	if c.timeout <= 0 {
		return time.Time{}
	}
	if c.mode == Blocking {
		return start.Add(c.timeout)
	}
	slice := c.pollSlice
	if slice > c.timeout {
		slice = c.timeout
	}
	return time.Now().Add(slice)
}

// pollContinue is invoked when a non-blocking slice expires without
// progress; it asks the WaitCallback whether to keep going and enforces
// the overall timeout budget.
func (c *Conn) pollContinue(start time.Time) bool {
	elapsed := time.Since(start)
	if c.timeout > 0 && elapsed >= c.timeout {
		return false
	}
	if c.onWait == nil {
		return true
	}
	return c.onWait(elapsed)
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
