package httpcore

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-ipp/httpcore/pkg/field"
	"github.com/go-ipp/httpcore/pkg/framing"
	"github.com/go-ipp/httpcore/pkg/httperr"
	"github.com/go-ipp/httpcore/pkg/timing"
	"github.com/go-ipp/httpcore/pkg/tlsadapter"
)

// Metrics returns the connection's accumulated DNS/TCP/TLS/TTFB timing
// breakdown (pkg/timing), grounded on the teacher's Response.Metrics
// field in pkg/client/client.go. The DNS phase covers only hostname
// canonicalization in ConnectClient; name resolution happens inside the
// dial and is counted in the TCP phase.
func (c *Connection) Metrics() timing.Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer.Metrics()
}

// State returns the connection's current state-machine position.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Version returns the negotiated HTTP major/minor version.
func (c *Connection) Version() (major, minor int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpMajor, c.httpMinor
}

// Blocking reports whether the connection is in blocking I/O mode.
func (c *Connection) Blocking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocking
}

// KeepAlive returns the connection's current keep-alive intent.
func (c *Connection) KeepAlive() KeepAlive {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keepAlive
}

// Encryption returns the connection's configured encryption mode.
func (c *Connection) Encryption() Encryption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encryption
}

// ContentLength returns the Content-Length field's parsed value, or -1
// if absent or not a valid integer.
func (c *Connection) ContentLength() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.fields.Get(field.ContentLength)
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// PendingWriteBytes returns the number of bytes buffered in the write
// side but not yet flushed to the socket.
func (c *Connection) PendingWriteBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Pending()
}

// ReadyReadBytes returns the number of bytes already buffered on the
// read side, available without blocking.
func (c *Connection) ReadyReadBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in.Buffered()
}

// RemainingBody reports how much of the current body is left to read.
// Valid only after Update/ReadRequest; returns Known(0) before then.
func (c *Connection) RemainingBody() framing.Remaining {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bodyReader == nil {
		return framing.Known(0)
	}
	return c.bodyReader.Remaining()
}

// IsChunked reports whether the current body uses chunked framing.
func (c *Connection) IsChunked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Contains(strings.ToLower(c.fields.Get(field.TransferEncoding)), "chunked")
}

// IsEncrypted reports whether the underlying socket is a *tls.Conn.
func (c *Connection) IsEncrypted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.raw.(*tls.Conn)
	return ok
}

// ActivityTime returns the timestamp of the last body Read/Write call or
// header block received on this connection, used by idle-timeout callers.
func (c *Connection) ActivityTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

// LastError returns the most recent error recorded against this
// connection, or nil. Update and ReadRequest record the error that ends
// their read (via recordError); other operations surface failures only
// through their return values. Long-running server loops find it useful
// for post-mortem logging after a state machine reaches StateError.
func (c *Connection) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

func (c *Connection) recordError(err error) error {
	if err != nil {
		c.lastError = err
	}
	return err
}

// Fd returns the connection's underlying file descriptor, for callers
// that need raw socket options (e.g. SO_LINGER) not exposed by net.Conn.
// Grounded on the teacher's pattern of exposing metadata.ConnectedIP/Port
// via ConnectionMetadata; this core exposes the syscall.Conn handle
// directly instead of replicating metadata fields one at a time.
func (c *Connection) Fd() (uintptr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sc, ok := c.raw.(syscall.Conn)
	if !ok {
		return 0, httperr.NewBadArg("underlying connection does not expose a file descriptor")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, httperr.NewIO("fd", err)
	}
	var fd uintptr
	ctrlErr := raw.Control(func(f uintptr) { fd = f })
	if ctrlErr != nil {
		return 0, httperr.NewIO("fd", ctrlErr)
	}
	return fd, nil
}

// PeerCertificates returns the certificate chain the remote party
// presented during the TLS handshake, or nil on a cleartext connection.
func (c *Connection) PeerCertificates() []*x509.Certificate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tlsadapter.PeerCertificates(c.raw)
}

// RemoteAddr returns the peer's network address.
func (c *Connection) RemoteAddr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw == nil {
		return nil
	}
	return c.raw.RemoteAddr()
}

// Method returns the request method (valid after Send or ReadRequest).
func (c *Connection) Method() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method
}

// URI returns the request target (valid after Send or ReadRequest).
func (c *Connection) URI() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uri
}
