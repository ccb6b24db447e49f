package httpcore

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-ipp/httpcore/pkg/addrlist"
	"github.com/go-ipp/httpcore/pkg/constants"
	"github.com/go-ipp/httpcore/pkg/field"
	"github.com/go-ipp/httpcore/pkg/httperr"
	"github.com/go-ipp/httpcore/pkg/iobuf"
	"github.com/go-ipp/httpcore/pkg/sockio"
	"github.com/go-ipp/httpcore/pkg/timing"
	"github.com/go-ipp/httpcore/pkg/tlsadapter"
)

// ClientConfig parameterizes ConnectClient, collapsing the teacher's
// Options struct down to the fields this transport core's scope still
// needs (no HTTP/2 settings, no connection-pool knobs).
type ClientConfig struct {
	Host string
	Port int

	Encryption Encryption
	TLS        tlsadapter.ClientConfig

	Proxy *addrlist.ProxyConfig

	ConnTimeout time.Duration
	IOTimeout   time.Duration
}

// ConnectClient dials Host:Port (through Proxy if set), performs the TLS
// upgrade immediately when Encryption is Always, and returns a Connection
// in StateWaiting ready to send a request. Grounded on the teacher's
// Client.Do connect step in pkg/client/client.go and Transport.Connect in
// pkg/transport/transport.go.
func ConnectClient(ctx context.Context, cfg ClientConfig) (*Connection, error) {
	timer := timing.NewTimer()

	timer.StartDNS()
	host, err := addrlist.CanonicalizeHost(cfg.Host)
	timer.EndDNS()
	if err != nil {
		return nil, err
	}

	connTimeout := cfg.ConnTimeout
	if connTimeout <= 0 {
		connTimeout = addrlist.DefaultConnTimeout
	}

	timer.StartTCP()
	conn, err := addrlist.Dial(ctx, addrlist.Target{Host: cfg.Host, Port: cfg.Port, Proxy: cfg.Proxy}, connTimeout)
	timer.EndTCP()
	if err != nil {
		return nil, err
	}

	ioTimeout := cfg.IOTimeout
	if ioTimeout <= 0 {
		ioTimeout = constants.DefaultBlockingTimeout
	}

	c := newConnection(RoleClient, conn, ioTimeout)
	c.timer = timer
	c.host = host
	c.port = cfg.Port
	c.encryption = cfg.Encryption
	_ = c.fields.Set(field.Host, hostFieldValue(host, cfg.Port))

	if cfg.Encryption == EncryptionAlways {
		timer.StartTLS()
		err := c.upgradeToTLS(cfg.TLS)
		timer.EndTLS()
		if err != nil {
			conn.Close()
			return nil, err
		}
	}
	return c, nil
}

// hostFieldValue renders the Host header value, including the port
// whenever one is set; this core has no notion of a "default scheme
// port" since it is scheme-agnostic at the connection layer.
func hostFieldValue(host string, port int) string {
	if port == 0 {
		return host
	}
	return net.JoinHostPort(trimBrackets(host), strconv.Itoa(port))
}

func trimBrackets(host string) string {
	if len(host) >= 2 && host[0] == '[' && host[len(host)-1] == ']' {
		return host[1 : len(host)-1]
	}
	return host
}

// ServerConfig parameterizes AcceptServer.
type ServerConfig struct {
	Encryption Encryption
	TLS        tlsadapter.ServerConfig
	IOTimeout  time.Duration
}

// AcceptServer wraps an already-accepted net.Conn (from net.Listener.Accept)
// into a server-role Connection in StateWaiting, ready to read a request.
// If cfg.Encryption is Always, the TLS handshake runs immediately;
// otherwise the connection starts in cleartext and may later upgrade via
// the RFC 2817 in-band path (tlsupgrade.go).
func AcceptServer(conn net.Conn, cfg ServerConfig) (*Connection, error) {
	ioTimeout := cfg.IOTimeout
	if ioTimeout <= 0 {
		ioTimeout = constants.DefaultBlockingTimeout
	}

	if cfg.Encryption == EncryptionAlways {
		tc, err := tlsadapter.Accept(conn, cfg.TLS)
		if err != nil {
			conn.Close()
			return nil, err
		}
		conn = tc
	}

	c := newConnection(RoleServer, conn, ioTimeout)
	c.encryption = cfg.Encryption
	return c, nil
}

// Reconnect closes the current socket (if any) and dials a fresh one to
// the same host/port, preserving the field table and the configured
// encryption mode setting. The new socket is cleartext: no TLS handshake
// is run on it, whatever the encryption mode. It does not preserve
// in-flight request/response state; callers must be in StateWaiting or
// StateError.
func (c *Connection) Reconnect(ctx context.Context, connTimeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateWaiting && c.state != StateError {
		return httperr.NewBadArg("reconnect requires a connection in WAITING or ERROR state")
	}
	if c.raw != nil {
		c.raw.Close()
	}
	if connTimeout <= 0 {
		connTimeout = addrlist.DefaultConnTimeout
	}

	conn, err := addrlist.Dial(ctx, addrlist.Target{Host: c.host, Port: c.port}, connTimeout)
	if err != nil {
		return err
	}

	timeout := c.sock.Timeout()
	fields := c.fields
	host, port, role, enc := c.host, c.port, c.role, c.encryption

	*c = *newConnection(role, conn, timeout)
	// The copy above replaced the held mutex with an unlocked one; re-lock
	// it so the deferred Unlock stays balanced.
	c.mu.Lock()
	c.fields = fields
	c.host, c.port, c.encryption = host, port, enc
	return nil
}

// Close releases the underlying socket without attempting a graceful
// shutdown of any in-flight body.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.raw == nil {
		return nil
	}
	err := c.raw.Close()
	c.state = StateWaiting
	return err
}

// Shutdown finishes any pending write (flushing buffered bytes) before
// closing the socket, so a peer mid-read sees a clean TCP FIN rather than
// a truncated body.
func (c *Connection) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out != nil {
		c.out.Flush()
	}
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

// SetBlocking switches the connection between blocking and non-blocking
// I/O wait semantics (pkg/sockio.Mode).
func (c *Connection) SetBlocking(blocking bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocking = blocking
	if blocking {
		c.sock.SetMode(sockio.Blocking)
	} else {
		c.sock.SetMode(sockio.NonBlocking)
	}
}

// SetTimeout sets the per-operation I/O timeout budget.
func (c *Connection) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sock.SetTimeout(d)
}

// SetEncryption changes the connection's required encryption level for
// subsequent operations. It does not itself trigger a handshake; see
// tlsupgrade.go for the in-band upgrade path.
func (c *Connection) SetEncryption(mode Encryption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encryption = mode
}

// SetKeepAlive overrides the connection's keep-alive intent for the next
// request/response it emits.
func (c *Connection) SetKeepAlive(ka KeepAlive) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keepAlive = ka
}

// upgradeToTLS performs the in-band handshake and rewires the
// connection's socket/buffer stack onto the resulting *tls.Conn.
func (c *Connection) upgradeToTLS(cfg tlsadapter.ClientConfig) error {
	tc, err := tlsadapter.Upgrade(c.raw, cfg, c.host)
	if err != nil {
		return err
	}
	c.raw = tc
	c.sock = sockio.New(tc, c.sock.Timeout())
	c.in = iobuf.NewReader(c.sock)
	c.out = iobuf.NewWriter(c.sock)
	return nil
}
