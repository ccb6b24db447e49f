// Package httpcore implements an HTTP/1.1 transport core: connection
// state machine, field table, transfer-coding engine, and compression
// splice, usable from both a client dialing out and a server accepting
// connections. Grounded on the teacher's Client/Transport split in
// pkg/client and pkg/transport, collapsed into a single Connection type
// since this module has no connection pool sitting above it.
package httpcore

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/go-ipp/httpcore/pkg/field"
	"github.com/go-ipp/httpcore/pkg/framing"
	"github.com/go-ipp/httpcore/pkg/iobuf"
	"github.com/go-ipp/httpcore/pkg/sockio"
	"github.com/go-ipp/httpcore/pkg/timing"
)

// Role distinguishes a client-initiated connection from a server-accepted one.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

// State is the connection's position in the request/response lifecycle,
// matching spec.md §2's state enumeration.
type State int

const (
	StateWaiting State = iota
	StateOptions
	StateGet
	StateGetSend
	StateHead
	StatePost
	StatePostRecv
	StatePostSend
	StatePut
	StatePutRecv
	StateDelete
	StateTrace
	StateConnect
	StateStatus
	StateUnknownMethod
	StateUnknownVersion
	StateError
)

// String renders a State for logging.
func (s State) String() string {
	names := [...]string{
		"WAITING", "OPTIONS", "GET", "GET_SEND", "HEAD", "POST", "POST_RECV",
		"POST_SEND", "PUT", "PUT_RECV", "DELETE", "TRACE", "CONNECT",
		"STATUS", "UNKNOWN_METHOD", "UNKNOWN_VERSION", "ERROR",
	}
	if int(s) < 0 || int(s) >= len(names) {
		return "UNKNOWN"
	}
	return names[s]
}

// KeepAlive selects whether the connection is reused across requests.
type KeepAlive int

const (
	KeepAliveUnknown KeepAlive = iota
	KeepAliveOn
	KeepAliveOff
)

// Encryption selects the transport core's TLS requirement level, matching
// the teacher's encryption-mode handling across upgradeTLS call sites.
type Encryption int

const (
	EncryptionIfRequested Encryption = iota
	EncryptionNever
	EncryptionRequired
	EncryptionAlways
)

// TransferEncoding selects how the body is framed on the wire.
type TransferEncoding int

const (
	TransferLength TransferEncoding = iota
	TransferChunked
)

// Connection is one HTTP/1.1 conversation over a single socket: no
// pooling, no HTTP/2, no multiplexing (spec.md Non-goals). It owns the
// field table, the buffered line/byte I/O, and the body reader/writer for
// whichever request or response is currently in flight.
type Connection struct {
	mu sync.Mutex

	role  Role
	state State

	raw  net.Conn
	sock *sockio.Conn
	in   *iobuf.Reader
	out  *iobuf.Writer

	fields *field.Table

	keepAlive  KeepAlive
	encryption Encryption
	blocking   bool

	httpMajor, httpMinor int
	method                string
	uri                   string
	statusCode            int
	statusText            string

	contentEncoding string
	acceptEncoding  string
	cookie          string

	bodyReader       *framing.Reader
	bodyWriter       *framing.Writer
	decompressor     io.Closer
	activeBodyReader io.Reader
	compressWriter   io.WriteCloser
	activeBodyWriter io.Writer

	host string
	port int

	lastActivity time.Time
	lastError    error

	expectContinueSent bool
	pendingStatusLine  string

	timer       *timing.Timer
	ttfbMarked  bool
}

// newConnection builds the shared Connection skeleton around an already
// dialed or accepted net.Conn.
func newConnection(role Role, conn net.Conn, timeout time.Duration) *Connection {
	sc := sockio.New(conn, timeout)
	c := &Connection{
		role:       role,
		state:      StateWaiting,
		raw:        conn,
		sock:       sc,
		in:         iobuf.NewReader(sc),
		out:        iobuf.NewWriter(sc),
		fields:     field.New(),
		keepAlive:  KeepAliveUnknown,
		encryption: EncryptionIfRequested,
		blocking:   true,
		httpMajor:    1,
		httpMinor:    1,
		lastActivity: time.Now(),
		timer:        timing.NewTimer(),
	}
	return c
}

// bufioReader exposes the connection's buffered reader to the framing and
// compress packages, which both need *bufio.Reader rather than iobuf.Reader.
func (c *Connection) bufioReader() *bufio.Reader {
	return c.in.Raw()
}
