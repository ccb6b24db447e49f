package httpcore

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-ipp/httpcore/pkg/compress"
	"github.com/go-ipp/httpcore/pkg/field"
	"github.com/go-ipp/httpcore/pkg/framing"
	"github.com/go-ipp/httpcore/pkg/httperr"
)

// Update reads the status line and header block of an incoming response
// (client role) or request (server role handled separately in server.go),
// fills the field table, determines the body's transfer encoding, and
// arranges the compression splice when Content-Encoding names a codec
// this core supports. Grounded on the teacher's readResponse/readHeaders
// in pkg/client/client.go.
func (c *Connection) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingStatusLine != "" {
		c.markTTFB()
		if err := c.parseStatusLine(c.pendingStatusLine); err != nil {
			c.state = StateError
			return c.recordError(err)
		}
		c.pendingStatusLine = ""
	} else {
		line, err := c.in.ReadLine()
		c.markTTFB()
		if err != nil {
			c.state = StateError
			return c.recordError(err)
		}
		if err := c.parseStatusLine(line); err != nil {
			c.state = StateError
			return c.recordError(err)
		}
	}

	c.fields.Clear()
	if err := c.readFieldLines(); err != nil {
		c.state = StateError
		return c.recordError(err)
	}
	if v := c.fields.Get(field.SetCookie); v != "" {
		// Keep only the name=value pair; the attributes that follow the
		// first ';' are applied again by WriteResponse at emission time.
		if i := strings.IndexByte(v, ';'); i >= 0 {
			v = strings.TrimSpace(v[:i])
		}
		c.cookie = v
	}

	c.state = StateStatus
	c.lastActivity = time.Now()
	c.updateKeepAliveFromPeer()
	return c.prepareIncomingBody()
}

// updateKeepAliveFromPeer reflects the peer's Connection header into the
// connection's KeepAlive state, so KeepAlive() answers from what was
// actually negotiated rather than only what the local caller requested.
func (c *Connection) updateKeepAliveFromPeer() {
	switch strings.ToLower(c.fields.Get(field.Connection)) {
	case "close":
		c.keepAlive = KeepAliveOff
	case "keep-alive":
		c.keepAlive = KeepAliveOn
	}
}

// markTTFB records the time-to-first-byte once per response cycle.
func (c *Connection) markTTFB() {
	if !c.ttfbMarked {
		c.timer.EndTTFB()
		c.ttfbMarked = true
	}
}

func (c *Connection) parseStatusLine(line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return httperr.NewProtocol("read_status", "malformed status line: "+line, nil)
	}
	major, minor, ok := parseHTTPVersion(parts[0])
	if !ok {
		c.state = StateUnknownVersion
		return httperr.NewProtocol("read_status", "unsupported HTTP version: "+parts[0], nil)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return httperr.NewProtocol("read_status", "malformed status code: "+parts[1], nil)
	}
	c.httpMajor, c.httpMinor = major, minor
	c.statusCode = code
	if len(parts) == 3 {
		c.statusText = parts[2]
	}
	return nil
}

func parseHTTPVersion(tok string) (major, minor int, ok bool) {
	tok = strings.TrimPrefix(tok, "HTTP/")
	maj, min, found := strings.Cut(tok, ".")
	if !found {
		return 0, 0, false
	}
	majorN, err1 := strconv.Atoi(maj)
	minorN, err2 := strconv.Atoi(min)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if majorN != 1 {
		return majorN, minorN, false
	}
	return majorN, minorN, true
}

// readFieldLines reads "Name: value" lines (with RFC 7230 §3.2.4
// obs-fold continuation support) until a blank line, storing each into
// the field table by looked-up ID; unknown header names are dropped,
// matching spec.md §3's closed field set.
func (c *Connection) readFieldLines() error {
	var lastID field.ID
	haveLast := false
	for {
		line, err := c.in.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		if (line[0] == ' ' || line[0] == '\t') && haveLast {
			joined := c.fields.Get(lastID) + " " + strings.TrimSpace(line)
			// Reset first so an appendable field is replaced by the joined
			// value instead of having it appended a second time.
			_ = c.fields.Set(lastID, "")
			_ = c.fields.Set(lastID, joined)
			continue
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return httperr.NewProtocol("read_headers", "malformed header line: "+line, nil)
		}
		name := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		id, ok := field.Lookup(name)
		if !ok {
			haveLast = false
			continue
		}
		if err := c.fields.Set(id, value); err != nil {
			return err
		}
		lastID = id
		haveLast = true
	}
}

// prepareIncomingBody inspects Transfer-Encoding/Content-Length to select
// the framing.Reader, and wraps it in the negotiated decompressor when
// Content-Encoding names a supported codec.
func (c *Connection) prepareIncomingBody() error {
	te := strings.ToLower(c.fields.Get(field.TransferEncoding))
	cl := c.fields.Get(field.ContentLength)

	var bodyReader io.Reader
	switch {
	case strings.Contains(te, "chunked"):
		c.bodyReader = framing.NewReader(c.bufioReader(), framing.Chunked, 0)
	case cl != "":
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return httperr.NewFraming("read_headers", "invalid Content-Length: "+cl, nil)
		}
		c.bodyReader = framing.NewReader(c.bufioReader(), framing.FixedLength, n)
	case c.noBodyExpected():
		c.bodyReader = framing.NewReader(c.bufioReader(), framing.FixedLength, 0)
	default:
		c.bodyReader = framing.NewReader(c.bufioReader(), framing.UntilCloseEncoding, 0)
	}

	c.contentEncoding = strings.ToLower(c.fields.Get(field.ContentEncoding))
	if c.contentEncoding != "" && c.contentEncoding != compress.Identity {
		rc, err := compress.NewDecompressReader(c.contentEncoding, c.bodyReader)
		if err != nil {
			return err
		}
		c.decompressor = rc
		bodyReader = rc
	} else {
		bodyReader = c.bodyReader
	}
	c.activeBodyReader = bodyReader
	return nil
}

// noBodyExpected reports whether the current response/request cannot
// carry a body regardless of framing headers: HEAD responses and 1xx/
// 204/304 status codes (RFC 7230 §3.3.3).
func (c *Connection) noBodyExpected() bool {
	if c.method == "HEAD" {
		return true
	}
	if c.statusCode >= 100 && c.statusCode < 200 {
		return true
	}
	return c.statusCode == 204 || c.statusCode == 304
}

// Peek returns up to n bytes from the connection's read buffer without
// consuming them. The bytes are raw wire bytes: chunk-size lines of a
// chunked body are not removed, and the result is not limited to the
// current body. Over a compressed body Peek returns an error.
func (c *Connection) Peek(n int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decompressor != nil {
		return nil, httperr.NewProtocol("peek", "peek is unavailable over a compressed body", nil)
	}
	return c.in.Peek(n)
}

// Read consumes up to len(p) bytes of the body, transparently
// decompressing when a Content-Encoding splice is active.
func (c *Connection) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeBodyReader == nil {
		return 0, httperr.NewBadArg("Read called before Update")
	}
	n, err := c.activeBodyReader.Read(p)
	c.lastActivity = time.Now()
	return n, err
}

// Gets reads a single CRLF-terminated line from the body stream, useful
// for line-oriented bodies (e.g. multipart preambles); it does not
// decompress, matching spec.md's note that Gets operates on the raw wire
// bytes for protocols layered directly atop the transport core.
func (c *Connection) Gets() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.in.ReadLine()
}

// StatusCode returns the parsed response status code (valid after Update).
func (c *Connection) StatusCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusCode
}

// StatusText returns the response status reason phrase.
func (c *Connection) StatusText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusText
}
