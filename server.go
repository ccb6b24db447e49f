package httpcore

import (
	"crypto/tls"
	"strconv"
	"strings"
	"time"

	"github.com/go-ipp/httpcore/pkg/compress"
	"github.com/go-ipp/httpcore/pkg/field"
	"github.com/go-ipp/httpcore/pkg/framing"
	"github.com/go-ipp/httpcore/pkg/httperr"
)

// ReadRequest reads an incoming request line and header block (server
// role). It is Update's request-side counterpart: the wire shape of a
// request line ("METHOD uri HTTP/x.y") differs from a status line, so the
// two are kept as separate entry points rather than one polymorphic
// parser, matching the teacher's separate client/server read paths.
func (c *Connection) ReadRequest() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, err := c.in.ReadLine()
	if err != nil {
		c.state = StateError
		return c.recordError(err)
	}
	if err := c.parseRequestLine(line); err != nil {
		if c.state != StateUnknownMethod && c.state != StateUnknownVersion {
			c.state = StateError
		}
		return c.recordError(err)
	}

	c.fields.Clear()
	if err := c.readFieldLines(); err != nil {
		c.state = StateError
		return c.recordError(err)
	}

	c.lastActivity = time.Now()
	c.updateKeepAliveFromPeer()
	return c.prepareIncomingBody()
}

func (c *Connection) parseRequestLine(line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return httperr.NewProtocol("read_request", "malformed request line: "+line, nil)
	}
	major, minor, ok := parseHTTPVersion(parts[2])
	if !ok {
		c.state = StateUnknownVersion
		return httperr.NewProtocol("read_request", "unsupported HTTP version: "+parts[2], nil)
	}
	state, ok := methodStates[strings.ToUpper(parts[0])]
	if !ok {
		c.state = StateUnknownMethod
		return httperr.NewProtocol("read_request", "unsupported method: "+parts[0], nil)
	}
	c.method = strings.ToUpper(parts[0])
	c.uri = parts[1]
	c.httpMajor, c.httpMinor = major, minor
	c.state = state
	return nil
}

// WriteResponse writes a status line and the current field table as a
// response header block, synthesizing a Date header when the caller
// hasn't set one and adding the transport core's baseline clickjacking
// defense (a Content-Security-Policy frame-ancestors directive) when the
// caller hasn't already set one — a supplemented feature (see
// SPEC_FULL.md §7) absent from the teacher, which is client-only and
// never emits response headers of its own.
func (c *Connection) WriteResponse(statusCode int, statusText string, encoding TransferEncoding, length int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fields.Get(field.Date) == "" {
		_ = c.fields.Set(field.Date, time.Now().UTC().Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	}
	c.applyDefaultSecurityHeaders()

	version := "HTTP/" + strconv.Itoa(c.httpMajor) + "." + strconv.Itoa(c.httpMinor)
	if _, err := c.out.WriteString(version + " " + strconv.Itoa(statusCode) + " " + statusText + "\r\n"); err != nil {
		return err
	}

	if encoding == TransferChunked {
		_ = c.fields.Set(field.TransferEncoding, "chunked")
	} else {
		_ = c.fields.Set(field.ContentLength, strconv.FormatInt(length, 10))
	}
	c.applyKeepAliveField()

	if err := c.writeXFrameOptions(); err != nil {
		return err
	}
	if err := c.writeCookieHeader(); err != nil {
		return err
	}
	if err := c.writeFieldLines(); err != nil {
		return err
	}

	c.statusCode = statusCode
	c.statusText = statusText
	c.state = StateStatus

	if encoding == TransferChunked {
		c.bodyWriter = framing.NewWriter(c.out, framing.Chunked, 0)
	} else {
		c.bodyWriter = framing.NewWriter(c.out, framing.FixedLength, length)
	}
	c.activeBodyWriter = c.bodyWriter
	if enc := c.fields.Get(field.ContentEncoding); enc != "" && enc != compress.Identity {
		if err := c.startCompression(enc); err != nil {
			return err
		}
	}
	return nil
}

// applyDefaultSecurityHeaders sets the headers this transport core's
// server role always sends unless the caller already set them. A
// security header here is a fixed literal, not a policy engine: callers
// who need a different value simply SetField it before WriteResponse.
func (c *Connection) applyDefaultSecurityHeaders() {
	if c.fields.Get(field.ContentSecurityPolicy) == "" {
		_ = c.fields.Set(field.ContentSecurityPolicy, "frame-ancestors 'none'")
	}
}

// writeXFrameOptions emits the fixed click-jacking defense header that has
// no slot in the closed field table (spec.md §3/§4.H): X-Frame-Options is
// always DENY and is never caller-configurable.
func (c *Connection) writeXFrameOptions() error {
	_, err := c.out.WriteString("X-Frame-Options: DENY\r\n")
	return err
}

// writeCookieHeader emits the connection's owned Cookie string as a
// Set-Cookie response header with the path/httponly/secure attributes
// spec.md §4.H documents, or does nothing when no cookie is set.
func (c *Connection) writeCookieHeader() error {
	if c.cookie == "" {
		return nil
	}
	attrs := "path=/; httponly;"
	if _, ok := c.raw.(*tls.Conn); ok {
		attrs += " secure;"
	}
	_, err := c.out.WriteString(field.SetCookie.Name() + ": " + c.cookie + "; " + attrs + "\r\n")
	return err
}

// Flush finalizes and flushes any buffered response/request bytes,
// mirroring FlushWrite for the server response-writing path.
func (c *Connection) Flush() error {
	return c.FlushWrite()
}
