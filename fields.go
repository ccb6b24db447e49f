package httpcore

import (
	"github.com/go-ipp/httpcore/pkg/field"
	"github.com/go-ipp/httpcore/pkg/httperr"
)

// GetField returns the current value of the named header field, or "" if
// unset. Unknown header names resolve to "" rather than an error, since
// the field table only tracks the 42 known fields (spec.md §3).
func (c *Connection) GetField(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := field.Lookup(name)
	if !ok {
		return ""
	}
	return c.fields.Get(id)
}

// SetField sets the named header field's value, applying the field
// table's append semantics for the documented comma-list subset. Setting
// Content-Encoding while a body is already in flight starts the
// compression splice immediately (spec.md §4.E), rather than waiting for
// the next Send/WriteResponse.
func (c *Connection) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := field.Lookup(name)
	if !ok {
		return httperr.NewBadArg("unknown header field: " + name)
	}
	if err := c.fields.Set(id, value); err != nil {
		return err
	}
	if id == field.ContentEncoding && c.bodyWriter != nil && c.compressWriter == nil {
		return c.startCompression(value)
	}
	return nil
}

// SetDefaultField configures a default for Accept-Encoding, Server, or
// User-Agent, used whenever the caller never sets the field explicitly
// before the next request/response is emitted.
func (c *Connection) SetDefaultField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := field.Lookup(name)
	if !ok {
		return httperr.NewBadArg("unknown header field: " + name)
	}
	return c.fields.SetDefault(id, value)
}

// ClearFields resets every explicit field value; configured defaults
// survive. Idempotent.
func (c *Connection) ClearFields() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fields.Clear()
}

// GetCookie returns the connection's owned Cookie string (spec.md §3),
// or "" if none has been set or received yet.
func (c *Connection) GetCookie() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cookie
}

// SetCookie replaces the connection's owned Cookie string wholesale.
// value is the raw cookie pair (e.g. "name=value"); WriteResponse applies
// the path/httponly/secure attributes at emission time (spec.md §4.H).
func (c *Connection) SetCookie(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cookie = value
}

// SetExpect sets the Expect request header, used to request a
// 100-continue handshake before the body is sent (request.go).
func (c *Connection) SetExpect(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.fields.Set(field.Expect, value)
}
