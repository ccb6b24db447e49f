// Package constants defines shared default values for the transport core.
package constants

import "time"

// Connection timeouts, mirroring spec.md's blocking/non-blocking wait budgets.
const (
	DefaultBlockingTimeout    = 60 * time.Second
	DefaultNonBlockingTimeout = 10 * time.Second
	DefaultConnTimeout        = 10 * time.Second
	DefaultDNSTimeout         = 5 * time.Second
)

// Buffer sizing.
const (
	MinReadBufferSize      = 2 * 1024
	DefaultReadBufferSize  = 16 * 1024
	DefaultWriteBufferSize = 16 * 1024
	MaxHeaderBytes         = 64 * 1024
)

// Framing limits.
const (
	// MaxContentLength bounds a parsed Content-Length to guard against
	// absurd or hostile values; spec.md leaves this unspecified.
	MaxContentLength = 1024 * 1024 * 1024 * 1024 // 1TB
)

// Compression tuning, matching spec.md §4.G window-bits table.
const (
	DeflateEncodeWindowBits = -11
	GzipEncodeWindowBits    = 27
	DeflateDecodeWindowBits = -15
	GzipDecodeWindowBits    = 31
	CompressorMemLevel      = 7
)

// Field table sizing, matching spec.md §3's Field Enumeration.
const (
	NumInlineFields = 27
	NumFields       = 42
	InlineFieldSize = 64
)
