// Package field implements the fixed-index HTTP header table described by
// spec.md §3 "Field Enumeration" and §4.E "Field Table": a closed set of 42
// known headers stored by integer index, with comma-list append semantics
// for a documented subset and Host special-casing.
package field

import (
	"net"
	"sort"
	"strings"

	"github.com/go-ipp/httpcore/pkg/httperr"
)

// ID is the fixed index of a known header field.
type ID int

// The 42 known fields, in wire-name order. The first NumInline (27) carry
// the teacher's legacy short-inline-string storage; the rest are always
// heap-allocated. Order and count are part of the data model (spec.md §3).
const (
	AcceptLanguage ID = iota
	AcceptRanges
	Authorization
	Connection
	ContentEncoding
	ContentLanguage
	ContentLength
	ContentLocation
	ContentMD5
	ContentRange
	ContentType
	ContentVersion
	Date
	Host
	IfModifiedSince
	IfUnmodifiedSince
	KeepAlive
	LastModified
	Link
	Location
	Range
	Referer
	RetryAfter
	Server
	TransferEncoding
	Upgrade
	UserAgent // index 26: last of the 27 inline-eligible fields

	WWWAuthenticate
	AcceptEncoding
	Allow
	SetCookie
	Cookie
	Expect
	Origin
	AccessControlAllowCredentials
	AccessControlAllowHeaders
	AccessControlAllowMethods
	AccessControlAllowOrigin
	AccessControlExposeHeaders
	AccessControlMaxAge
	ContentSecurityPolicy
	StrictTransportSecurity

	numFields // sentinel, not a real field
)

// NumFields is the total count of known fields (42).
const NumFields = int(numFields)

// NumInline is the count of fields eligible for legacy short-inline storage
// (the first 27 indices, per spec.md §4.E).
const NumInline = int(UserAgent) + 1

// InlineCapacity is the byte capacity of the inline storage slot; a value
// that fits is stored without allocating, matching the teacher struct's
// aliased-inline/heap duality (spec.md Design Notes).
const InlineCapacity = 64

var names = [numFields]string{
	AcceptLanguage:                 "Accept-Language",
	AcceptRanges:                   "Accept-Ranges",
	Authorization:                  "Authorization",
	Connection:                     "Connection",
	ContentEncoding:                "Content-Encoding",
	ContentLanguage:                "Content-Language",
	ContentLength:                  "Content-Length",
	ContentLocation:                "Content-Location",
	ContentMD5:                     "Content-MD5",
	ContentRange:                   "Content-Range",
	ContentType:                    "Content-Type",
	ContentVersion:                 "Content-Version",
	Date:                           "Date",
	Host:                           "Host",
	IfModifiedSince:                "If-Modified-Since",
	IfUnmodifiedSince:              "If-Unmodified-Since",
	KeepAlive:                      "Keep-Alive",
	LastModified:                   "Last-Modified",
	Link:                           "Link",
	Location:                       "Location",
	Range:                          "Range",
	Referer:                        "Referer",
	RetryAfter:                     "Retry-After",
	Server:                         "Server",
	TransferEncoding:               "Transfer-Encoding",
	Upgrade:                        "Upgrade",
	UserAgent:                      "User-Agent",
	WWWAuthenticate:                "WWW-Authenticate",
	AcceptEncoding:                 "Accept-Encoding",
	Allow:                          "Allow",
	SetCookie:                      "Set-Cookie",
	Cookie:                         "Cookie",
	Expect:                         "Expect",
	Origin:                         "Origin",
	AccessControlAllowCredentials:  "Access-Control-Allow-Credentials",
	AccessControlAllowHeaders:      "Access-Control-Allow-Headers",
	AccessControlAllowMethods:      "Access-Control-Allow-Methods",
	AccessControlAllowOrigin:       "Access-Control-Allow-Origin",
	AccessControlExposeHeaders:     "Access-Control-Expose-Headers",
	AccessControlMaxAge:            "Access-Control-Max-Age",
	ContentSecurityPolicy:          "Content-Security-Policy",
	StrictTransportSecurity:        "Strict-Transport-Security",
}

var byLowerName map[string]ID

func init() {
	byLowerName = make(map[string]ID, numFields)
	for i, n := range names {
		byLowerName[strings.ToLower(n)] = ID(i)
	}
}

// Lookup resolves a wire header name to its ID, case-insensitively. The
// second return is false for unknown headers, which the field table
// ignores after basic validation per spec.md §3.
func Lookup(name string) (ID, bool) {
	id, ok := byLowerName[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// Name returns the canonical wire name for id.
func (id ID) Name() string {
	if id < 0 || int(id) >= NumFields {
		return ""
	}
	return names[id]
}

// isInline reports whether id is one of the first 27 legacy-inline indices.
func (id ID) isInline() bool {
	return int(id) < NumInline
}

// appendable is the documented subset of headers that concatenate repeat
// values with ", " instead of overwriting (spec.md §4.E). This is the
// explicit inclusion set from spec.md; Via and Warning are deliberately not
// included per the Open Question resolution in SPEC_FULL.md §9.
var appendable = map[ID]bool{
	AcceptEncoding:   true,
	AcceptLanguage:   true,
	AcceptRanges:     true,
	Allow:            true,
	Link:             true,
	TransferEncoding: true,
	Upgrade:          true,
	WWWAuthenticate:  true,
}

// IsAppendable reports whether id concatenates repeated values with ", ".
func (id ID) IsAppendable() bool {
	return appendable[id]
}

// slot holds one field's value. Values that fit InlineCapacity are kept in
// the fixed array without an allocation; longer values spill to heap. This
// mirrors the teacher's aliased inline/pointer duality, minus the aliasing
// (spec.md Design Notes: "the aliasing is a binary-compat artifact and not
// required by the protocol").
type slot struct {
	inline    [InlineCapacity]byte
	inlineLen int
	heap      string
	useHeap   bool
	set       bool
}

func (s *slot) value() string {
	if !s.set {
		return ""
	}
	if s.useHeap {
		return s.heap
	}
	return string(s.inline[:s.inlineLen])
}

func (s *slot) assign(v string, allowInline bool) {
	if allowInline && len(v) <= InlineCapacity {
		s.inlineLen = copy(s.inline[:], v)
		s.heap = ""
		s.useHeap = false
	} else {
		s.heap = v
		s.useHeap = true
		s.inlineLen = 0
	}
	s.set = true
}

func (s *slot) clear() {
	*s = slot{}
}

// Table is the 42-entry fixed header store for one Connection.
type Table struct {
	slots   [numFields]slot
	hostSet bool

	// defaults holds the three defaultable fields (Accept-Encoding,
	// Server, User-Agent); spec.md §3 restricts defaults to this set.
	defaults map[ID]string
}

// New returns an empty Table.
func New() *Table {
	return &Table{defaults: make(map[ID]string, 3)}
}

var defaultable = map[ID]bool{
	AcceptEncoding: true,
	Server:         true,
	UserAgent:      true,
}

// Get returns the current value of id: the explicit value if set, else its
// default if one was configured, else "".
func (t *Table) Get(id ID) string {
	if int(id) < 0 || int(id) >= NumFields {
		return ""
	}
	if t.slots[id].set {
		return t.slots[id].value()
	}
	return t.defaults[id]
}

// Set stores value at id, applying append semantics for the documented
// comma-list subset (spec.md §4.E) and special-casing Host bracketing.
func (t *Table) Set(id ID, value string) error {
	if int(id) < 0 || int(id) >= NumFields {
		return httperr.NewBadArg("unknown field id")
	}

	if id == Host {
		value = canonicalizeHostField(value)
		t.hostSet = true
	}

	s := &t.slots[id]
	if s.set && id.IsAppendable() && s.value() != "" && value != "" {
		value = s.value() + ", " + value
	}
	s.assign(value, id.isInline())
	return nil
}

// SetDefault configures a default value used when the caller never set id
// explicitly. Only Accept-Encoding, Server, and User-Agent are defaultable
// (spec.md §3); any other id is a BadArg error.
func (t *Table) SetDefault(id ID, value string) error {
	if !defaultable[id] {
		return httperr.NewBadArg("field is not defaultable: " + id.Name())
	}
	t.defaults[id] = value
	return nil
}

// Clear resets every explicit value; defaults survive. Idempotent: calling
// Clear twice is the same as calling it once (spec.md §8 property 4).
func (t *Table) Clear() {
	for i := range t.slots {
		t.slots[i].clear()
	}
	t.hostSet = false
}

// HostIsSet reports whether the Host field has an explicit value.
func (t *Table) HostIsSet() bool {
	return t.hostSet
}

// canonicalizeHostField applies the Host-header special cases from
// spec.md §4.E: bracket a bare IPv6 literal and strip a trailing dot.
func canonicalizeHostField(host string) string {
	host = strings.TrimSuffix(host, ".")
	if strings.HasPrefix(host, "[") {
		return host
	}
	if looksLikeBareIPv6(host) || (strings.Contains(host, ":") && net.ParseIP(host) != nil) {
		return "[" + host + "]"
	}
	return host
}

// looksLikeBareIPv6 matches spec.md §4.A's "four hex chars followed by a
// colon" heuristic for an unbracketed IPv6 literal (distinct from a
// host:port pair, which never has more than one colon before the port).
func looksLikeBareIPv6(host string) bool {
	if strings.Count(host, ":") < 2 {
		return false
	}
	i := strings.IndexByte(host, ':')
	if i != 4 {
		return false
	}
	for _, c := range host[:4] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Entries returns the set explicit (id, value) pairs in field-index order,
// for emitting request/response header lines.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, numFields)
	for i := range t.slots {
		if t.slots[i].set {
			v := t.slots[i].value()
			if v == "" {
				continue
			}
			out = append(out, Entry{ID: ID(i), Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entry is one set header field.
type Entry struct {
	ID    ID
	Value string
}
