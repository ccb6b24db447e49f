// Package compress implements the Content-Encoding splice: raw-deflate and
// gzip compressors/decompressors selected by role and direction, plus
// q-value based Accept-Encoding negotiation. Grounded on klauspost/compress
// (github.com/klauspost/compress/flate, .../gzip), a dependency carried by
// nabbar-golib in the example pack; the teacher itself does no body
// compression, so the window-bits table and splice points are new work
// built in the teacher's style (small, explicit constructor functions).
package compress

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	kflate "github.com/klauspost/compress/flate"
	kgzip "github.com/klauspost/compress/gzip"

	"github.com/go-ipp/httpcore/pkg/constants"
	"github.com/go-ipp/httpcore/pkg/httperr"
)

// Codec names as they appear on the wire in Content-Encoding / Accept-Encoding.
const (
	Identity string = "identity"
	Deflate  string = "deflate"
	Gzip     string = "gzip"
)

// NewDecompressReader wraps src with a decompressing reader for the named
// codec. Deflate decode reads a raw deflate stream (no zlib header, like
// zlib's -15 window bits); gzip decode accepts the gzip container only
// (like zlib's 31), not a zlib-wrapped stream.
func NewDecompressReader(codec string, src io.Reader) (io.ReadCloser, error) {
	switch codec {
	case Deflate:
		fr := kflate.NewReader(src)
		return fr, nil
	case Gzip:
		gr, err := kgzip.NewReader(src)
		if err != nil {
			return nil, httperr.NewProtocol("decompress", "invalid gzip stream", err)
		}
		return gr, nil
	case Identity, "":
		return io.NopCloser(src), nil
	default:
		return nil, httperr.NewBadArg("unsupported content encoding: " + codec)
	}
}

// NewCompressWriter wraps dst with a compressing writer for the named
// codec: raw deflate for Deflate, the gzip container for Gzip, both at
// the library's default compression level. klauspost/compress exposes a
// level only, so the window-bits and memory-level constants in
// pkg/constants are not applied here.
func NewCompressWriter(codec string, dst io.Writer) (io.WriteCloser, error) {
	switch codec {
	case Deflate:
		fw, err := kflate.NewWriter(dst, kflate.DefaultCompression)
		if err != nil {
			return nil, httperr.NewIO("compress", err)
		}
		return fw, nil
	case Gzip:
		gw, err := kgzip.NewWriterLevel(dst, kgzip.DefaultCompression)
		if err != nil {
			return nil, httperr.NewIO("compress", err)
		}
		return gw, nil
	case Identity, "":
		return nopWriteCloser{dst}, nil
	default:
		return nil, httperr.NewBadArg("unsupported content encoding: " + codec)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// acceptEntry is one parsed Accept-Encoding token with its q-value.
type acceptEntry struct {
	codec string
	q     float64
}

// Negotiate parses an Accept-Encoding header value and picks the
// highest-q codec this transport core supports (identity, deflate,
// gzip), breaking ties by preferring gzip over deflate over identity
// (spec.md §4.G). A q of 0 excludes a codec. An empty or unparsable
// header negotiates to Identity.
func Negotiate(acceptEncoding string) string {
	if strings.TrimSpace(acceptEncoding) == "" {
		return Identity
	}
	entries := parseAcceptEncoding(acceptEncoding)
	if len(entries) == 0 {
		return Identity
	}

	rank := map[string]int{Gzip: 3, Deflate: 2, Identity: 1}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].q != entries[j].q {
			return entries[i].q > entries[j].q
		}
		return rank[entries[i].codec] > rank[entries[j].codec]
	})

	excluded := make(map[string]bool)
	var wildcardQ float64 = -1
	for _, e := range entries {
		if e.codec == "*" {
			wildcardQ = e.q
			continue
		}
		if e.q == 0 {
			excluded[e.codec] = true
		}
	}

	for _, e := range entries {
		if e.codec == "*" || e.q == 0 {
			continue
		}
		if e.codec == Gzip || e.codec == Deflate || e.codec == Identity {
			return e.codec
		}
	}

	if wildcardQ > 0 {
		for _, c := range []string{Gzip, Deflate} {
			if !excluded[c] {
				return c
			}
		}
	}
	if !excluded[Identity] {
		return Identity
	}
	return Identity
}

func parseAcceptEncoding(header string) []acceptEntry {
	var out []acceptEntry
	for _, tok := range strings.Split(header, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		parts := strings.Split(tok, ";")
		codec := strings.ToLower(strings.TrimSpace(parts[0]))
		q := 1.0
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			if v, ok := strings.CutPrefix(p, "q="); ok {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = parsed
				}
			}
		}
		out = append(out, acceptEntry{codec: codec, q: q})
	}
	return out
}

// BufferedDecompressReader is a convenience constructor that wraps the
// decompressor in a bufio.Reader sized per constants.DefaultReadBufferSize,
// for callers that want to Peek past the compression boundary.
func BufferedDecompressReader(codec string, src io.Reader) (*bufio.Reader, io.Closer, error) {
	rc, err := NewDecompressReader(codec, src)
	if err != nil {
		return nil, nil, err
	}
	return bufio.NewReaderSize(rc, constants.DefaultReadBufferSize), rc, nil
}
