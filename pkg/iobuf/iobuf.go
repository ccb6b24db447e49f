// Package iobuf provides the line- and byte-oriented buffering the
// transport core reads and writes through: a read side that can return a
// single CRLF-terminated line or a raw byte count, and a write side that
// accumulates bytes until flushed. Grounded on the teacher's readLine/
// readHeaders buffering in pkg/client/client.go, generalized to a
// standalone component instead of being inlined into one request method.
package iobuf

import (
	"bufio"
	"io"

	"github.com/go-ipp/httpcore/pkg/constants"
	"github.com/go-ipp/httpcore/pkg/httperr"
)

// Reader wraps a net.Conn-like io.Reader with a bufio.Reader sized per
// constants.DefaultReadBufferSize, plus line and peek helpers.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r with the default read buffer size.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, constants.DefaultReadBufferSize)}
}

// ReadLine reads bytes up to and including the next "\n", strips a
// trailing "\r\n" or "\n", and returns the line without the terminator.
// It mirrors the teacher's readLine, which tolerates a bare "\n" from
// non-conformant peers.
func (r *Reader) ReadLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return "", httperr.NewPeerClosed("read_line", io.EOF)
		}
		if err == io.EOF {
			return trimCRLF(line), nil
		}
		return "", httperr.NewIO("read_line", err)
	}
	return trimCRLF(line), nil
}

func trimCRLF(s string) string {
	n := len(s)
	if n > 0 && s[n-1] == '\n' {
		n--
	}
	if n > 0 && s[n-1] == '\r' {
		n--
	}
	return s[:n]
}

// Peek returns the next n buffered bytes without consuming them. It never
// crosses the underlying buffer's capacity; callers that need more than
// constants.DefaultReadBufferSize bytes of lookahead get a BadArg error,
// matching spec.md's "clone-and-peek is unavailable" constraint for the
// compression splice (SPEC_FULL.md §6.G).
func (r *Reader) Peek(n int) ([]byte, error) {
	b, err := r.br.Peek(n)
	if err != nil && err != io.EOF {
		if err == bufio.ErrBufferFull {
			return nil, httperr.NewBadArg("peek exceeds read buffer capacity")
		}
		return nil, httperr.NewIO("peek", err)
	}
	return b, nil
}

// ReadFull reads exactly len(buf) bytes into buf.
func (r *Reader) ReadFull(buf []byte) (int, error) {
	n, err := io.ReadFull(r.br, buf)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return n, httperr.NewPeerClosed("read", err)
		}
		return n, httperr.NewIO("read", err)
	}
	return n, nil
}

// Read satisfies io.Reader by delegating to the buffered reader, so a
// Reader can be handed directly to io.Copy and similar stdlib helpers.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.br.Read(p)
	if err != nil && err != io.EOF {
		return n, httperr.NewIO("read", err)
	}
	return n, err
}

// Buffered returns the number of bytes currently held in the read buffer,
// used by Connection.ReadyReadBytes (spec.md §6).
func (r *Reader) Buffered() int {
	return r.br.Buffered()
}

// Raw exposes the underlying bufio.Reader so a body-framing layer can
// read from the exact same buffer the line reader just used, instead of
// wrapping it in a second buffering layer.
func (r *Reader) Raw() *bufio.Reader {
	return r.br
}

// Writer accumulates outgoing bytes until FlushWrite is called, mirroring
// the teacher's write-then-flush request construction.
type Writer struct {
	bw *bufio.Writer
}

// NewWriter wraps w with the default write buffer size.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, constants.DefaultWriteBufferSize)}
}

// Write buffers p for a later Flush.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.bw.Write(p)
	if err != nil {
		return n, httperr.NewIO("write", err)
	}
	return n, nil
}

// WriteString buffers s for a later Flush.
func (w *Writer) WriteString(s string) (int, error) {
	n, err := w.bw.WriteString(s)
	if err != nil {
		return n, httperr.NewIO("write", err)
	}
	return n, nil
}

// Flush pushes any buffered bytes to the underlying writer.
func (w *Writer) Flush() error {
	if err := w.bw.Flush(); err != nil {
		return httperr.NewIO("flush_write", err)
	}
	return nil
}

// Pending returns the number of bytes currently buffered and not yet
// flushed, used by Connection.PendingWriteBytes (spec.md §6).
func (w *Writer) Pending() int {
	return w.bw.Buffered()
}
