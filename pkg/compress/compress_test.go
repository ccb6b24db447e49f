package compress

import (
	"bytes"
	"io"
	"testing"
)

func TestGzipRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCompressWriter(Gzip, &buf)
	if err != nil {
		t.Fatalf("NewCompressWriter: %v", err)
	}
	if _, err := w.Write([]byte("hello gzip world")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewDecompressReader(Gzip, &buf)
	if err != nil {
		t.Fatalf("NewDecompressReader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello gzip world" {
		t.Errorf("got %q", got)
	}
}

func TestDeflateRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCompressWriter(Deflate, &buf)
	if err != nil {
		t.Fatalf("NewCompressWriter: %v", err)
	}
	if _, err := w.Write([]byte("hello deflate world")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewDecompressReader(Deflate, &buf)
	if err != nil {
		t.Fatalf("NewDecompressReader: %v", err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello deflate world" {
		t.Errorf("got %q", got)
	}
}

func TestIdentityPassesThrough(t *testing.T) {
	r, err := NewDecompressReader(Identity, bytes.NewBufferString("raw bytes"))
	if err != nil {
		t.Fatal(err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "raw bytes" {
		t.Errorf("got %q", got)
	}
}

func TestUnsupportedCodecRejected(t *testing.T) {
	if _, err := NewDecompressReader("br", bytes.NewReader(nil)); err == nil {
		t.Error("expected brotli to be rejected as unsupported")
	}
}

func TestNegotiatePrefersHighestQ(t *testing.T) {
	got := Negotiate("deflate;q=0.5, gzip;q=0.9, identity;q=0.1")
	if got != Gzip {
		t.Errorf("got %q, want gzip", got)
	}
}

func TestNegotiateTieBreaksTowardGzip(t *testing.T) {
	got := Negotiate("deflate, gzip")
	if got != Gzip {
		t.Errorf("got %q, want gzip on tie", got)
	}
}

func TestNegotiateExcludesZeroQ(t *testing.T) {
	got := Negotiate("gzip;q=0, deflate")
	if got != Deflate {
		t.Errorf("got %q, want deflate since gzip excluded", got)
	}
}

func TestNegotiateEmptyHeaderIsIdentity(t *testing.T) {
	if got := Negotiate(""); got != Identity {
		t.Errorf("got %q, want identity", got)
	}
}
