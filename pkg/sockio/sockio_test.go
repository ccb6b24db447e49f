package sockio

import (
	"net"
	"testing"
	"time"

	"github.com/go-ipp/httpcore/pkg/httperr"
)

func TestReadWriteRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := New(client, time.Second)
	sc := New(server, time.Second)

	go func() {
		sc.Write([]byte("hello"))
	}()

	buf := make([]byte, 5)
	n, err := cc.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Errorf("got %q", buf[:n])
	}
}

func TestBlockingReadTimesOut(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := New(client, 50*time.Millisecond)
	buf := make([]byte, 16)
	_, err := cc.Read(buf)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if httperr.KindOf(err) != httperr.KindTimeout {
		t.Errorf("got kind %q, want timeout", httperr.KindOf(err))
	}
}

func TestNonBlockingReadPollsCallback(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := New(client, 200*time.Millisecond)
	cc.SetMode(NonBlocking)
	cc.pollSlice = 20 * time.Millisecond

	var polls int
	cc.SetWaitCallback(func(elapsed time.Duration) bool {
		polls++
		return true
	})

	buf := make([]byte, 16)
	_, err := cc.Read(buf)
	if err == nil {
		t.Fatal("expected eventual timeout")
	}
	if polls == 0 {
		t.Error("expected WaitCallback to be polled at least once")
	}
}

func TestNonBlockingCallbackCanAbandonWait(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := New(client, time.Second)
	cc.SetMode(NonBlocking)
	cc.pollSlice = 10 * time.Millisecond
	cc.SetWaitCallback(func(elapsed time.Duration) bool { return false })

	buf := make([]byte, 16)
	start := time.Now()
	_, err := cc.Read(buf)
	if err == nil {
		t.Fatal("expected error when callback abandons the wait")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("expected wait to be abandoned quickly, not run the full timeout")
	}
}

func TestWriteAfterCloseReportsPeerClosed(t *testing.T) {
	client, server := net.Pipe()
	server.Close()

	cc := New(client, time.Second)
	_, err := cc.Write([]byte("x"))
	if err == nil {
		t.Fatal("expected error writing to a closed peer")
	}
	if httperr.KindOf(err) != httperr.KindPeerClosed {
		t.Errorf("got kind %q, want peer_closed", httperr.KindOf(err))
	}
}

func TestSetTimeoutAndMode(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	cc := New(client, time.Second)
	cc.SetTimeout(2 * time.Second)
	if cc.Timeout() != 2*time.Second {
		t.Errorf("got %v, want 2s", cc.Timeout())
	}
	cc.SetMode(NonBlocking)
	if cc.Mode() != NonBlocking {
		t.Error("expected NonBlocking mode")
	}
}
