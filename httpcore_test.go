package httpcore

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"
)

// TestClientServerRoundTrip exercises ConnectClient/Send/FlushWrite/Update/
// Read against AcceptServer/ReadRequest/WriteResponse over a real loopback
// TCP connection, grounded on the teacher's integration test style in
// tests/integration/client_test.go: a goroutine-based fake peer, plain
// net/testing, no mocking framework.
func TestClientServerRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	serverDone := make(chan error, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		sc, err := AcceptServer(conn, ServerConfig{IOTimeout: 2 * time.Second})
		if err != nil {
			serverDone <- err
			return
		}
		if err := sc.ReadRequest(); err != nil {
			serverDone <- err
			return
		}
		if sc.URI() != "/hello" {
			serverDone <- fmt.Errorf("unexpected URI: %q", sc.URI())
			return
		}
		body := make([]byte, 64)
		n, _ := io.ReadFull(sc, body[:5])
		_ = n

		resp := []byte("pong")
		if err := sc.WriteResponse(200, "OK", TransferLength, int64(len(resp))); err != nil {
			serverDone <- err
			return
		}
		if _, err := sc.Write(resp); err != nil {
			serverDone <- err
			return
		}
		if err := sc.Flush(); err != nil {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cc, err := ConnectClient(ctx, ClientConfig{
		Host:      "127.0.0.1",
		Port:      addr.Port,
		ConnTimeout: time.Second,
		IOTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("ConnectClient: %v", err)
	}
	defer cc.Close()

	if err := cc.Send("GET", "/hello", TransferLength, 5); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := cc.Write([]byte("ping!")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := cc.FlushWrite(); err != nil {
		t.Fatalf("FlushWrite: %v", err)
	}

	if err := cc.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if cc.StatusCode() != 200 {
		t.Errorf("got status %d, want 200", cc.StatusCode())
	}

	got, err := io.ReadAll(cc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "pong" {
		t.Errorf("got body %q, want pong", got)
	}

	if err := <-serverDone; err != nil {
		t.Fatalf("server goroutine: %v", err)
	}
}

func TestChunkedClientServerRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	serverDone := make(chan error, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		sc, err := AcceptServer(conn, ServerConfig{IOTimeout: 2 * time.Second})
		if err != nil {
			serverDone <- err
			return
		}
		if err := sc.ReadRequest(); err != nil {
			serverDone <- err
			return
		}
		if err := sc.WriteResponse(200, "OK", TransferChunked, 0); err != nil {
			serverDone <- err
			return
		}
		sc.Write([]byte("chunk-one-"))
		sc.Write([]byte("chunk-two"))
		if err := sc.Flush(); err != nil {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cc, err := ConnectClient(ctx, ClientConfig{
		Host:      "127.0.0.1",
		Port:      addr.Port,
		ConnTimeout: time.Second,
		IOTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("ConnectClient: %v", err)
	}
	defer cc.Close()

	if err := cc.Send("GET", "/stream", TransferLength, 0); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := cc.FlushWrite(); err != nil {
		t.Fatalf("FlushWrite: %v", err)
	}
	if err := cc.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !cc.IsChunked() {
		t.Error("expected response to be detected as chunked")
	}

	got, err := io.ReadAll(cc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "chunk-one-chunk-two" {
		t.Errorf("got %q", got)
	}

	if err := <-serverDone; err != nil {
		t.Fatalf("server goroutine: %v", err)
	}
}

// TestCookieRoundTrip exercises the owned Cookie string (spec.md §3):
// a server that calls SetCookie before WriteResponse emits a literal
// Set-Cookie line with the fixed path/httponly attributes, and the client
// observes it wholesale through GetCookie after Update.
func TestCookieRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	serverDone := make(chan error, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		sc, err := AcceptServer(conn, ServerConfig{IOTimeout: 2 * time.Second})
		if err != nil {
			serverDone <- err
			return
		}
		if err := sc.ReadRequest(); err != nil {
			serverDone <- err
			return
		}
		sc.SetCookie("session=abc123")
		if err := sc.WriteResponse(200, "OK", TransferLength, 0); err != nil {
			serverDone <- err
			return
		}
		if err := sc.Flush(); err != nil {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cc, err := ConnectClient(ctx, ClientConfig{
		Host:        "127.0.0.1",
		Port:        addr.Port,
		ConnTimeout: time.Second,
		IOTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("ConnectClient: %v", err)
	}
	defer cc.Close()

	if cc.GetCookie() != "" {
		t.Fatalf("expected no cookie before Update, got %q", cc.GetCookie())
	}

	if err := cc.Send("GET", "/login", TransferLength, 0); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := cc.FlushWrite(); err != nil {
		t.Fatalf("FlushWrite: %v", err)
	}
	if err := cc.Update(); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := cc.GetCookie(); got != "session=abc123" {
		t.Errorf("got cookie %q, want session=abc123", got)
	}

	if err := <-serverDone; err != nil {
		t.Fatalf("server goroutine: %v", err)
	}
}
