package httperr

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestErrorMessageIncludesKindAndHost(t *testing.T) {
	err := NewTLS("example.com", 443, errors.New("cert expired"))
	msg := err.Error()
	if !contains(msg, "tls_failure") || !contains(msg, "example.com:443") {
		t.Errorf("unexpected message: %q", msg)
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewIO("read", cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestIsMatchesSameKindOnly(t *testing.T) {
	a := NewTimeout("read", time.Second)
	b := NewTimeout("write", time.Second)
	if !errors.Is(a, b) {
		t.Error("expected two Timeout errors to satisfy errors.Is via Is()")
	}
	c := NewProtocol("parse", "bad", nil)
	if errors.Is(a, c) {
		t.Error("expected Timeout and Protocol errors not to match")
	}
}

func TestIsTimeoutRecognizesContextDeadline(t *testing.T) {
	if !IsTimeout(context.DeadlineExceeded) {
		t.Error("expected context.DeadlineExceeded to be recognized as a timeout")
	}
}

func TestIsContextCanceled(t *testing.T) {
	if !IsContextCanceled(context.Canceled) {
		t.Error("expected context.Canceled to be recognized")
	}
}

func TestKindOfNonStructuredError(t *testing.T) {
	if KindOf(errors.New("plain")) != "" {
		t.Error("expected empty Kind for a non-structured error")
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
