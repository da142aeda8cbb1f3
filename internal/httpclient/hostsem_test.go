package httpclient

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHostKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://provider.example:8080/player_api.php?username=u&password=p", "http://provider.example:8080"},
		{"https://cdn.example/list.m3u", "https://cdn.example"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := hostKey(tt.in); got != tt.want {
			t.Errorf("hostKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHostLimits_blocksAtCapacity(t *testing.T) {
	h := NewHostLimits(1, 0)
	release, err := h.Acquire(context.Background(), "http://a.example/x")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := h.Acquire(ctx, "http://a.example/y"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second acquire on same host: err = %v, want deadline exceeded", err)
	}
	// A different host has its own slots.
	r2, err := h.Acquire(context.Background(), "http://b.example/")
	if err != nil {
		t.Fatalf("other host blocked: %v", err)
	}
	r2()
	release()
	release() // idempotent
	r3, err := h.Acquire(context.Background(), "http://a.example/z")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	r3()
}

func TestHostLimits_rate(t *testing.T) {
	h := NewHostLimits(8, 1) // burst 1, then one per second
	r, err := h.Acquire(context.Background(), "http://a.example/")
	if err != nil {
		t.Fatal(err)
	}
	r()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := h.Acquire(ctx, "http://a.example/"); err == nil {
		t.Fatal("expected rate limiter to refuse within 50ms")
	}
}
