package httpclient

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimits is a per-host concurrency and rate limiter shared by every upstream call in the process.
// Each request is self-contained, but many clients of one addon instance commonly point at the same
// provider; without this they hammer it at once.
//
// Usage: acquire before sending a request, release when the response body is closed.
//
//	release, err := limits.Acquire(ctx, rawURL)
//	if err != nil { ... }
//	defer release()
type HostLimits struct {
	mu       sync.Mutex
	sems     map[string]chan struct{}
	limiters map[string]*rate.Limiter
	limit    int
	rps      rate.Limit
	burst    int
}

// NewHostLimits caps each host at concurrency in-flight requests and rps requests per second.
// rps <= 0 disables the rate cap.
func NewHostLimits(concurrency int, rps float64) *HostLimits {
	if concurrency < 1 {
		concurrency = 1
	}
	h := &HostLimits{
		sems:     make(map[string]chan struct{}),
		limiters: make(map[string]*rate.Limiter),
		limit:    concurrency,
		rps:      rate.Inf,
	}
	if rps > 0 {
		h.rps = rate.Limit(rps)
		h.burst = int(rps)
		if h.burst < 1 {
			h.burst = 1
		}
	}
	return h
}

// Acquire blocks until a slot is available for the host of rawURL and the host's rate allows a request.
// It gives up when ctx is done.
func (h *HostLimits) Acquire(ctx context.Context, rawURL string) (func(), error) {
	key := hostKey(rawURL)
	sem, lim := h.forHost(key)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			<-sem
			return nil, err
		}
	}
	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}

func (h *HostLimits) forHost(key string) (chan struct{}, *rate.Limiter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sems[key]
	if !ok {
		s = make(chan struct{}, h.limit)
		h.sems[key] = s
	}
	if h.rps == rate.Inf {
		return s, nil
	}
	l, ok := h.limiters[key]
	if !ok {
		l = rate.NewLimiter(h.rps, h.burst)
		h.limiters[key] = l
	}
	return s, l
}

// hostKey normalises to scheme+host, dropping path and query (which carry credentials).
func hostKey(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Scheme + "://" + u.Host
	}
	return rawURL
}
