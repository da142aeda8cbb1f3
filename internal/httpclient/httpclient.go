// Package httpclient is the single way this service talks to upstream panels and playlist hosts.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "IPTVAddon/1.0"

	dialTimeout           = 5 * time.Second
	idleConnTimeout       = 90 * time.Second
	expectContinueTimeout = 1 * time.Second
	maxIdleConns          = 100
	maxIdleConnsPerHost   = 16
)

var defaultClient = NewClient(DefaultTimeout)

// Default returns the shared client. Per-call deadlines come from the request context,
// so its timeout is only a backstop.
func Default() *http.Client {
	return defaultClient
}

// NewClient returns a client with its own transport. Dial and TLS handshakes are capped at
// dialTimeout even when timeout is longer; timeout <= 0 means DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dial := min(timeout, dialTimeout)
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: dial, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          maxIdleConns,
			MaxIdleConnsPerHost:   maxIdleConnsPerHost,
			IdleConnTimeout:       idleConnTimeout,
			TLSHandshakeTimeout:   dial,
			ExpectContinueTimeout: expectContinueTimeout,
		},
	}
}
