package httpclient

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

// StatusError is returned when an upstream answers with anything but 200.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return "unexpected status: " + strconv.Itoa(e.Code)
}

// Client issues upstream GETs through a shared http.Client and HostLimits.
type Client struct {
	HTTP      *http.Client
	Limits    *HostLimits // nil = unlimited
	UserAgent string
}

// New returns a Client using Default() and the given per-host limits.
func New(limits *HostLimits, userAgent string) *Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{HTTP: Default(), Limits: limits, UserAgent: userAgent}
}

// Get fetches rawURL and returns the decoded body. Non-200 responses yield *StatusError.
// brotli and gzip content encodings are decoded transparently; many IPTV panels serve playlists brotli-compressed.
// The caller must close the returned body; closing it releases the host slot.
func (c *Client) Get(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	hc := c.HTTP
	if hc == nil {
		hc = Default()
	}
	release := func() {}
	if c.Limits != nil {
		r, err := c.Limits.Acquire(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		release = r
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		release()
		return nil, err
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Encoding", "br, gzip")
	resp, err := hc.Do(req)
	if err != nil {
		release()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		release()
		return nil, &StatusError{Code: resp.StatusCode}
	}
	body, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		release()
		return nil, err
	}
	return &releasingBody{Reader: body, closer: resp.Body, release: release}, nil
}

// GetJSON fetches rawURL and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		return brotli.NewReader(resp.Body), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return zr, nil
	default:
		return resp.Body, nil
	}
}

type releasingBody struct {
	io.Reader
	closer  io.Closer
	release func()
}

func (b *releasingBody) Close() error {
	err := b.closer.Close()
	b.release()
	return err
}
