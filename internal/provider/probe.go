// Package provider checks whether a descriptor's upstream is reachable and usable.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/safeurl"
	"github.com/snapetech/iptvaddon/internal/xtream"
)

// Result is the outcome of probing one upstream.
type Result struct {
	URL         string // redacted
	Status      Status
	StatusCode  int
	LatencyMs   int64
	Detail      string
	BodyPreview string // first 512 bytes for CF detection
}

type Status string

const (
	StatusOK         Status = "ok"
	StatusCloudflare Status = "cloudflare"
	StatusBadStatus  Status = "bad_status"
	StatusTimeout    Status = "timeout"
	StatusError      Status = "error"
)

const previewBytes = 512

// Probe issues one request against the backend d points at and classifies the answer.
// Xtream panels are probed through player_api.php, playlists by fetching the playlist URL.
func Probe(ctx context.Context, client *http.Client, userAgent string, d descriptor.Descriptor) Result {
	switch v := d.(type) {
	case descriptor.Xtream:
		return probePlayerAPI(ctx, client, userAgent, v)
	case descriptor.Playlist:
		return probePlaylist(ctx, client, userAgent, v.URL)
	}
	return Result{Status: StatusError, Detail: "unsupported descriptor"}
}

func probePlaylist(ctx context.Context, client *http.Client, userAgent, rawURL string) Result {
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		return Result{URL: safeurl.Redact(rawURL), Status: StatusError, Detail: "playlist url must be http or https"}
	}
	res, body := get(ctx, client, userAgent, rawURL)
	if res.Status != StatusOK {
		return res
	}
	if !strings.Contains(body, "#extm3u") && !strings.Contains(body, "#extinf") {
		res.Detail = "response does not look like an M3U playlist"
	}
	return res
}

func probePlayerAPI(ctx context.Context, client *http.Client, userAgent string, x descriptor.Xtream) Result {
	rawURL := xtream.APIURL(x, "")
	res, body := get(ctx, client, userAgent, rawURL)
	if res.Status != StatusOK {
		return res
	}
	var auth struct {
		UserInfo *struct {
			Auth   json.RawMessage `json:"auth"`
			Status string          `json:"status"`
		} `json:"user_info"`
	}
	if err := json.Unmarshal([]byte(body), &auth); err != nil || auth.UserInfo == nil {
		res.Status = StatusBadStatus
		res.Detail = "player_api.php did not return an account"
		return res
	}
	if a := strings.Trim(string(auth.UserInfo.Auth), `"`); a == "0" {
		res.Status = StatusBadStatus
		res.Detail = "credentials rejected"
		return res
	}
	if auth.UserInfo.Status != "" {
		res.Detail = "account " + strings.ToLower(auth.UserInfo.Status)
	}
	return res
}

// get fetches rawURL and classifies the response. For a 200 the lower-cased body is returned
// (capped at 64 KiB) so callers can inspect it.
func get(ctx context.Context, client *http.Client, userAgent, rawURL string) (Result, string) {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	display := safeurl.Redact(rawURL)
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{URL: display, Status: StatusError, Detail: err.Error(), LatencyMs: time.Since(start).Milliseconds()}, ""
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		if isTimeout(err) {
			return Result{URL: display, Status: StatusTimeout, LatencyMs: latency}, ""
		}
		return Result{URL: display, Status: StatusError, LatencyMs: latency, Detail: unwrapURLError(err).Error()}, ""
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	body := strings.ToLower(string(raw))
	preview := body
	if len(preview) > previewBytes {
		preview = preview[:previewBytes]
	}
	code := resp.StatusCode

	// Cloudflare detection: only when we're sure (Server header or classic challenge page).
	// Provider "pod busy" codes such as 884 are not Cloudflare.
	isCFServer := strings.ToLower(strings.TrimSpace(resp.Header.Get("Server"))) == "cloudflare"
	bodyHasCFChallenge := strings.Contains(preview, "checking your browser") ||
		strings.Contains(preview, "cf-bypass") ||
		strings.Contains(preview, "ray id")
	switch {
	case (code == 403 || code == 503 || code == 520 || code == 521 || code == 524) && (bodyHasCFChallenge || isCFServer):
		return Result{URL: display, Status: StatusCloudflare, StatusCode: code, LatencyMs: latency, BodyPreview: preview}, ""
	case isCFServer && code != http.StatusOK:
		return Result{URL: display, Status: StatusCloudflare, StatusCode: code, LatencyMs: latency}, ""
	case code != http.StatusOK:
		return Result{URL: display, Status: StatusBadStatus, StatusCode: code, LatencyMs: latency}, ""
	}
	return Result{URL: display, Status: StatusOK, StatusCode: code, LatencyMs: latency}, body
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the credential-bearing URL.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
