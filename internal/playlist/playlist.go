// Package playlist parses M3U playlists into flat items and downloads them from a provider.
package playlist

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/snapetech/iptvaddon/internal/httpclient"
	"github.com/snapetech/iptvaddon/internal/metrics"
	"github.com/snapetech/iptvaddon/internal/safeurl"
)

const maxLineSize = 1 << 20 // 1 MiB per line

// DefaultGroup is used for entries without a group-title attribute. An explicit empty
// group-title stays empty.
const DefaultGroup = "Other"

// Kind is the coarse content type of a playlist entry.
type Kind string

const (
	KindTV    Kind = "tv"
	KindMovie Kind = "movie"
)

// Item is one #EXTINF + URL pair.
type Item struct {
	Name  string
	Group string
	Logo  string // empty when the entry has no tvg-logo
	URL   string
	Kind  Kind
}

// ErrUnsupportedURL is returned by Fetch for playlist URLs that are not http or https.
var ErrUnsupportedURL = errors.New("playlist url must be http or https")

var movieExts = map[string]bool{".mp4": true, ".mkv": true, ".avi": true, ".mov": true}

// KindOf classifies a stream URL by the extension of its path. Query and fragment are ignored.
func KindOf(streamURL string) Kind {
	p := streamURL
	if u, err := url.Parse(streamURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if movieExts[strings.ToLower(path.Ext(p))] {
		return KindMovie
	}
	return KindTV
}

type state int

const (
	awaitingMetadata state = iota
	awaitingURL
)

// Parse reads an M3U playlist. Entries keep playlist order; an #EXTINF without a following
// URL line is dropped, as is a URL line without a preceding #EXTINF.
func Parse(r io.Reader) ([]Item, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(nil, maxLineSize)
	var (
		items   []Item
		pending Item
		st      = awaitingMetadata
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "#EXTINF"):
			pending = parseEXTINF(line)
			st = awaitingURL
		case isStreamURL(line):
			if st != awaitingURL {
				continue
			}
			pending.URL = line
			pending.Kind = KindOf(line)
			items = append(items, pending)
			pending = Item{}
			st = awaitingMetadata
		}
	}
	if err := sc.Err(); err != nil {
		return items, fmt.Errorf("scan playlist: %w", err)
	}
	return items, nil
}

// Fetch downloads rawURL with client and parses it.
func Fetch(ctx context.Context, client *httpclient.Client, rawURL string) ([]Item, error) {
	if !safeurl.IsHTTPOrHTTPS(rawURL) {
		return nil, ErrUnsupportedURL
	}
	start := time.Now()
	items, err := fetch(ctx, client, rawURL)
	metrics.ObserveUpstream("m3u", "playlist", start, err)
	if err != nil {
		return nil, err
	}
	metrics.RecordPlaylistItems(len(items))
	return items, nil
}

func fetch(ctx context.Context, client *httpclient.Client, rawURL string) ([]Item, error) {
	body, err := client.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch playlist: %w", err)
	}
	defer body.Close()
	return Parse(body)
}

func isStreamURL(line string) bool {
	if len(line) < len("http://") {
		return false
	}
	l := strings.ToLower(line[:min(len(line), 8)])
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func parseEXTINF(line string) Item {
	group, ok := attr(line, "group-title")
	if !ok {
		group = DefaultGroup
	}
	logo, _ := attr(line, "tvg-logo")
	it := Item{Group: group, Logo: logo}
	if i := strings.LastIndex(line, ","); i >= 0 {
		it.Name = strings.TrimSpace(line[i+1:])
	}
	return it
}

// attr returns the value of key="value" in an #EXTINF line. ok is false when the key
// is missing or its value is unterminated; an empty value is present.
func attr(line, key string) (value string, ok bool) {
	prefix := key + `="`
	i := strings.Index(line, prefix)
	if i < 0 {
		return "", false
	}
	i += len(prefix)
	j := strings.IndexByte(line[i:], '"')
	if j < 0 {
		return "", false
	}
	return line[i : i+j], true
}
