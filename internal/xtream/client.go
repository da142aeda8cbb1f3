// Package xtream talks to an Xtream Codes panel through player_api.php.
package xtream

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/httpclient"
	"github.com/snapetech/iptvaddon/internal/metrics"
)

// Section is one of the three panel libraries.
type Section string

const (
	SectionLive   Section = "live"
	SectionVOD    Section = "vod"
	SectionSeries Section = "series"
)

// CategoriesAction is the player_api action listing the section's categories.
func (s Section) CategoriesAction() string {
	return "get_" + string(s) + "_categories"
}

// StreamsAction is the player_api action listing the section's items.
func (s Section) StreamsAction() string {
	if s == SectionSeries {
		return "get_series"
	}
	return "get_" + string(s) + "_streams"
}

const actionSeriesInfo = "get_series_info"

// Error wraps a failed player_api call. The message never includes the request URL,
// which carries the account credentials.
type Error struct {
	Action string
	Err    error
}

func (e *Error) Error() string {
	err := e.Err
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	return "xtream " + e.Action + ": " + err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Client issues player_api.php calls. It holds no account state; every call takes the descriptor.
type Client struct {
	http *httpclient.Client
}

// New returns a Client using hc for transport.
func New(hc *httpclient.Client) *Client {
	return &Client{http: hc}
}

// Categories lists the categories of section s.
func (c *Client) Categories(ctx context.Context, x descriptor.Xtream, s Section) ([]Category, error) {
	var out []Category
	if err := c.call(ctx, x, s.CategoriesAction(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Streams lists the items of section s, restricted to categoryID when it is not empty.
func (c *Client) Streams(ctx context.Context, x descriptor.Xtream, s Section, categoryID string) ([]Stream, error) {
	var params [][2]string
	if categoryID != "" {
		params = append(params, [2]string{"category_id", categoryID})
	}
	var out []Stream
	if err := c.call(ctx, x, s.StreamsAction(), params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Search asks the panel for items of section s matching term. Panels that ignore the
// parameter return the whole section, so callers filter the result again.
func (c *Client) Search(ctx context.Context, x descriptor.Xtream, s Section, term string) ([]Stream, error) {
	var out []Stream
	if err := c.call(ctx, x, s.StreamsAction(), [][2]string{{"search", term}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SeriesInfo fetches the details and episode list of one series.
func (c *Client) SeriesInfo(ctx context.Context, x descriptor.Xtream, seriesID string) (*SeriesInfo, error) {
	var out SeriesInfo
	if err := c.call(ctx, x, actionSeriesInfo, [][2]string{{"series_id", seriesID}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) call(ctx context.Context, x descriptor.Xtream, action string, params [][2]string, v any) error {
	start := time.Now()
	err := c.http.GetJSON(ctx, APIURL(x, action, params...), v)
	metrics.ObserveUpstream("xtream", action, start, err)
	if err != nil {
		return &Error{Action: action, Err: err}
	}
	return nil
}

// APIURL builds a player_api.php URL. Credentials and parameter values are query-escaped.
func APIURL(x descriptor.Xtream, action string, params ...[2]string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(x.Host, "/"))
	b.WriteString("/player_api.php?username=")
	b.WriteString(url.QueryEscape(x.User))
	b.WriteString("&password=")
	b.WriteString(url.QueryEscape(x.Pass))
	if action != "" {
		b.WriteString("&action=")
		b.WriteString(action)
	}
	for _, p := range params {
		b.WriteString("&")
		b.WriteString(p[0])
		b.WriteString("=")
		b.WriteString(url.QueryEscape(p[1]))
	}
	return b.String()
}
