package addon

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snapetech/iptvaddon/internal/catalog"
)

const jsonSuffix = ".json"

// pathParam returns the decoded value of a route parameter. chi matches against RawPath
// when the request path carried non-canonical escapes, which leaves params escaped.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath != "" {
		if u, err := url.PathUnescape(v); err == nil {
			return u
		}
	}
	return v
}

// rawPathParam returns a route parameter in escaped form, so that escaped '&' and '='
// inside values survive query parsing.
func rawPathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return (&url.URL{Path: v}).EscapedPath()
	}
	return v
}

func trimJSON(v string) (string, bool) {
	if !strings.HasSuffix(v, jsonSuffix) {
		return "", false
	}
	return strings.TrimSuffix(v, jsonSuffix), true
}

// parseExtra reads the optional extra segment of a catalog request: either a query string
// with genre, search and skip, or a bare search term.
func parseExtra(raw string) catalog.Filter {
	var f catalog.Filter
	if raw == "" {
		return f
	}
	if !strings.Contains(raw, "=") {
		if term, err := url.PathUnescape(raw); err == nil {
			f.Search = strings.TrimSpace(term)
		} else {
			f.Search = strings.TrimSpace(raw)
		}
		return f
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return f
	}
	f.Genre = q.Get("genre")
	f.Search = strings.TrimSpace(q.Get("search"))
	f.Skip = leadingInt(q.Get("skip"))
	return f
}

// leadingInt parses the leading decimal digits of s, ignoring anything after them.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
