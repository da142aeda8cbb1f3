package streamid

import (
	"errors"
	"net/url"
	"strings"

	"github.com/snapetech/iptvaddon/internal/descriptor"
)

// Live URL layouts. Providers disagree, so the layout is configuration.
const (
	LiveTemplateBare = "{host}/{user}/{pass}/{id}"
	LiveTemplateTS   = "{host}/live/{user}/{pass}/{id}.ts"
)

var (
	ErrNotPlayable        = errors.New("id is not playable")
	ErrBackendMismatch    = errors.New("id needs an xtream descriptor")
	ErrInvalidPlaylistURL = errors.New("playlist id carries an empty url")
)

// Resolver turns ids into playable URLs. It never touches the network.
type Resolver struct {
	LiveTemplate string // empty = LiveTemplateBare
}

// Resolve returns the stream URL for id. Playlist ids carry their URL and ignore d.
func (r Resolver) Resolve(d descriptor.Descriptor, id ID) (string, error) {
	if id.Provenance == Playlist {
		if id.URL == "" {
			return "", ErrInvalidPlaylistURL
		}
		return id.URL, nil
	}
	if id.Provenance == Series {
		return "", ErrNotPlayable
	}
	x, ok := asXtream(d)
	if !ok {
		return "", ErrBackendMismatch
	}
	host := strings.TrimSuffix(x.Host, "/")
	user := url.PathEscape(x.User)
	pass := url.PathEscape(x.Pass)
	item := url.PathEscape(id.ItemID)
	switch id.Provenance {
	case Live:
		tmpl := r.LiveTemplate
		if tmpl == "" {
			tmpl = LiveTemplateBare
		}
		return strings.NewReplacer("{host}", host, "{user}", user, "{pass}", pass, "{id}", item).Replace(tmpl), nil
	case Movie:
		return host + "/movie/" + user + "/" + pass + "/" + item + "." + NormalizeExt(id.Ext), nil
	case Episode:
		return host + "/series/" + user + "/" + pass + "/" + item + "." + NormalizeExt(id.Ext), nil
	}
	return "", ErrNotPlayable
}

func asXtream(d descriptor.Descriptor) (descriptor.Xtream, bool) {
	switch v := d.(type) {
	case descriptor.Xtream:
		return v, true
	case *descriptor.Xtream:
		if v != nil {
			return *v, true
		}
	}
	return descriptor.Xtream{}, false
}
