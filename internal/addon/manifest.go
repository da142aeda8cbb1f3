package addon

import (
	"net/http"

	"github.com/snapetech/iptvaddon/internal/catalog"
	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/streamid"
)

// Catalog ids advertised in the manifest.
const (
	CatalogLive   = "iptv-live"
	CatalogVOD    = "iptv-vod"
	CatalogSeries = "iptv-series"
)

const (
	addonID          = "community.iptv-addon"
	addonName        = "IPTV Addon"
	addonDescription = "Xtream Codes and M3U playlists in Stremio: newest-first movies and series, server-side search and provider category filtering."
)

type manifest struct {
	ID            string            `json:"id"`
	Version       string            `json:"version"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Resources     []string          `json:"resources"`
	Types         []string          `json:"types"`
	Catalogs      []manifestCatalog `json:"catalogs"`
	IDPrefixes    []string          `json:"idPrefixes"`
	BehaviorHints manifestHints     `json:"behaviorHints"`
}

type manifestCatalog struct {
	Type  catalog.ContentType `json:"type"`
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Extra []catalogExtra      `json:"extra"`
}

type catalogExtra struct {
	Name    string   `json:"name"`
	Options []string `json:"options,omitempty"`
}

type manifestHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired,omitempty"`
}

func baseManifest() manifest {
	return manifest{
		ID:          addonID,
		Version:     Version,
		Name:        addonName,
		Description: addonDescription,
		Resources:   []string{"catalog", "meta", "stream"},
		Types:       []string{string(catalog.TypeTV), string(catalog.TypeMovie), string(catalog.TypeSeries)},
		Catalogs:    []manifestCatalog{},
		IDPrefixes:  []string{streamid.PrefixXtream, streamid.PrefixPlaylist},
		BehaviorHints: manifestHints{
			Configurable: true,
		},
	}
}

func newCatalog(ct catalog.ContentType, id, name string, genres []string) manifestCatalog {
	return manifestCatalog{
		Type: ct,
		ID:   id,
		Name: name,
		Extra: []catalogExtra{
			{Name: "genre", Options: genres},
			{Name: "search"},
			{Name: "skip"},
		},
	}
}

// buildManifest lists the live and movie catalogs for every backend, plus series for Xtream.
func buildManifest(d descriptor.Descriptor, g catalog.Genres) manifest {
	m := baseManifest()
	m.Catalogs = append(m.Catalogs,
		newCatalog(catalog.TypeTV, CatalogLive, "Live TV", g.Live),
		newCatalog(catalog.TypeMovie, CatalogVOD, "Movies", g.Movie),
	)
	if d.Kind() == descriptor.KindXtream {
		m.Catalogs = append(m.Catalogs, newCatalog(catalog.TypeSeries, CatalogSeries, "TV Shows", g.Series))
	}
	return m
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	d, err := s.decode(r, resManifest)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Invalid Config"))
		return
	}
	g := s.catalog.Genres(r.Context(), d)
	s.writeJSON(w, r, resManifest, buildManifest(d, g), false)
}

func (s *Server) handleUnconfiguredManifest(w http.ResponseWriter, r *http.Request) {
	m := baseManifest()
	m.BehaviorHints.ConfigurationRequired = true
	s.writeJSON(w, r, resManifest, m, false)
}
