// Package catalog assembles Stremio catalog, meta and manifest genre data from an Xtream
// panel or an M3U playlist.
package catalog

import (
	"time"

	"github.com/snapetech/iptvaddon/internal/playlist"
	"github.com/snapetech/iptvaddon/internal/xtream"
)

// PageSize is the number of entries returned per catalog page.
const PageSize = 100

// AllGenres is the genre option meaning "no filter".
const AllGenres = "All"

// ContentType is a Stremio content type.
type ContentType string

const (
	TypeTV     ContentType = "tv"
	TypeMovie  ContentType = "movie"
	TypeSeries ContentType = "series"
)

// Valid reports whether t is one of the three supported types.
func (t ContentType) Valid() bool {
	return t == TypeTV || t == TypeMovie || t == TypeSeries
}

func (t ContentType) section() (xtream.Section, bool) {
	switch t {
	case TypeTV:
		return xtream.SectionLive, true
	case TypeMovie:
		return xtream.SectionVOD, true
	case TypeSeries:
		return xtream.SectionSeries, true
	}
	return "", false
}

func (t ContentType) playlistKind() (playlist.Kind, bool) {
	switch t {
	case TypeTV:
		return playlist.KindTV, true
	case TypeMovie:
		return playlist.KindMovie, true
	}
	return "", false
}

// Poster shapes.
const (
	ShapeSquare = "square"
	ShapePoster = "poster"
)

// Entry is one catalog item.
type Entry struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	Name        string      `json:"name"`
	Poster      string      `json:"poster,omitempty"`
	PosterShape string      `json:"posterShape"`
}

// Filter narrows a catalog request. Search wins over Genre when both are set.
type Filter struct {
	Genre  string
	Search string
	Skip   int
}

// Meta is the detail record of one item.
type Meta struct {
	ID          string      `json:"id"`
	Type        ContentType `json:"type"`
	Name        string      `json:"name"`
	Poster      string      `json:"poster,omitempty"`
	Description string      `json:"description,omitempty"`
	Videos      []Video     `json:"videos,omitempty"`
}

// Video is one episode of a series meta.
type Video struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Season   int       `json:"season"`
	Episode  int       `json:"episode"`
	Released time.Time `json:"released"`
}

// Genres holds the genre options for each catalog of the manifest.
type Genres struct {
	Live   []string
	Movie  []string
	Series []string
}

// Result is an assembled value plus the upstream error it was degraded by, if any.
// A degraded result still carries a usable fallback in Data.
type Result[T any] struct {
	Data T
	Err  error
}

// Ok wraps a complete result.
func Ok[T any](v T) Result[T] { return Result[T]{Data: v} }

// Degraded wraps a fallback value produced because of err.
func Degraded[T any](fallback T, err error) Result[T] { return Result[T]{Data: fallback, Err: err} }

// IsDegraded reports whether the result is a fallback.
func (r Result[T]) IsDegraded() bool { return r.Err != nil }
