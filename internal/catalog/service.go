package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/httpclient"
	"github.com/snapetech/iptvaddon/internal/log"
	"github.com/snapetech/iptvaddon/internal/metrics"
	"github.com/snapetech/iptvaddon/internal/playlist"
	"github.com/snapetech/iptvaddon/internal/streamid"
	"github.com/snapetech/iptvaddon/internal/xtream"
)

var (
	ErrUnknownType       = errors.New("unsupported content type")
	ErrUnknownDescriptor = errors.New("unsupported descriptor")
)

// Timeouts bounds each kind of upstream call.
type Timeouts struct {
	Category         time.Duration
	Listing          time.Duration
	Search           time.Duration
	Series           time.Duration
	Playlist         time.Duration
	ManifestPlaylist time.Duration
}

// DefaultTimeouts returns the stock upstream timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Category:         4500 * time.Millisecond,
		Listing:          9 * time.Second,
		Search:           8 * time.Second,
		Series:           8 * time.Second,
		Playlist:         9 * time.Second,
		ManifestPlaylist: 8 * time.Second,
	}
}

// Service assembles catalog data. It holds no per-account state and is safe for concurrent use.
type Service struct {
	xtream   *xtream.Client
	http     *httpclient.Client
	timeouts Timeouts
	logger   zerolog.Logger

	// Now stamps episodes that have no usable release date.
	Now func() time.Time
}

// NewService returns a Service issuing upstream calls through hc. Zero timeouts take the defaults.
func NewService(hc *httpclient.Client, t Timeouts) *Service {
	def := DefaultTimeouts()
	for _, p := range []struct{ v, d *time.Duration }{
		{&t.Category, &def.Category},
		{&t.Listing, &def.Listing},
		{&t.Search, &def.Search},
		{&t.Series, &def.Series},
		{&t.Playlist, &def.Playlist},
		{&t.ManifestPlaylist, &def.ManifestPlaylist},
	} {
		if *p.v <= 0 {
			*p.v = *p.d
		}
	}
	return &Service{
		xtream:   xtream.New(hc),
		http:     hc,
		timeouts: t,
		logger:   log.WithComponent("catalog"),
		Now:      time.Now,
	}
}

// List returns one page of catalog entries. Upstream failures yield a degraded empty page.
// Unknown content types get an empty page and are neither logged nor counted: ct comes
// straight from the request path.
func (s *Service) List(ctx context.Context, d descriptor.Descriptor, ct ContentType, f Filter) Result[[]Entry] {
	if !ct.Valid() {
		return Ok([]Entry{})
	}
	var (
		entries []Entry
		err     error
	)
	switch v := d.(type) {
	case descriptor.Xtream:
		entries, err = s.listXtream(ctx, v, ct, f)
	case descriptor.Playlist:
		entries, err = s.listPlaylist(ctx, v, ct, f)
	default:
		err = ErrUnknownDescriptor
	}
	if err != nil {
		s.degraded(ctx, "catalog", ct, err).Str(log.FieldGenre, f.Genre).Msg("catalog degraded")
		metrics.RecordResult("catalog", string(ct), true)
		return Degraded([]Entry{}, err)
	}
	metrics.RecordResult("catalog", string(ct), false)
	return Ok(Paginate(entries, f.Skip))
}

// Paginate drops the first skip entries and returns at most PageSize of the rest.
func Paginate(entries []Entry, skip int) []Entry {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(entries) {
		return []Entry{}
	}
	end := min(skip+PageSize, len(entries))
	return entries[skip:end]
}

func (s *Service) listXtream(ctx context.Context, x descriptor.Xtream, ct ContentType, f Filter) ([]Entry, error) {
	section, ok := ct.section()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, ct)
	}
	var (
		streams []xtream.Stream
		err     error
	)
	if f.Search != "" {
		cctx, cancel := context.WithTimeout(ctx, s.timeouts.Search)
		streams, err = s.xtream.Search(cctx, x, section, f.Search)
		cancel()
		if err != nil {
			return nil, err
		}
		streams = filterByName(streams, f.Search)
	} else {
		var categoryID string
		if f.Genre != "" && f.Genre != AllGenres {
			id, found, err := s.ResolveCategoryID(ctx, x, ct, f.Genre)
			if err != nil {
				return nil, err
			}
			if found {
				categoryID = id
			}
		}
		cctx, cancel := context.WithTimeout(ctx, s.timeouts.Listing)
		streams, err = s.xtream.Streams(cctx, x, section, categoryID)
		cancel()
		if err != nil {
			return nil, err
		}
	}
	if ct == TypeMovie || ct == TypeSeries {
		sortNewestFirst(streams, ct)
	}
	out := make([]Entry, 0, len(streams))
	for _, st := range streams {
		out = append(out, xtreamEntry(st, ct))
	}
	return out, nil
}

func xtreamEntry(st xtream.Stream, ct ContentType) Entry {
	e := Entry{Type: ct, Name: st.Name.String(), Poster: st.Poster(), PosterShape: ShapePoster}
	switch ct {
	case TypeTV:
		e.ID = streamid.NewLive(st.StreamID.String()).String()
		e.PosterShape = ShapeSquare
	case TypeMovie:
		e.ID = streamid.NewMovie(st.StreamID.String(), st.ContainerExtension).String()
	case TypeSeries:
		e.ID = streamid.NewSeries(st.SeriesID.String()).String()
	}
	return e
}

// sortNewestFirst orders by descending numeric id. Non-numeric ids count as 0.
func sortNewestFirst(streams []xtream.Stream, ct ContentType) {
	key := func(st xtream.Stream) int {
		if ct == TypeSeries {
			return st.SeriesID.Int()
		}
		return st.StreamID.Int()
	}
	sort.SliceStable(streams, func(i, j int) bool {
		return key(streams[i]) > key(streams[j])
	})
}

func filterByName(streams []xtream.Stream, term string) []xtream.Stream {
	m := newMatcher(term)
	out := streams[:0]
	for _, st := range streams {
		if m.match(st.Name.String()) {
			out = append(out, st)
		}
	}
	return out
}

// matcher does case-insensitive substring matching with Unicode case folding.
// A Caser is not safe for concurrent use, so each matcher owns one.
type matcher struct {
	fold cases.Caser
	term string
}

func newMatcher(term string) *matcher {
	c := cases.Fold()
	return &matcher{fold: c, term: c.String(term)}
}

func (m *matcher) match(s string) bool {
	if s == "" {
		return false
	}
	return strings.Contains(m.fold.String(s), m.term)
}

func (s *Service) listPlaylist(ctx context.Context, p descriptor.Playlist, ct ContentType, f Filter) ([]Entry, error) {
	if ct == TypeSeries {
		return []Entry{}, nil
	}
	kind, ok := ct.playlistKind()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, ct)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.Playlist)
	defer cancel()
	items, err := playlist.Fetch(cctx, s.http, p.URL)
	if err != nil {
		return nil, err
	}
	var m *matcher
	if f.Search != "" {
		m = newMatcher(f.Search)
	}
	genre := ""
	if m == nil && f.Genre != AllGenres {
		genre = f.Genre
	}
	out := make([]Entry, 0, len(items))
	for i, it := range items {
		if it.Kind != kind {
			continue
		}
		if m != nil && !m.match(it.Name) {
			continue
		}
		if genre != "" && it.Group != genre {
			continue
		}
		out = append(out, Entry{
			ID:          streamid.NewPlaylistEntry(i, it.URL).String(),
			Type:        ct,
			Name:        it.Name,
			Poster:      it.Logo,
			PosterShape: ShapeSquare,
		})
	}
	if ct == TypeMovie {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

// ResolveCategoryID maps a genre name to the panel's category id for ct. Matching is exact and
// case-sensitive; found is false when no category carries that name.
func (s *Service) ResolveCategoryID(ctx context.Context, x descriptor.Xtream, ct ContentType, genre string) (id string, found bool, err error) {
	section, ok := ct.section()
	if !ok {
		return "", false, fmt.Errorf("%w: %q", ErrUnknownType, ct)
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.Category)
	defer cancel()
	cats, err := s.xtream.Categories(cctx, x, section)
	if err != nil {
		return "", false, err
	}
	for _, c := range cats {
		if c.Name == genre {
			return c.ID.String(), true, nil
		}
	}
	return "", false, nil
}

func (s *Service) degraded(ctx context.Context, resource string, ct ContentType, err error) *zerolog.Event {
	logger := log.Correlate(ctx, s.logger)
	return logger.Warn().Err(err).Str("resource", resource).Str(log.FieldContentType, string(ct))
}
