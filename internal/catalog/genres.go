package catalog

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/metrics"
	"github.com/snapetech/iptvaddon/internal/playlist"
	"github.com/snapetech/iptvaddon/internal/xtream"
)

func allOnly() []string { return []string{AllGenres} }

// Genres collects the genre options for the manifest. Each list falls back to ["All"] on its
// own; one failing upstream never affects the others.
func (s *Service) Genres(ctx context.Context, d descriptor.Descriptor) Genres {
	switch v := d.(type) {
	case descriptor.Xtream:
		return s.xtreamGenres(ctx, v)
	case descriptor.Playlist:
		return s.playlistGenres(ctx, v)
	}
	return Genres{Live: allOnly(), Movie: allOnly(), Series: allOnly()}
}

func (s *Service) xtreamGenres(ctx context.Context, x descriptor.Xtream) Genres {
	var out Genres
	var g errgroup.Group
	for _, t := range []struct {
		ct   ContentType
		dest *[]string
	}{
		{TypeTV, &out.Live},
		{TypeMovie, &out.Movie},
		{TypeSeries, &out.Series},
	} {
		g.Go(func() error {
			*t.dest = s.categoryNames(ctx, x, t.ct)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) categoryNames(ctx context.Context, x descriptor.Xtream, ct ContentType) []string {
	section, _ := ct.section()
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.Category)
	defer cancel()
	cats, err := s.xtream.Categories(cctx, x, section)
	if err != nil {
		s.degraded(ctx, "genres", ct, err).Msg("genre list degraded")
		metrics.RecordResult("genres", string(ct), true)
		return allOnly()
	}
	metrics.RecordResult("genres", string(ct), false)
	return namesOrAll(cats)
}

func namesOrAll(cats []xtream.Category) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 {
		return allOnly()
	}
	return names
}

func (s *Service) playlistGenres(ctx context.Context, p descriptor.Playlist) Genres {
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.ManifestPlaylist)
	defer cancel()
	items, err := playlist.Fetch(cctx, s.http, p.URL)
	if err != nil {
		s.degraded(ctx, "genres", TypeTV, err).Msg("genre list degraded")
		metrics.RecordResult("genres", string(TypeTV), true)
		return Genres{Live: allOnly(), Movie: allOnly(), Series: allOnly()}
	}
	metrics.RecordResult("genres", string(TypeTV), false)
	groups := uniqueGroups(items)
	if len(groups) == 0 {
		groups = allOnly()
	}
	movie := make([]string, len(groups))
	copy(movie, groups)
	return Genres{Live: groups, Movie: movie, Series: allOnly()}
}

func uniqueGroups(items []playlist.Item) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range items {
		if !seen[it.Group] {
			seen[it.Group] = true
			out = append(out, it.Group)
		}
	}
	sort.Strings(out)
	return out
}
