package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/log"
	"github.com/snapetech/iptvaddon/internal/metrics"
	"github.com/snapetech/iptvaddon/internal/streamid"
	"github.com/snapetech/iptvaddon/internal/xtream"
)

// Placeholder names for items without upstream details.
const (
	NamePlaylistItem  = "Watch Stream"
	DescPlaylistItem  = "M3U Stream"
	NameGenericItem   = "Watch Now"
	NameUnavailable   = "Error Info"
	episodeTitleStart = "Ep "
)

var releaseLayouts = []string{time.DateOnly, time.DateTime, time.RFC3339}

// Meta returns the detail record for id. Only Xtream series carry upstream details; every
// other id gets a placeholder.
func (s *Service) Meta(ctx context.Context, d descriptor.Descriptor, ct ContentType, id string) Result[Meta] {
	if strings.HasPrefix(id, streamid.PrefixPlaylist) {
		return Ok(Meta{ID: id, Type: ct, Name: NamePlaylistItem, Description: DescPlaylistItem})
	}
	if ct == TypeSeries && strings.HasPrefix(id, streamid.PrefixXtream) {
		sid, err := streamid.Parse(id)
		if err == nil && sid.Provenance == streamid.Series {
			x, ok := d.(descriptor.Xtream)
			if !ok {
				err = ErrUnknownDescriptor
			} else {
				r := s.SeriesMeta(ctx, x, sid.ItemID)
				r.Data.ID = id
				return r
			}
		}
		if err != nil {
			s.degraded(ctx, "meta", ct, err).Str(log.FieldStreamID, id).Msg("meta degraded")
			metrics.RecordResult("meta", string(ct), true)
			return Degraded(Meta{ID: id, Type: ct, Name: NameUnavailable}, err)
		}
	}
	return Ok(Meta{ID: id, Type: ct, Name: NameGenericItem})
}

// SeriesMeta expands a series into its episodes, ordered by season then episode.
func (s *Service) SeriesMeta(ctx context.Context, x descriptor.Xtream, seriesID string) Result[Meta] {
	id := streamid.NewSeries(seriesID).String()
	cctx, cancel := context.WithTimeout(ctx, s.timeouts.Series)
	defer cancel()
	info, err := s.xtream.SeriesInfo(cctx, x, seriesID)
	if err != nil {
		s.degraded(ctx, "meta", TypeSeries, err).Str(log.FieldStreamID, id).Msg("series meta degraded")
		metrics.RecordResult("meta", string(TypeSeries), true)
		return Degraded(Meta{ID: id, Type: TypeSeries, Name: NameUnavailable}, err)
	}
	metrics.RecordResult("meta", string(TypeSeries), false)
	return Ok(Meta{
		ID:          id,
		Type:        TypeSeries,
		Name:        info.Info.Name,
		Poster:      info.Info.Cover,
		Description: info.Info.Plot,
		Videos:      s.videos(info.Episodes),
	})
}

func (s *Service) videos(eps xtream.Episodes) []Video {
	now := s.now()
	out := make([]Video, 0, len(eps))
	for _, ep := range eps {
		if ep.ID == "" {
			continue
		}
		title := strings.TrimSpace(ep.Title)
		if title == "" {
			title = episodeTitleStart + ep.EpisodeNum.String()
		}
		out = append(out, Video{
			ID:       streamid.NewEpisode(ep.ID.String(), ep.ContainerExtension).String(),
			Title:    title,
			Season:   ep.SeasonNumber(),
			Episode:  ep.EpisodeNum.Int(),
			Released: releaseDate(ep.Info, now),
		})
	}
	SortVideos(out)
	return out
}

// SortVideos orders videos by (season, episode) ascending.
func SortVideos(v []Video) {
	sort.SliceStable(v, func(i, j int) bool {
		if v[i].Season != v[j].Season {
			return v[i].Season < v[j].Season
		}
		return v[i].Episode < v[j].Episode
	})
}

func releaseDate(info xtream.EpisodeInfo, fallback time.Time) time.Time {
	for _, raw := range []string{info.ReleaseDate, info.AirDate} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range releaseLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return fallback
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
