// Package streamid defines the compound item ids handed to Stremio and turns them back
// into playable URLs.
//
//	xtream:live:<streamId>
//	xtream:movie:<streamId>:<ext>
//	xtream:episode:<episodeId>:<ext>
//	xtream:series:<seriesId>
//	m3u:<index>:<base64url(url)>
package streamid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Provenance says where an id came from and how it resolves.
type Provenance string

const (
	Live     Provenance = "live"
	Movie    Provenance = "movie"
	Episode  Provenance = "episode"
	Series   Provenance = "series"
	Playlist Provenance = "m3u"
)

// Id prefixes advertised in the manifest.
const (
	PrefixXtream   = "xtream:"
	PrefixPlaylist = "m3u:"
)

// DefaultExt is used when a panel reports no usable container extension.
const DefaultExt = "mp4"

const maxExtLen = 5

// ErrMalformed is matched by every Parse failure.
var ErrMalformed = errors.New("malformed stream id")

// ID is a parsed compound id. Only the fields relevant to Provenance are set.
type ID struct {
	Provenance Provenance
	ItemID     string // Xtream stream, episode or series id
	Ext        string // movie and episode container extension
	Index      int    // playlist position
	URL        string // playlist stream URL
}

// NewLive returns the id of a live channel.
func NewLive(streamID string) ID { return ID{Provenance: Live, ItemID: streamID} }

// NewMovie returns the id of a VOD item.
func NewMovie(streamID, ext string) ID {
	return ID{Provenance: Movie, ItemID: streamID, Ext: NormalizeExt(ext)}
}

// NewEpisode returns the id of a series episode.
func NewEpisode(episodeID, ext string) ID {
	return ID{Provenance: Episode, ItemID: episodeID, Ext: NormalizeExt(ext)}
}

// NewSeries returns the id of a series. Series ids are not playable.
func NewSeries(seriesID string) ID { return ID{Provenance: Series, ItemID: seriesID} }

// NewPlaylistEntry returns the id of the playlist item at index.
func NewPlaylistEntry(index int, streamURL string) ID {
	return ID{Provenance: Playlist, Index: index, URL: streamURL}
}

// NormalizeExt lower-cases ext and strips a leading dot; empty or implausibly long values become DefaultExt.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" || len(ext) > maxExtLen || strings.ContainsAny(ext, ":/?#") {
		return DefaultExt
	}
	return ext
}

// IsXtream reports whether the id needs an Xtream descriptor to resolve.
func (id ID) IsXtream() bool { return id.Provenance != Playlist && id.Provenance != "" }

func (id ID) String() string {
	switch id.Provenance {
	case Live, Series:
		return PrefixXtream + string(id.Provenance) + ":" + id.ItemID
	case Movie, Episode:
		return PrefixXtream + string(id.Provenance) + ":" + id.ItemID + ":" + id.Ext
	case Playlist:
		return PrefixPlaylist + strconv.Itoa(id.Index) + ":" + base64.RawURLEncoding.EncodeToString([]byte(id.URL))
	default:
		return ""
	}
}

// Parse splits s into its parts. Playlist URL payloads minted with the standard base64
// alphabet or padding are accepted.
func Parse(s string) (ID, error) {
	switch {
	case strings.HasPrefix(s, PrefixPlaylist):
		return parsePlaylist(strings.TrimPrefix(s, PrefixPlaylist))
	case strings.HasPrefix(s, PrefixXtream):
		return parseXtream(strings.TrimPrefix(s, PrefixXtream))
	default:
		return ID{}, malformed(s, "unknown prefix")
	}
}

func parsePlaylist(rest string) (ID, error) {
	idx, payload, ok := strings.Cut(rest, ":")
	if !ok {
		return ID{}, malformed(PrefixPlaylist+rest, "missing url")
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return ID{}, malformed(PrefixPlaylist+rest, "bad index")
	}
	payload = strings.NewReplacer("+", "-", "/", "_").Replace(strings.TrimRight(payload, "="))
	u, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return ID{}, malformed(PrefixPlaylist+rest, "bad url payload")
	}
	return NewPlaylistEntry(n, string(u)), nil
}

func parseXtream(rest string) (ID, error) {
	parts := strings.Split(rest, ":")
	if len(parts) < 2 || parts[1] == "" {
		return ID{}, malformed(PrefixXtream+rest, "missing item id")
	}
	switch Provenance(parts[0]) {
	case Live:
		if len(parts) != 2 {
			break
		}
		return NewLive(parts[1]), nil
	case Series:
		if len(parts) != 2 {
			break
		}
		return NewSeries(parts[1]), nil
	case Movie, Episode:
		if len(parts) > 3 {
			break
		}
		ext := ""
		if len(parts) == 3 {
			ext = parts[2]
		}
		return ID{Provenance: Provenance(parts[0]), ItemID: parts[1], Ext: NormalizeExt(ext)}, nil
	default:
		return ID{}, malformed(PrefixXtream+rest, "unknown kind")
	}
	return ID{}, malformed(PrefixXtream+rest, "wrong number of parts")
}

func malformed(s, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrMalformed, s, reason)
}
