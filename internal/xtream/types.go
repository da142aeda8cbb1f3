package xtream

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// FlexString accepts a JSON string, number or null. Panels disagree on whether ids are quoted.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
	case bytes.Equal(b, []byte("true")), bytes.Equal(b, []byte("false")):
		*f = FlexString(b)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		if i, err := n.Int64(); err == nil {
			*f = FlexString(strconv.FormatInt(i, 10))
		} else if fl, err := n.Float64(); err == nil && fl == float64(int64(fl)) {
			*f = FlexString(strconv.FormatInt(int64(fl), 10))
		} else {
			*f = FlexString(n.String())
		}
	}
	return nil
}

func (f FlexString) String() string { return string(f) }

// Int parses f as a base-10 integer; anything else yields 0.
func (f FlexString) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}

// Category is one entry of get_{live,vod,series}_categories.
type Category struct {
	ID   FlexString `json:"category_id"`
	Name string     `json:"category_name"`
}

// Stream is one entry of get_live_streams, get_vod_streams or get_series.
// Live and VOD entries carry StreamID; series entries carry SeriesID and Cover.
type Stream struct {
	StreamID           FlexString `json:"stream_id"`
	SeriesID           FlexString `json:"series_id"`
	Name               FlexString `json:"name"`
	StreamIcon         string     `json:"stream_icon"`
	Cover              string     `json:"cover"`
	ContainerExtension string     `json:"container_extension"`
	CategoryID         FlexString `json:"category_id"`
}

// Poster returns stream_icon, falling back to cover.
func (s Stream) Poster() string {
	if s.StreamIcon != "" {
		return s.StreamIcon
	}
	return s.Cover
}

// SeriesInfo is the get_series_info response.
type SeriesInfo struct {
	Info     SeriesDetails `json:"info"`
	Episodes Episodes      `json:"episodes"`
}

// SeriesDetails is the "info" object. Some panels send [] when they have nothing.
type SeriesDetails struct {
	Name  string `json:"name"`
	Cover string `json:"cover"`
	Plot  string `json:"plot"`
}

func (d *SeriesDetails) UnmarshalJSON(b []byte) error {
	if isEmptyOrArray(b) {
		*d = SeriesDetails{}
		return nil
	}
	type plain SeriesDetails
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*d = SeriesDetails(p)
	return nil
}

// Episode is one episode of a series. SeasonKey is the season the panel filed it under.
type Episode struct {
	ID                 FlexString  `json:"id"`
	EpisodeNum         FlexString  `json:"episode_num"`
	Title              string      `json:"title"`
	Season             FlexString  `json:"season"`
	ContainerExtension string      `json:"container_extension"`
	Info               EpisodeInfo `json:"info"`
	SeasonKey          string      `json:"-"`
}

// SeasonNumber is the episode's own season, or the season it was filed under.
func (e Episode) SeasonNumber() int {
	if n := e.Season.Int(); n > 0 {
		return n
	}
	n, _ := strconv.Atoi(strings.TrimSpace(e.SeasonKey))
	return n
}

// EpisodeInfo carries the optional per-episode details.
type EpisodeInfo struct {
	ReleaseDate string `json:"releasedate"`
	AirDate     string `json:"air_date"`
	MovieImage  string `json:"movie_image"`
	Plot        string `json:"plot"`
}

func (i *EpisodeInfo) UnmarshalJSON(b []byte) error {
	if isEmptyOrArray(b) {
		*i = EpisodeInfo{}
		return nil
	}
	type plain EpisodeInfo
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*i = EpisodeInfo(p)
	return nil
}

// Episodes flattens the "episodes" field, which panels send either as an object keyed by
// season number or as a list of per-season lists.
type Episodes []Episode

func (e *Episodes) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = nil
		return nil
	}
	var out Episodes
	if b[0] == '[' {
		var seasons [][]Episode
		if err := json.Unmarshal(b, &seasons); err != nil {
			return err
		}
		for i, eps := range seasons {
			key := strconv.Itoa(i + 1)
			for _, ep := range eps {
				ep.SeasonKey = key
				out = append(out, ep)
			}
		}
		*e = out
		return nil
	}
	var bySeason map[string][]Episode
	if err := json.Unmarshal(b, &bySeason); err != nil {
		return err
	}
	keys := make([]string, 0, len(bySeason))
	for k := range bySeason {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, ep := range bySeason[k] {
			ep.SeasonKey = k
			out = append(out, ep)
		}
	}
	*e = out
	return nil
}

func isEmptyOrArray(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || b[0] == '[' || bytes.Equal(b, []byte("null"))
}
