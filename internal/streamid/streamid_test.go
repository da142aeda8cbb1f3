package streamid

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapetech/iptvaddon/internal/descriptor"
)

func TestRoundTrip(t *testing.T) {
	ids := []ID{
		NewLive("1234"),
		NewMovie("99", "mkv"),
		NewMovie("99", ""),
		NewEpisode("5001", "MP4"),
		NewSeries("17"),
		NewPlaylistEntry(0, "http://a/b.ts"),
		NewPlaylistEntry(42, "https://cdn.example/vod/film.mp4?token=a+b/c=="),
		NewPlaylistEntry(7, "http://example.com/ünïcode"),
	}
	for _, id := range ids {
		s := id.String()
		got, err := Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, id, got, s)
		assert.Equal(t, s, got.String())
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "xtream:live:1", NewLive("1").String())
	assert.Equal(t, "xtream:movie:2:mkv", NewMovie("2", "mkv").String())
	assert.Equal(t, "xtream:movie:2:mp4", NewMovie("2", "").String())
	assert.Equal(t, "xtream:movie:2:mp4", NewMovie("2", "longextension").String())
	assert.Equal(t, "xtream:episode:3:avi", NewEpisode("3", ".avi").String())
	assert.Equal(t, "xtream:series:4", NewSeries("4").String())
	assert.Equal(t, "m3u:5:aHR0cDovL2EvYi50cw", NewPlaylistEntry(5, "http://a/b.ts").String())
	assert.Equal(t, "", ID{}.String())
}

func TestParse_legacyPayload(t *testing.T) {
	u := "http://example.com/?a=>>>&b=???"
	std := base64.StdEncoding.EncodeToString([]byte(u))
	require.Contains(t, std, "+")
	got, err := Parse("m3u:3:" + std)
	require.NoError(t, err)
	assert.Equal(t, NewPlaylistEntry(3, u), got)
}

func TestParse_movieWithoutExt(t *testing.T) {
	got, err := Parse("xtream:movie:12")
	require.NoError(t, err)
	assert.Equal(t, NewMovie("12", "mp4"), got)
	got, err = Parse("xtream:episode:12:")
	require.NoError(t, err)
	assert.Equal(t, "mp4", got.Ext)
}

func TestParse_errors(t *testing.T) {
	for _, s := range []string{
		"",
		"tt1234567",
		"xtream:",
		"xtream:live",
		"xtream:live:",
		"xtream:live:1:2",
		"xtream:series:1:x",
		"xtream:movie:1:mkv:extra",
		"xtream:radio:1",
		"m3u:",
		"m3u:x:aGk",
		"m3u:-1:aGk",
		"m3u:1",
		"m3u:1:***",
	} {
		_, err := Parse(s)
		assert.True(t, errors.Is(err, ErrMalformed), "Parse(%q) err = %v", s, err)
	}
}

func TestResolve(t *testing.T) {
	x := descriptor.Xtream{Host: "http://h.example:8080", User: "u", Pass: "p"}
	pl := descriptor.Playlist{URL: "http://list.example/get.m3u"}
	tests := []struct {
		name string
		r    Resolver
		d    descriptor.Descriptor
		id   ID
		want string
	}{
		{"live default", Resolver{}, x, NewLive("1"), "http://h.example:8080/u/p/1"},
		{"live ts", Resolver{LiveTemplate: LiveTemplateTS}, x, NewLive("1"), "http://h.example:8080/live/u/p/1.ts"},
		{"movie", Resolver{}, x, NewMovie("2", "mkv"), "http://h.example:8080/movie/u/p/2.mkv"},
		{"episode", Resolver{}, x, NewEpisode("3", "mp4"), "http://h.example:8080/series/u/p/3.mp4"},
		{"playlist ignores descriptor", Resolver{}, x, NewPlaylistEntry(0, "http://a/b.ts"), "http://a/b.ts"},
		{"playlist under playlist", Resolver{}, pl, NewPlaylistEntry(1, "http://a/c.ts"), "http://a/c.ts"},
		{"pointer descriptor", Resolver{}, &x, NewLive("9"), "http://h.example:8080/u/p/9"},
		{"escaped credentials", Resolver{}, descriptor.Xtream{Host: "http://h", User: "a/b", Pass: "c d?"}, NewMovie("1", "mp4"), "http://h/movie/a%2Fb/c%20d%3F/1.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.r.Resolve(tt.d, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_errors(t *testing.T) {
	x := descriptor.Xtream{Host: "http://h", User: "u", Pass: "p"}
	pl := descriptor.Playlist{URL: "http://list"}
	var r Resolver

	_, err := r.Resolve(x, NewSeries("1"))
	assert.ErrorIs(t, err, ErrNotPlayable)
	_, err = r.Resolve(pl, NewLive("1"))
	assert.ErrorIs(t, err, ErrBackendMismatch)
	_, err = r.Resolve(nil, NewMovie("1", "mkv"))
	assert.ErrorIs(t, err, ErrBackendMismatch)
	_, err = r.Resolve(x, NewPlaylistEntry(0, ""))
	assert.ErrorIs(t, err, ErrInvalidPlaylistURL)
	_, err = r.Resolve(x, ID{})
	assert.ErrorIs(t, err, ErrNotPlayable)
}
