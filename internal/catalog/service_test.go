package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/httpclient"
)

// panel fakes player_api.php: responses are keyed by action, with "action?category_id=N"
// and "action?search" taking precedence when the request carries those parameters.
type panel struct {
	responses map[string]string
	fail      map[string]int
	calls     atomic.Int32
	lastQuery atomic.Value
}

func (p *panel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.calls.Add(1)
	q := r.URL.Query()
	p.lastQuery.Store(r.URL.RawQuery)
	action := q.Get("action")
	if code, ok := p.fail[action]; ok {
		w.WriteHeader(code)
		return
	}
	key := action
	if c := q.Get("category_id"); c != "" {
		if _, ok := p.responses[action+"?category_id="+c]; ok {
			key = action + "?category_id=" + c
		}
	}
	if q.Has("search") {
		if _, ok := p.responses[action+"?search"]; ok {
			key = action + "?search"
		}
	}
	body, ok := p.responses[key]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Write([]byte(body))
}

func newXtreamService(t *testing.T, p *panel) (*Service, descriptor.Xtream) {
	t.Helper()
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	s := NewService(httpclient.New(nil, ""), Timeouts{})
	return s, descriptor.Xtream{Host: srv.URL, User: "u", Pass: "p"}
}

func streamsJSON(ids ...string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf(`{"stream_id":%s,"series_id":%s,"name":"Item %s","container_extension":"mkv","stream_icon":"icon%s.png"}`, id, id, id, id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestList_xtreamSortsMoviesAndSeries(t *testing.T) {
	p := &panel{responses: map[string]string{
		"get_vod_streams":  streamsJSON("5", "1", "9", "3"),
		"get_series":       streamsJSON("5", "1", "9", "3"),
		"get_live_streams": streamsJSON("5", "1", "9", "3"),
	}}
	s, x := newXtreamService(t, p)
	ctx := context.Background()

	movies := s.List(ctx, x, TypeMovie, Filter{})
	require.False(t, movies.IsDegraded())
	want := []string{"xtream:movie:9:mkv", "xtream:movie:5:mkv", "xtream:movie:3:mkv", "xtream:movie:1:mkv"}
	if diff := cmp.Diff(want, ids(movies.Data)); diff != "" {
		t.Errorf("movie order (-want +got):\n%s", diff)
	}
	assert.Equal(t, ShapePoster, movies.Data[0].PosterShape)
	assert.Equal(t, "icon9.png", movies.Data[0].Poster)
	assert.Equal(t, "Item 9", movies.Data[0].Name)

	series := s.List(ctx, x, TypeSeries, Filter{})
	want = []string{"xtream:series:9", "xtream:series:5", "xtream:series:3", "xtream:series:1"}
	if diff := cmp.Diff(want, ids(series.Data)); diff != "" {
		t.Errorf("series order (-want +got):\n%s", diff)
	}

	live := s.List(ctx, x, TypeTV, Filter{})
	want = []string{"xtream:live:5", "xtream:live:1", "xtream:live:9", "xtream:live:3"}
	if diff := cmp.Diff(want, ids(live.Data)); diff != "" {
		t.Errorf("live order (-want +got):\n%s", diff)
	}
	assert.Equal(t, ShapeSquare, live.Data[0].PosterShape)
}

func TestList_nonNumericIDsSortStable(t *testing.T) {
	p := &panel{responses: map[string]string{
		"get_vod_streams": `[{"stream_id":"abc","name":"A"},{"stream_id":2,"name":"B"},{"stream_id":"xyz","name":"C"}]`,
	}}
	s, x := newXtreamService(t, p)
	got := s.List(context.Background(), x, TypeMovie, Filter{})
	assert.Equal(t, []string{"xtream:movie:2:mp4", "xtream:movie:abc:mp4", "xtream:movie:xyz:mp4"}, ids(got.Data))
}

func TestList_pagination(t *testing.T) {
	all := make([]string, 150)
	for i := range all {
		all[i] = fmt.Sprint(i + 1)
	}
	p := &panel{responses: map[string]string{"get_live_streams": streamsJSON(all...)}}
	s, x := newXtreamService(t, p)
	ctx := context.Background()

	assert.Len(t, s.List(ctx, x, TypeTV, Filter{}).Data, 100)
	assert.Len(t, s.List(ctx, x, TypeTV, Filter{Skip: 120}).Data, 30)
	page := s.List(ctx, x, TypeTV, Filter{Skip: 200})
	assert.False(t, page.IsDegraded())
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Len(t, s.List(ctx, x, TypeTV, Filter{Skip: -5}).Data, 100)
}

func TestPaginate(t *testing.T) {
	entries := make([]Entry, 150)
	assert.Len(t, Paginate(entries, 0), 100)
	assert.Len(t, Paginate(entries, 120), 30)
	assert.Len(t, Paginate(entries, 150), 0)
	assert.Len(t, Paginate(nil, 0), 0)
	assert.NotNil(t, Paginate(nil, 0))
}

func TestList_genreResolves(t *testing.T) {
	p := &panel{responses: map[string]string{
		"get_vod_categories":            `[{"category_id":"1","category_name":"Action"},{"category_id":"2","category_name":"Drama"}]`,
		"get_vod_streams":               streamsJSON("1", "2", "3"),
		"get_vod_streams?category_id=2": streamsJSON("2"),
	}}
	s, x := newXtreamService(t, p)
	got := s.List(context.Background(), x, TypeMovie, Filter{Genre: "Drama"})
	require.False(t, got.IsDegraded())
	assert.Equal(t, []string{"xtream:movie:2:mkv"}, ids(got.Data))
}

func TestList_unmatchedGenreIsUnfiltered(t *testing.T) {
	p := &panel{responses: map[string]string{
		"get_vod_categories":            `[{"category_id":"2","category_name":"Drama"}]`,
		"get_vod_streams":               streamsJSON("1", "2", "3"),
		"get_vod_streams?category_id=2": streamsJSON("2"),
	}}
	s, x := newXtreamService(t, p)
	for _, genre := range []string{"drama", "Comedy", AllGenres, ""} {
		got := s.List(context.Background(), x, TypeMovie, Filter{Genre: genre})
		require.False(t, got.IsDegraded(), genre)
		assert.Len(t, got.Data, 3, genre)
	}
}

func TestList_categoryFailureDegrades(t *testing.T) {
	p := &panel{
		responses: map[string]string{"get_live_streams": streamsJSON("1")},
		fail:      map[string]int{"get_live_categories": http.StatusBadGateway},
	}
	s, x := newXtreamService(t, p)
	got := s.List(context.Background(), x, TypeTV, Filter{Genre: "News"})
	assert.True(t, got.IsDegraded())
	assert.NotNil(t, got.Data)
	assert.Empty(t, got.Data)
}

func TestList_searchBeatsGenre(t *testing.T) {
	p := &panel{responses: map[string]string{
		"get_vod_categories": `[{"category_id":"2","category_name":"Drama"}]`,
		"get_vod_streams?search": `[
			{"stream_id":1,"name":"The ÉCOLE Story"},
			{"stream_id":2,"name":"Unrelated"},
			{"stream_id":3,"name":"école de nuit"},
			{"stream_id":4,"name":null}
		]`,
	}}
	s, x := newXtreamService(t, p)
	got := s.List(context.Background(), x, TypeMovie, Filter{Genre: "Drama", Search: "École"})
	require.False(t, got.IsDegraded())
	assert.Equal(t, []string{"xtream:movie:3:mp4", "xtream:movie:1:mp4"}, ids(got.Data))
	q, _ := p.lastQuery.Load().(string)
	assert.Contains(t, q, "action=get_vod_streams&search=")
	assert.NotContains(t, q, "category_id")
}

func TestList_upstreamFailureDegrades(t *testing.T) {
	p := &panel{fail: map[string]int{"get_vod_streams": http.StatusInternalServerError}}
	s, x := newXtreamService(t, p)
	got := s.List(context.Background(), x, TypeMovie, Filter{})
	assert.True(t, got.IsDegraded())
	assert.Equal(t, []Entry{}, got.Data)

	got = s.List(context.Background(), nil, TypeTV, Filter{})
	assert.ErrorIs(t, got.Err, ErrUnknownDescriptor)
}

func TestList_unknownTypeIsEmptyAndUncounted(t *testing.T) {
	p := &panel{responses: map[string]string{"get_vod_streams": streamsJSON("1")}}
	s, x := newXtreamService(t, p)
	for i := range 20 {
		got := s.List(context.Background(), x, ContentType(fmt.Sprintf("radio%d", i)), Filter{})
		assert.False(t, got.IsDegraded())
		assert.Equal(t, []Entry{}, got.Data)
	}
	assert.Zero(t, p.calls.Load())

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "iptv_addon_catalog_results_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "type" {
					assert.True(t, ContentType(lp.GetValue()).Valid(), "unexpected type label %q", lp.GetValue())
				}
			}
		}
	}
}

const testPlaylist = `#EXTM3U
#EXTINF:-1 group-title="News" tvg-logo="bbc.png",BBC News
http://a/bbc.ts
#EXTINF:-1 group-title="Films",Old Film
http://a/old.mp4
#EXTINF:-1 group-title="Sport",Sky Sports
http://a/sky.m3u8
#EXTINF:-1 group-title="Films",New Film
http://a/new.mkv
#EXTINF:-1,Bare Channel
http://a/bare
`

func newPlaylistService(t *testing.T, body string) (*Service, descriptor.Playlist) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body == "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewService(httpclient.New(nil, ""), Timeouts{}), descriptor.Playlist{URL: srv.URL + "/list.m3u"}
}

func TestList_playlist(t *testing.T) {
	s, p := newPlaylistService(t, testPlaylist)
	ctx := context.Background()

	live := s.List(ctx, p, TypeTV, Filter{})
	require.False(t, live.IsDegraded())
	want := []Entry{
		{ID: "m3u:0:aHR0cDovL2EvYmJjLnRz", Type: TypeTV, Name: "BBC News", Poster: "bbc.png", PosterShape: ShapeSquare},
		{ID: "m3u:2:aHR0cDovL2Evc2t5Lm0zdTg", Type: TypeTV, Name: "Sky Sports", PosterShape: ShapeSquare},
		{ID: "m3u:4:aHR0cDovL2EvYmFyZQ", Type: TypeTV, Name: "Bare Channel", PosterShape: ShapeSquare},
	}
	if diff := cmp.Diff(want, live.Data); diff != "" {
		t.Errorf("live (-want +got):\n%s", diff)
	}

	movies := s.List(ctx, p, TypeMovie, Filter{})
	assert.Equal(t, []string{"New Film", "Old Film"}, names(movies.Data))

	news := s.List(ctx, p, TypeTV, Filter{Genre: "News"})
	assert.Equal(t, []string{"BBC News"}, names(news.Data))

	other := s.List(ctx, p, TypeTV, Filter{Genre: "Other"})
	assert.Equal(t, []string{"Bare Channel"}, names(other.Data))

	search := s.List(ctx, p, TypeTV, Filter{Genre: "News", Search: "sky"})
	assert.Equal(t, []string{"Sky Sports"}, names(search.Data))

	series := s.List(ctx, p, TypeSeries, Filter{})
	assert.False(t, series.IsDegraded())
	assert.Empty(t, series.Data)
}

func TestList_playlistFailureDegrades(t *testing.T) {
	s, p := newPlaylistService(t, "")
	got := s.List(context.Background(), p, TypeTV, Filter{})
	assert.True(t, got.IsDegraded())
	assert.Equal(t, []Entry{}, got.Data)

	got = s.List(context.Background(), descriptor.Playlist{URL: "file:///etc/passwd"}, TypeTV, Filter{})
	assert.True(t, got.IsDegraded())
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestResolveCategoryID(t *testing.T) {
	p := &panel{responses: map[string]string{
		"get_series_categories": `[{"category_id":11,"category_name":"Kids"},{"category_id":"12","category_name":"Docs"}]`,
	}}
	s, x := newXtreamService(t, p)
	id, found, err := s.ResolveCategoryID(context.Background(), x, TypeSeries, "Kids")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "11", id)

	_, found, err = s.ResolveCategoryID(context.Background(), x, TypeSeries, "kids")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGenres_xtreamIndependentFallbacks(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := &panel{
		responses: map[string]string{
			"get_live_categories":   `[{"category_id":"1","category_name":"News"},{"category_id":"2","category_name":"Sport"}]`,
			"get_series_categories": `[]`,
		},
		fail: map[string]int{"get_vod_categories": http.StatusInternalServerError},
	}
	srv := httptest.NewServer(p)
	hc := &httpclient.Client{HTTP: &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}}
	s := NewService(hc, Timeouts{})
	x := descriptor.Xtream{Host: srv.URL, User: "u", Pass: "p"}

	got := s.Genres(context.Background(), x)
	srv.Close()

	assert.Equal(t, []string{"News", "Sport"}, got.Live)
	assert.Equal(t, []string{AllGenres}, got.Movie)
	assert.Equal(t, []string{AllGenres}, got.Series)
	assert.EqualValues(t, 3, p.calls.Load())
}

func TestGenres_slowCategoryTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") == "get_series_categories" {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.Write([]byte(`[{"category_id":"1","category_name":"Any"}]`))
	}))
	defer srv.Close()
	defer close(release)

	s := NewService(httpclient.New(nil, ""), Timeouts{Category: 100 * time.Millisecond})
	x := descriptor.Xtream{Host: srv.URL, User: "u", Pass: "p"}
	start := time.Now()
	got := s.Genres(context.Background(), x)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"Any"}, got.Live)
	assert.Equal(t, []string{"Any"}, got.Movie)
	assert.Equal(t, []string{AllGenres}, got.Series)
}

func TestGenres_playlist(t *testing.T) {
	s, p := newPlaylistService(t, testPlaylist)
	got := s.Genres(context.Background(), p)
	assert.Equal(t, []string{"Films", "News", "Other", "Sport"}, got.Live)
	assert.Equal(t, got.Live, got.Movie)
	assert.Equal(t, []string{AllGenres}, got.Series)

	s, p = newPlaylistService(t, "")
	got = s.Genres(context.Background(), p)
	assert.Equal(t, Genres{Live: []string{AllGenres}, Movie: []string{AllGenres}, Series: []string{AllGenres}}, got)
}

func TestSeriesMeta(t *testing.T) {
	p := &panel{responses: map[string]string{
		"get_series_info": `{
			"info": {"name": "Show", "cover": "cover.jpg", "plot": "A show."},
			"episodes": {
				"2": [{"id": "21", "episode_num": 1, "container_extension": "mkv"}],
				"1": [
					{"id": "13", "episode_num": 3, "season": 1, "title": "Third", "info": {"releasedate": "2021-05-06"}},
					{"id": "11", "episode_num": 1, "season": 1, "title": "First", "info": {"air_date": "2021-04-01 20:00:00"}}
				]
			}
		}`,
	}}
	s, x := newXtreamService(t, p)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.Now = func() time.Time { return fixed }

	got := s.SeriesMeta(context.Background(), x, "77")
	require.False(t, got.IsDegraded())
	assert.Equal(t, "xtream:series:77", got.Data.ID)
	assert.Equal(t, "Show", got.Data.Name)
	assert.Equal(t, "cover.jpg", got.Data.Poster)
	assert.Equal(t, "A show.", got.Data.Description)
	want := []Video{
		{ID: "xtream:episode:11:mp4", Title: "First", Season: 1, Episode: 1, Released: time.Date(2021, 4, 1, 20, 0, 0, 0, time.UTC)},
		{ID: "xtream:episode:13:mp4", Title: "Third", Season: 1, Episode: 3, Released: time.Date(2021, 5, 6, 0, 0, 0, 0, time.UTC)},
		{ID: "xtream:episode:21:mkv", Title: "Ep 1", Season: 2, Episode: 1, Released: fixed},
	}
	if diff := cmp.Diff(want, got.Data.Videos); diff != "" {
		t.Errorf("videos (-want +got):\n%s", diff)
	}
}

func TestSortVideos(t *testing.T) {
	v := []Video{{Season: 2, Episode: 1}, {Season: 1, Episode: 3}, {Season: 1, Episode: 1}}
	SortVideos(v)
	got := make([][2]int, len(v))
	for i, x := range v {
		got[i] = [2]int{x.Season, x.Episode}
	}
	assert.Equal(t, [][2]int{{1, 1}, {1, 3}, {2, 1}}, got)
}

func TestSeriesMeta_failure(t *testing.T) {
	p := &panel{fail: map[string]int{"get_series_info": http.StatusBadGateway}}
	s, x := newXtreamService(t, p)
	got := s.SeriesMeta(context.Background(), x, "5")
	assert.True(t, got.IsDegraded())
	assert.Equal(t, Meta{ID: "xtream:series:5", Type: TypeSeries, Name: NameUnavailable}, got.Data)
}

func TestMeta_placeholders(t *testing.T) {
	p := &panel{responses: map[string]string{"get_series_info": `{"info":{"name":"S"},"episodes":[]}`}}
	s, x := newXtreamService(t, p)
	ctx := context.Background()

	m := s.Meta(ctx, x, TypeTV, "m3u:1:aGk")
	assert.Equal(t, Meta{ID: "m3u:1:aGk", Type: TypeTV, Name: NamePlaylistItem, Description: DescPlaylistItem}, m.Data)

	m = s.Meta(ctx, x, TypeMovie, "xtream:movie:1:mp4")
	assert.Equal(t, Meta{ID: "xtream:movie:1:mp4", Type: TypeMovie, Name: NameGenericItem}, m.Data)

	m = s.Meta(ctx, x, TypeSeries, "xtream:series:9")
	require.False(t, m.IsDegraded())
	assert.Equal(t, "S", m.Data.Name)
	assert.Equal(t, "xtream:series:9", m.Data.ID)

	m = s.Meta(ctx, descriptor.Playlist{URL: "http://x"}, TypeSeries, "xtream:series:9")
	assert.True(t, m.IsDegraded())
	assert.Equal(t, NameUnavailable, m.Data.Name)
}

func TestEntryJSON(t *testing.T) {
	b, err := json.Marshal(Entry{ID: "xtream:live:1", Type: TypeTV, Name: "A", PosterShape: ShapeSquare})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"xtream:live:1","type":"tv","name":"A","posterShape":"square"}`, string(b))
}
