package addon

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/snapetech/iptvaddon/internal/catalog"
	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/log"
	"github.com/snapetech/iptvaddon/internal/metrics"
	"github.com/snapetech/iptvaddon/internal/streamid"
)

type catalogResponse struct {
	Metas []catalog.Entry `json:"metas"`
}

type metaResponse struct {
	Meta catalog.Meta `json:"meta"`
}

type streamResponse struct {
	Streams []Stream `json:"streams"`
}

// Stream is one playable source of a stream response.
type Stream struct {
	Title         string       `json:"title"`
	URL           string       `json:"url"`
	BehaviorHints *streamHints `json:"behaviorHints,omitempty"`
}

type streamHints struct {
	NotWebReady bool   `json:"notWebReady,omitempty"`
	BingeGroup  string `json:"bingeGroup,omitempty"`
}

// decode reads the descriptor token of the request. Failures are counted and logged, and the
// caller decides how to degrade.
func (s *Server) decode(r *http.Request, res resource) (descriptor.Descriptor, error) {
	d, err := descriptor.Decode(chi.URLParam(r, "token"))
	if err != nil {
		metrics.RecordTokenDecodeFailure(string(res))
		logger := log.Correlate(r.Context(), s.logger)
		logger.Debug().Err(err).Str("resource", string(res)).Msg("invalid descriptor token")
	}
	return d, err
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	var f catalog.Filter
	if chi.URLParam(r, "extra") == "" {
		if _, ok := trimJSON(chi.URLParam(r, "id")); !ok {
			http.NotFound(w, r)
			return
		}
	} else {
		extra, ok := trimJSON(rawPathParam(r, "extra"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		f = parseExtra(extra)
	}
	ct := catalog.ContentType(pathParam(r, "type"))

	d, err := s.decode(r, resCatalog)
	if err != nil {
		s.writeJSON(w, r, resCatalog, catalogResponse{Metas: []catalog.Entry{}}, true)
		return
	}
	res := s.catalog.List(r.Context(), d, ct, f)
	s.writeJSON(w, r, resCatalog, catalogResponse{Metas: res.Data}, res.IsDegraded())
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := trimJSON(pathParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	ct := catalog.ContentType(pathParam(r, "type"))
	// Playlist and placeholder metas do not need the descriptor, so a bad token still gets one.
	d, _ := s.decode(r, resMeta)
	res := s.catalog.Meta(r.Context(), d, ct, id)
	s.writeJSON(w, r, resMeta, metaResponse{Meta: res.Data}, res.IsDegraded())
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	raw, ok := trimJSON(pathParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	logger := log.Correlate(r.Context(), s.logger)
	empty := streamResponse{Streams: []Stream{}}

	id, err := streamid.Parse(raw)
	if err != nil {
		logger.Debug().Err(err).Msg("unparseable stream id")
		s.writeJSON(w, r, resStream, empty, true)
		return
	}
	var d descriptor.Descriptor
	if id.IsXtream() {
		if d, err = s.decode(r, resStream); err != nil {
			s.writeJSON(w, r, resStream, empty, true)
			return
		}
	}
	streamURL, err := s.resolver.Resolve(d, id)
	if err != nil {
		logger.Debug().Err(err).Str(log.FieldStreamID, string(id.Provenance)).Msg("stream not resolvable")
		s.writeJSON(w, r, resStream, empty, true)
		return
	}
	s.writeJSON(w, r, resStream, streamResponse{Streams: []Stream{newStream(id, streamURL)}}, false)
}

func newStream(id streamid.ID, streamURL string) Stream {
	st := Stream{Title: "Stream", URL: streamURL}
	switch id.Provenance {
	case streamid.Live:
		if !isHLS(streamURL) {
			st.BehaviorHints = &streamHints{NotWebReady: true}
		}
	case streamid.Episode:
		st.BehaviorHints = &streamHints{BingeGroup: "iptv-addon-episode-" + id.Ext}
	}
	return st
}

func isHLS(streamURL string) bool {
	p := streamURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.HasSuffix(strings.ToLower(p), ".m3u8")
}
