package addon

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/snapetech/iptvaddon/internal/log"
)

type resource string

const (
	resManifest resource = "manifest"
	resCatalog  resource = "catalog"
	resMeta     resource = "meta"
	resStream   resource = "stream"
)

// cacheControl is the Cache-Control value for a successful response of kind res.
// Degraded responses are never cached.
func (s *Server) cacheControl(res resource, degraded bool) string {
	if degraded {
		return "no-store"
	}
	if res == resCatalog && s.cfg.CatalogCacheMaxAge > 0 {
		return "max-age=" + strconv.Itoa(int(s.cfg.CatalogCacheMaxAge.Seconds()))
	}
	return "max-age=0"
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, res resource, v any, degraded bool) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", s.cacheControl(res, degraded))
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.Correlate(r.Context(), s.logger)
		logger.Debug().Err(err).Str("resource", string(res)).Msg("write response")
	}
}

// writeError sends {"error": code}. Error bodies are never cached.
func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
