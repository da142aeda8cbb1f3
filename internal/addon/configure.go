package addon

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/snapetech/iptvaddon/internal/descriptor"
	"github.com/snapetech/iptvaddon/internal/log"
	"github.com/snapetech/iptvaddon/internal/safeurl"
)

//go:embed templates/configure.html
var templateFS embed.FS

var configureTmpl = template.Must(template.ParseFS(templateFS, "templates/configure.html"))

type configurePage struct {
	Name    string
	Version string
	Error   string
}

const maxFormBytes = 16 << 10

var (
	errMissingFields = errors.New("server URL, username and password are required")
	errBadServerURL  = errors.New("server URL must start with http:// or https://")
	errBadPlaylist   = errors.New("playlist URL must start with http:// or https://")
	errUnknownMode   = errors.New("choose Xtream Codes or M3U playlist")
)

func (s *Server) handleConfigurePage(w http.ResponseWriter, r *http.Request) {
	s.renderConfigure(w, r, http.StatusOK, "")
}

func (s *Server) renderConfigure(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := configureTmpl.Execute(w, configurePage{Name: addonName, Version: Version, Error: msg}); err != nil {
		logger := log.Correlate(r.Context(), s.logger)
		logger.Warn().Err(err).Msg("render configure page")
	}
}

// handleConfigureSubmit mints a token from the form and redirects to the stremio:// install link.
func (s *Server) handleConfigureSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.renderConfigure(w, r, http.StatusBadRequest, "could not read the form")
		return
	}
	d, err := descriptorFromForm(r)
	if err != nil {
		s.renderConfigure(w, r, http.StatusBadRequest, err.Error())
		return
	}
	token, err := descriptor.Encode(d)
	if err != nil {
		s.renderConfigure(w, r, http.StatusInternalServerError, "could not build the install link")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, InstallURL(s.publicHost(r), token), http.StatusSeeOther)
}

func descriptorFromForm(r *http.Request) (descriptor.Descriptor, error) {
	switch strings.TrimSpace(r.PostFormValue("mode")) {
	case string(descriptor.KindXtream):
		host := strings.TrimSpace(r.PostFormValue("host"))
		user := strings.TrimSpace(r.PostFormValue("user"))
		pass := strings.TrimSpace(r.PostFormValue("pass"))
		if host == "" || user == "" || pass == "" {
			return nil, errMissingFields
		}
		x := descriptor.NewXtream(host, user, pass)
		if !safeurl.IsHTTPOrHTTPS(x.Host) {
			return nil, errBadServerURL
		}
		return x, nil
	case string(descriptor.KindPlaylist):
		p := descriptor.NewPlaylist(r.PostFormValue("url"))
		if !safeurl.IsHTTPOrHTTPS(p.URL) {
			return nil, errBadPlaylist
		}
		return p, nil
	default:
		return nil, errUnknownMode
	}
}

func (s *Server) publicHost(r *http.Request) string {
	if s.cfg.PublicHost != "" {
		return s.cfg.PublicHost
	}
	return r.Host
}

// InstallURL is the stremio:// link that installs the addon configured by token.
func InstallURL(host, token string) string {
	return "stremio://" + host + "/" + token + "/manifest.json"
}
