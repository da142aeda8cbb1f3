// Package descriptor encodes the backend connection descriptor into the opaque token
// carried in every addon request path, and decodes it back.
//
// The token is the only storage a descriptor ever has: base64url (no padding) over a
// compact JSON record. Anything that mints or reads tokens goes through Encode / Decode.
package descriptor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Kind tags the backend a descriptor points at. The values are the wire "mode" field.
type Kind string

const (
	KindXtream   Kind = "xtream"
	KindPlaylist Kind = "m3u"
)

// Descriptor is either Xtream or Playlist.
type Descriptor interface {
	Kind() Kind
	isDescriptor()
}

// Xtream is an Xtream Codes panel reached through player_api.php.
// Host always carries a scheme and never a trailing slash.
type Xtream struct {
	Host string
	User string
	Pass string
}

func (Xtream) Kind() Kind    { return KindXtream }
func (Xtream) isDescriptor() {}

// Playlist is a plain M3U playlist URL.
type Playlist struct {
	URL string
}

func (Playlist) Kind() Kind    { return KindPlaylist }
func (Playlist) isDescriptor() {}

// NewXtream builds an Xtream descriptor with a normalized host.
func NewXtream(host, user, pass string) Xtream {
	return Xtream{Host: NormalizeHost(host), User: strings.TrimSpace(user), Pass: strings.TrimSpace(pass)}
}

// NewPlaylist builds a Playlist descriptor.
func NewPlaylist(rawURL string) Playlist {
	return Playlist{URL: strings.TrimSpace(rawURL)}
}

// ErrInvalidToken is matched by every *DecodeError.
var ErrInvalidToken = errors.New("invalid descriptor token")

// DecodeError reports why a token could not be turned into a descriptor.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return "decode descriptor: " + e.Reason + ": " + e.Err.Error()
	}
	return "decode descriptor: " + e.Reason
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidToken, e.Err}
	}
	return []error{ErrInvalidToken}
}

// record is the wire shape. Field names are shared with tokens minted by existing installs.
type record struct {
	Mode string `json:"mode"`
	Host string `json:"host,omitempty"`
	User string `json:"user,omitempty"`
	Pass string `json:"pass,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Encode serializes d into a token safe to use as a single URL path segment.
func Encode(d Descriptor) (string, error) {
	var rec record
	switch v := d.(type) {
	case Xtream:
		rec = record{Mode: string(KindXtream), Host: v.Host, User: v.User, Pass: v.Pass}
	case *Xtream:
		rec = record{Mode: string(KindXtream), Host: v.Host, User: v.User, Pass: v.Pass}
	case Playlist:
		rec = record{Mode: string(KindPlaylist), URL: v.URL}
	case *Playlist:
		rec = record{Mode: string(KindPlaylist), URL: v.URL}
	default:
		return "", fmt.Errorf("encode descriptor: unsupported type %T", d)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode descriptor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Decode parses a token produced by Encode. Tokens minted with the standard base64
// alphabet or with padding are accepted too. The host is returned as stored, apart from
// trailing slashes; normalization belongs to NewXtream.
func Decode(token string) (Descriptor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &DecodeError{Reason: "empty token"}
	}
	token = strings.TrimRight(token, "=")
	token = strings.NewReplacer("+", "-", "/", "_").Replace(token)
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, &DecodeError{Reason: "malformed base64", Err: err}
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, &DecodeError{Reason: "malformed payload", Err: err}
	}
	switch Kind(rec.Mode) {
	case KindXtream:
		return Xtream{Host: strings.TrimRight(rec.Host, "/"), User: rec.User, Pass: rec.Pass}, nil
	case KindPlaylist:
		return Playlist{URL: rec.URL}, nil
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown mode %q", rec.Mode)}
	}
}

// NormalizeHost trims whitespace and trailing slashes, defaults the scheme to http and
// converts internationalized hostnames to their ASCII form.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimRight(host, "/")
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return host
	}
	name := u.Hostname()
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil || ascii == name {
		return host
	}
	if port := u.Port(); port != "" {
		u.Host = ascii + ":" + port
	} else {
		u.Host = ascii
	}
	return strings.TrimRight(u.String(), "/")
}
