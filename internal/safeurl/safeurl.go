package safeurl

import (
	"net/url"
	"strings"
)

// IsHTTPOrHTTPS returns true if u is a valid URL with scheme http or https and a host.
// Used to reject file://, ftp://, and other schemes that could lead to SSRF or local file access.
func IsHTTPOrHTTPS(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	s := parsed.Scheme
	return (s == "http" || s == "https") && parsed.Host != ""
}

var secretParams = map[string]bool{"password": true, "pass": true, "token": true}

// Redact masks userinfo passwords and credential query parameters so u can be logged.
// Unparseable input is replaced entirely.
func Redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return "[unparseable url]"
	}
	if parsed.User != nil {
		if _, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(parsed.User.Username(), "***")
		}
	}
	if parsed.RawQuery != "" {
		parts := strings.Split(parsed.RawQuery, "&")
		for i, p := range parts {
			k, _, ok := strings.Cut(p, "=")
			if ok && secretParams[strings.ToLower(k)] {
				parts[i] = k + "=***"
			}
		}
		parsed.RawQuery = strings.Join(parts, "&")
	}
	return parsed.String()
}
