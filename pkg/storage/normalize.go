package storage

import (
	"net/url"
	"strings"

	"github.com/gosimple/slug"
)

// Slugify turns an inventory name into its URL slug ("Cisco Systems" -> "cisco-systems").
func Slugify(s string) string {
	return slug.Make(s)
}

// NormalizeRemoteURL ensures consistent repository identity: lowercase host,
// https scheme, no trailing slash.
func NormalizeRemoteURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		u.Host = strings.ToLower(u.Host)
		if strings.HasSuffix(u.Path, "/") && len(u.Path) > 1 {
			u.Path = strings.TrimRight(u.Path, "/")
		}
		if u.Scheme == "" || u.Scheme == "http" {
			u.Scheme = "https"
		}
		return u.String()
	}
	return s
}
