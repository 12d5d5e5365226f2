package common

import (
	"net/url"
	"strings"
)

// JoinURL joins a base URL with path segments, keeping any query string on the last segment.
// JoinURL("http://shop.local/", "/admin-dev", "/index.php?controller=AdminTaxes")
// returns "http://shop.local/admin-dev/index.php?controller=AdminTaxes".
func JoinURL(base string, segments ...string) string {
	result := strings.TrimRight(base, "/")
	for _, segment := range segments {
		segment = strings.Trim(segment, "/")
		if segment == "" {
			continue
		}
		result += "/" + segment
	}
	return result
}

// SameOrigin reports whether two absolute URLs share scheme and host
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) && strings.EqualFold(ua.Host, ub.Host)
}
