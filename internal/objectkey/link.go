package objectkey

import (
	"net/url"
	"strings"
)

// DownloadURL returns the public link for key under domain, or "" when no
// domain is configured. A domain without scheme is served over https.
func DownloadURL(domain, key string) string {
	if domain == "" {
		return ""
	}

	domain = strings.TrimSuffix(domain, "/")
	if !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}

	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return domain + "/" + strings.Join(segments, "/")
}
