package webgrab

import (
	"net/url"
	"strings"
)

// Normalize resolves ref against base and returns an absolute URL.
// Fragments are stripped. Absolute http(s) references are returned as-is
// apart from the fragment and Canonical, so query strings survive untouched.
// An empty reference resolves to base. References that fail to parse are
// returned unchanged.
func Normalize(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Canonical(stripFragment(base))
	}
	ref = stripFragment(ref)
	if ref == "" {
		return Canonical(stripFragment(base))
	}

	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Canonical(ref)
	}

	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return Canonical(b.Scheme + ":" + ref)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	resolved := b.ResolveReference(r)
	resolved.Fragment = ""
	return Canonical(resolved.String())
}

// Canonical gives an http(s) URL with an empty path the root path "/", so
// "https://example.com" and "https://example.com/" are one URL. Anything
// else is returned unchanged.
func Canonical(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || u.Opaque != "" || u.Path != "" {
		return rawURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return rawURL
	}
	u.Path = "/"
	return u.String()
}

func stripFragment(s string) string {
	if idx := strings.Index(s, "#"); idx != -1 {
		return s[:idx]
	}
	return s
}

// IsSameDomain reports whether candidate belongs to the domain of base.
// The candidate host must equal the base host or be one of its subdomains.
// Relative references (including root-relative "/..." paths) carry no host
// and always belong to the base domain.
func IsSameDomain(base, candidate string) bool {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return false
	}
	if strings.HasPrefix(candidate, "/") && !strings.HasPrefix(candidate, "//") {
		return true
	}

	c, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if c.Scheme == "" && c.Host == "" {
		return true
	}
	b, err := url.Parse(base)
	if err != nil {
		return false
	}

	baseHost := strings.ToLower(b.Host)
	host := strings.ToLower(c.Host)
	if baseHost == "" || host == "" {
		return false
	}
	return host == baseHost || strings.HasSuffix(host, "."+baseHost)
}

// IsCrawlable reports whether candidate can be followed at all.
// Fragment-only anchors and javascript:, mailto:, tel: and data: targets
// are not crawlable.
func IsCrawlable(candidate string) bool {
	c := strings.ToLower(strings.TrimSpace(candidate))
	if c == "" {
		return false
	}
	for _, prefix := range []string{"#", "javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(c, prefix) {
			return false
		}
	}
	return true
}

// IsHTTPURL reports whether rawURL is an absolute http or https URL.
func IsHTTPURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// HostOf returns the host (including port) of rawURL, or "" when it cannot be parsed.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// SiteName derives a directory-friendly name from a URL: the host without
// a leading "www.". URLs without a scheme are treated as https.
func SiteName(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	host := HostOf(rawURL)
	return strings.TrimPrefix(host, "www.")
}
