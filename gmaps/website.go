package gmaps

import (
	"net/url"
	"strings"
)

// UnwrapRedirect extracts the target of a Google "/url?q=" redirect link.
// Other links are returned unchanged.
func UnwrapRedirect(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Path != "/url" {
		return rawURL
	}

	for _, key := range []string{"q", "url"} {
		if target := u.Query().Get(key); strings.HasPrefix(target, "http") {
			return target
		}
	}

	return rawURL
}

// WebsiteDomain reduces a website link to its bare domain, collapsing
// multi-part TLDs such as .com.au to the registrable part.
func WebsiteDomain(rawURL string) (string, bool) {
	target := UnwrapRedirect(strings.TrimSpace(rawURL))
	if !strings.HasPrefix(target, "http") {
		return "", false
	}

	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return "", false
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")

	parts := strings.Split(host, ".")

	switch {
	case len(parts) > 2 && len(parts[len(parts)-1]) <= 3 && len(parts[len(parts)-2]) <= 3:
		host = strings.Join(parts[len(parts)-3:], ".")
	case len(parts) > 2:
		host = strings.Join(parts[len(parts)-2:], ".")
	}

	return host, host != ""
}
