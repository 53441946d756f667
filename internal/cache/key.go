package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces detail cache entries.
const KeyPrefix = "pricehound:detail:"

// DetailKey returns the cache key for a detail page link. Memcache keys are
// limited to 250 bytes without spaces, so the canonical URL is hashed.
func DetailKey(link string) string {
	h := sha256.Sum256([]byte(CanonicalizeURL(link)))
	return KeyPrefix + hex.EncodeToString(h[:16])
}

// CanonicalizeURL normalizes a URL so equivalent links share a key:
// lowercase scheme and host, no fragment, no default port, sorted query
// parameters, and no trailing slash except on the root.
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
