package common

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Tracking parameters stripped during URL normalization
var trackingParams = map[string]bool{
	"utm_source":     true,
	"utm_medium":     true,
	"utm_campaign":   true,
	"utm_term":       true,
	"utm_content":    true,
	"from":           true,
	"spm":            true,
	"share_token":    true,
	"wfr":            true,
	"isappinstalled": true,
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// CanonicalizeURL normalizes a URL for deduplication: lowercase scheme and
// host, tracking parameters removed, remaining query sorted by key, trailing
// slash stripped (root path stays "/"). Fragments are preserved so snapshot
// pseudo-URLs remain distinct.
func CanonicalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	if parsed.RawQuery != "" {
		values := parsed.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			if trackingParams[strings.ToLower(k)] {
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		for _, k := range keys {
			for _, v := range values[k] {
				if v == "" {
					continue
				}
				if sb.Len() > 0 {
					sb.WriteByte('&')
				}
				sb.WriteString(url.QueryEscape(k))
				sb.WriteByte('=')
				sb.WriteString(url.QueryEscape(v))
			}
		}
		parsed.RawQuery = sb.String()
	}

	path := strings.TrimRight(parsed.Path, "/")
	if path == "" {
		path = "/"
	}
	parsed.Path = path

	return parsed.String()
}

// URLHash computes the SHA-256 hash of a canonicalized URL
func URLHash(rawURL string) string {
	sum := sha256.Sum256([]byte(CanonicalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])
}

// ContentHash computes the SHA-256 hash of content text with whitespace
// collapsed, so formatting-only changes do not register as new content.
func ContentHash(content string) string {
	cleaned := whitespaceRe.ReplaceAllString(strings.TrimSpace(content), " ")
	sum := sha256.Sum256([]byte(cleaned))
	return hex.EncodeToString(sum[:])
}

// ResolveURL resolves a possibly-relative href against a base URL
func ResolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
