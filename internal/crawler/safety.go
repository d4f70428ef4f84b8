package crawler

import (
	"net/url"
	"strings"
)

// maxURLLength is the longest URL accepted for crawling or archiving.
const maxURLLength = 2048

// forbiddenChars never appear in a well-formed absolute URL and commonly
// indicate header-splitting or markup injection attempts.
const forbiddenChars = " <>\"{}|\\^`\t\n\r"

// IsSafe reports whether rawURL is acceptable to queue or fetch. It is a
// pure predicate and the only defense against server-side request forgery
// via crawled links: it rejects non-http(s) schemes (including disguised
// javascript:/data: links), oversized or malformed URLs, and hostnames that
// lexically resolve to loopback, private, or link-local address space.
func IsSafe(rawURL string) bool {
	if rawURL == "" || len(rawURL) > maxURLLength {
		return false
	}
	if strings.ContainsAny(rawURL, forbiddenChars) {
		return false
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	return !isPrivateHost(host)
}

// isPrivateHost lexically matches loopback, RFC 1918, and link-local hosts.
// It intentionally does not resolve DNS; resolution happens at fetch time
// and the predicate must stay side-effect free.
func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if host == "::1" || host == "[::1]" {
		return true
	}
	for _, prefix := range []string{"127.", "10.", "192.168.", "169.254."} {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	// 172.16.0.0/12 spans 172.16.* through 172.31.*.
	if rest, ok := strings.CutPrefix(host, "172."); ok {
		octet, _, found := strings.Cut(rest, ".")
		if found && len(octet) == 2 && octet >= "16" && octet <= "31" {
			return true
		}
	}
	return false
}
