package crawler

import (
	"strings"
	"testing"
)

func TestIsSafeAcceptsPublicHTTPURLs(t *testing.T) {
	t.Parallel()

	for _, u := range []string{
		"https://blog.example.com/",
		"https://blog.example.com/post/1?a=b",
		"http://news.example.org/section",
		"https://example.com:8443/path",
	} {
		if !IsSafe(u) {
			t.Fatalf("expected %q to be safe", u)
		}
	}
}

func TestIsSafeRejectsUnsafeURLs(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":              "",
		"javascript scheme":  "javascript:alert(1)",
		"data scheme":        "data:text/html,<h1>x</h1>",
		"ftp scheme":         "ftp://example.com/file",
		"no host":            "https:///path",
		"space":              "https://example.com/a b",
		"angle bracket":      "https://example.com/<script>",
		"newline":            "https://example.com/a\nb",
		"localhost":          "http://localhost/admin",
		"localhost subhost":  "http://db.localhost/",
		"loopback v4":        "http://127.0.0.1/",
		"loopback v6":        "http://[::1]/",
		"rfc1918 ten":        "http://10.1.2.3/",
		"rfc1918 mid":        "http://172.16.0.1/",
		"rfc1918 mid high":   "http://172.31.255.1/",
		"rfc1918 household":  "http://192.168.1.1/",
		"link local":         "http://169.254.169.254/latest/meta-data/",
		"over length budget": "https://example.com/" + strings.Repeat("a", maxURLLength),
	}
	for name, u := range cases {
		if IsSafe(u) {
			t.Fatalf("%s: expected %q to be rejected", name, u)
		}
	}
}

func TestIsSafeAllowsNearPrivateLookalikes(t *testing.T) {
	t.Parallel()

	// 172.32.* sits just outside 172.16.0.0/12 and 192.169.* outside
	// 192.168.0.0/16.
	for _, u := range []string{
		"http://172.32.0.1/",
		"http://172.15.0.1/",
		"http://192.169.0.1/",
		"https://10example.com/",
	} {
		if !IsSafe(u) {
			t.Fatalf("expected %q to be safe", u)
		}
	}
}
