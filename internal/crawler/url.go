package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL standardizes a URL so the visited set treats equivalent forms
// as one entry: the scheme and host are lowercased, default ports removed,
// the fragment stripped, and query parameters sorted.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawQuery = u.Query().Encode()
	return u.String(), nil
}

// imageExtensions covers the file types skipped when image exclusion is on.
var imageExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".svg",
	".webp", ".ico", ".tiff", ".tif",
}

// isImageURL reports whether the URL points at an image, either by path
// extension or by a query parameter naming an image file.
func isImageURL(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	query := strings.ToLower(u.RawQuery)
	if query == "" {
		return false
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(query, ext) || strings.Contains(query, ext+"&") {
			return true
		}
	}
	return false
}

func containsLower(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
