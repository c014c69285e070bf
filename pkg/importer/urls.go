package importer

import (
	"net/url"
	"regexp"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// isValidImportURL reports whether the string is an absolute http or https
// URL with a host. Anything else is rejected before touching the network.
func isValidImportURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ExtractURLs returns all http(s) URLs found in free-form text, in order of
// appearance
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}
