package domain

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify creates a URL-friendly slug from the given name
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugRegexp.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
