package common

import (
	"net/url"
	"regexp"
	"strings"
)

var magnetHashPattern = regexp.MustCompile(`(?i)xt=urn:btih:([a-f0-9]{64}|[a-f0-9]{40})`)

// NormalizeInfoHash lowercases a hash and strips an optional urn prefix.
func NormalizeInfoHash(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.TrimPrefix(value, "urn:btih:")
	return value
}

// ExtractInfoHashFromMagnet pulls the btih hash out of a magnet URI, empty
// when absent.
func ExtractInfoHashFromMagnet(magnet string) string {
	match := magnetHashPattern.FindStringSubmatch(magnet)
	if len(match) < 2 {
		return ""
	}
	return strings.ToLower(match[1])
}

// BuildMagnet assembles a magnet URI from a hash, display name and tracker
// list.
func BuildMagnet(infoHash, name string, trackers []string) string {
	hash := NormalizeInfoHash(infoHash)
	if hash == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("magnet:?xt=urn:btih:")
	builder.WriteString(hash)
	if strings.TrimSpace(name) != "" {
		builder.WriteString("&dn=")
		builder.WriteString(url.QueryEscape(strings.TrimSpace(name)))
	}
	for _, tracker := range trackers {
		value := strings.TrimSpace(tracker)
		if value == "" {
			continue
		}
		builder.WriteString("&tr=")
		builder.WriteString(url.QueryEscape(value))
	}
	return builder.String()
}
