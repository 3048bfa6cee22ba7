package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// infoHashPattern matches the btih parameter of a magnet URI. The 64-hex
// alternative comes first so SHA-256 hashes are not truncated to 40 chars.
var infoHashPattern = regexp.MustCompile(`xt=urn:btih:([a-fA-F0-9]{64}|[a-fA-F0-9]{40})`)

// TorrentLink is the canonical identity of a torrent reference. For magnet
// URIs carrying a btih parameter the identity is the lowercased info hash;
// for everything else it is the full URI.
type TorrentLink struct {
	uri      string
	infoHash string
}

// ParseLink validates a torrent reference. Only magnet, http and https
// schemes are accepted.
func ParseLink(raw string) (TorrentLink, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return TorrentLink{}, fmt.Errorf("%w: link is required", ErrValidation)
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return TorrentLink{}, fmt.Errorf("%w: malformed link: %v", ErrValidation, err)
	}

	switch parsed.Scheme {
	case "magnet", "http", "https":
	case "":
		return TorrentLink{}, fmt.Errorf("%w: link has no scheme", ErrValidation)
	default:
		return TorrentLink{}, fmt.Errorf("%w: unsupported link scheme %q", ErrValidation, parsed.Scheme)
	}

	link := TorrentLink{uri: value}
	if parsed.Scheme == "magnet" {
		if match := infoHashPattern.FindStringSubmatch(value); match != nil {
			link.infoHash = strings.ToLower(match[1])
		}
	}
	return link, nil
}

// String returns the original URI.
func (l TorrentLink) String() string { return l.uri }

// InfoHash returns the lowercased btih hash, or "" when the link is not a
// magnet URI or the magnet carries no hash.
func (l TorrentLink) InfoHash() string { return l.infoHash }

// Key is the value used for deduplication and map lookups.
func (l TorrentLink) Key() string {
	if l.infoHash != "" {
		return "hash:" + l.infoHash
	}
	return l.uri
}

// Equal reports canonical identity: matching info hashes when both links
// have one, exact URI equality otherwise.
func (l TorrentLink) Equal(other TorrentLink) bool {
	if l.infoHash != "" && other.infoHash != "" {
		return l.infoHash == other.infoHash
	}
	return l.uri == other.uri
}

// IsZero reports whether the link was never parsed.
func (l TorrentLink) IsZero() bool { return l.uri == "" }
