package domain

import (
	"errors"
	"strings"
	"testing"
)

const sha1Hash = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func magnetFor(hash string) string {
	return "magnet:?xt=urn:btih:" + hash + "&dn=ubuntu"
}

func TestParseLinkSchemes(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		valid bool
	}{
		{name: "magnet", raw: magnetFor(sha1Hash), valid: true},
		{name: "http", raw: "http://tracker.example/file.torrent", valid: true},
		{name: "https", raw: "https://tracker.example/file.torrent", valid: true},
		{name: "ftp", raw: "ftp://x", valid: false},
		{name: "no scheme", raw: "tracker.example/file.torrent", valid: false},
		{name: "empty", raw: "   ", valid: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseLink(tc.raw)
			if tc.valid && err != nil {
				t.Fatalf("ParseLink(%q) failed: %v", tc.raw, err)
			}
			if !tc.valid {
				if err == nil {
					t.Fatalf("ParseLink(%q) should have failed", tc.raw)
				}
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
			}
		})
	}
}

func TestParseLinkInfoHash(t *testing.T) {
	upper := strings.ToUpper(sha1Hash)
	link, err := ParseLink(magnetFor(upper))
	if err != nil {
		t.Fatalf("ParseLink failed: %v", err)
	}
	if link.InfoHash() != sha1Hash {
		t.Fatalf("expected lowercased hash %q, got %q", sha1Hash, link.InfoHash())
	}

	sha256 := strings.Repeat("b", 64)
	link, err = ParseLink(magnetFor(sha256))
	if err != nil {
		t.Fatalf("ParseLink failed: %v", err)
	}
	if link.InfoHash() != sha256 {
		t.Fatalf("expected 64-char hash, got %q", link.InfoHash())
	}
}

func TestParseLinkWithoutHash(t *testing.T) {
	link, err := ParseLink("magnet:?dn=nohash")
	if err != nil {
		t.Fatalf("ParseLink failed: %v", err)
	}
	if link.InfoHash() != "" {
		t.Fatalf("expected empty hash, got %q", link.InfoHash())
	}
	if link.Key() != "magnet:?dn=nohash" {
		t.Fatalf("identity should fall back to the URI, got %q", link.Key())
	}

	link, err = ParseLink("https://tracker.example/file.torrent")
	if err != nil {
		t.Fatalf("ParseLink failed: %v", err)
	}
	if link.InfoHash() != "" {
		t.Fatalf("http links carry no hash, got %q", link.InfoHash())
	}
}

func TestLinkEquality(t *testing.T) {
	byHashA, _ := ParseLink(magnetFor(sha1Hash) + "&tr=udp%3A%2F%2Ftracker.a")
	byHashB, _ := ParseLink(magnetFor(strings.ToUpper(sha1Hash)) + "&tr=udp%3A%2F%2Ftracker.b")
	if !byHashA.Equal(byHashB) {
		t.Fatal("links with the same hash must be equal regardless of the rest of the URI")
	}
	if byHashA.Key() != byHashB.Key() {
		t.Fatalf("keys differ: %q vs %q", byHashA.Key(), byHashB.Key())
	}

	plainA, _ := ParseLink("https://tracker.example/a.torrent")
	plainB, _ := ParseLink("https://tracker.example/b.torrent")
	if plainA.Equal(plainB) {
		t.Fatal("different URIs without hashes must not be equal")
	}

	if byHashA.Equal(plainA) {
		t.Fatal("magnet with hash and http link with a different URI must not be equal")
	}
}
