package common

import (
	"strings"
	"testing"
)

func TestNormalizeInfoHash(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{raw: "ABCDEF1234567890ABCDEF1234567890ABCDEF12", want: "abcdef1234567890abcdef1234567890abcdef12"},
		{raw: "  urn:btih:ABCDEF1234567890ABCDEF1234567890ABCDEF12  ", want: "abcdef1234567890abcdef1234567890abcdef12"},
		{raw: "", want: ""},
	}
	for _, tc := range cases {
		if got := NormalizeInfoHash(tc.raw); got != tc.want {
			t.Fatalf("NormalizeInfoHash(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestBuildMagnet(t *testing.T) {
	hash := strings.Repeat("a", 40)
	magnet := BuildMagnet(hash, "Ubuntu ISO", []string{"udp://tracker.example:1337/announce", ""})

	if !strings.HasPrefix(magnet, "magnet:?xt=urn:btih:"+hash) {
		t.Fatalf("magnet = %q", magnet)
	}
	if !strings.Contains(magnet, "&dn=Ubuntu+ISO") {
		t.Fatalf("display name missing: %q", magnet)
	}
	if strings.Count(magnet, "&tr=") != 1 {
		t.Fatalf("blank trackers must be dropped: %q", magnet)
	}

	if got := BuildMagnet("", "x", nil); got != "" {
		t.Fatalf("empty hash must produce no magnet, got %q", got)
	}
}

func TestExtractInfoHashFromMagnet(t *testing.T) {
	hash := strings.Repeat("b", 40)
	if got := ExtractInfoHashFromMagnet("magnet:?xt=urn:btih:" + strings.ToUpper(hash) + "&dn=x"); got != hash {
		t.Fatalf("got %q, want %q", got, hash)
	}
	if got := ExtractInfoHashFromMagnet("magnet:?dn=nohash"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	sha256 := strings.Repeat("c", 64)
	if got := ExtractInfoHashFromMagnet("magnet:?xt=urn:btih:" + sha256); got != sha256 {
		t.Fatalf("64-char hashes must extract, got %q", got)
	}
}
