package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"torrenthub/internal/domain"
)

func TestWrapErrorClassification(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		timeout bool
	}{
		{name: "deadline", err: context.DeadlineExceeded, timeout: true},
		{name: "timeout text", err: fmt.Errorf("Get \"x\": timeout awaiting headers"), timeout: true},
		{name: "http failure", err: fmt.Errorf("HTTP 502: bad gateway"), timeout: false},
		{name: "parse failure", err: fmt.Errorf("malformed feed"), timeout: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := WrapError("alpha", tc.err)
			var srcErr *domain.SourceError
			if !errors.As(wrapped, &srcErr) {
				t.Fatalf("expected a source error, got %v", wrapped)
			}
			if srcErr.Source != "alpha" {
				t.Fatalf("source = %q", srcErr.Source)
			}
			if srcErr.Timeout != tc.timeout {
				t.Fatalf("timeout = %v, want %v", srcErr.Timeout, tc.timeout)
			}
			if !errors.Is(wrapped, tc.err) {
				t.Fatal("cause must be preserved")
			}
		})
	}

	if WrapError("alpha", nil) != nil {
		t.Fatal("nil must pass through")
	}
}

func TestCleanHTMLText(t *testing.T) {
	if got := CleanHTMLText(" <b>Dark&nbsp;S01</b>  1080p "); got != "Dark S01 1080p" {
		t.Fatalf("got %q", got)
	}
}
