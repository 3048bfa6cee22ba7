package common

import (
	"context"
	"errors"
	"net"
	"strings"

	"torrenthub/internal/domain"
)

// WrapError classifies a source failure into the two kinds the aggregation
// engine absorbs: timeouts and generic source errors. Nil passes through.
func WrapError(source string, err error) error {
	if err == nil {
		return nil
	}
	if isTimeout(err) {
		return domain.NewSourceTimeout(source, err)
	}
	return domain.NewSourceError(source, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded")
}
