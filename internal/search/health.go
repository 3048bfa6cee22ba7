package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"torrenthub/internal/domain"
	"torrenthub/internal/metrics"
)

const (
	sourceFailureThreshold = 3
	sourceBlockBase        = 2 * time.Minute
	sourceBlockMax         = 15 * time.Minute
)

type sourceHealth struct {
	consecutiveFailures int
	blockedUntil        time.Time
	lastError           string
	lastSuccessAt       time.Time
	lastFailureAt       time.Time
	lastLatency         time.Duration
	lastTimeout         bool
	totalRequests       int64
	totalFailures       int64
	timeoutCount        int64
}

func (e *Engine) isSourceBlocked(name string, now time.Time) (bool, time.Time, string) {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	state := e.health[name]
	if state == nil {
		return false, time.Time{}, ""
	}
	if state.blockedUntil.IsZero() || now.After(state.blockedUntil) {
		return false, time.Time{}, ""
	}
	return true, state.blockedUntil, state.lastError
}

func (e *Engine) recordSourceResult(name string, err error, latency time.Duration, now time.Time) {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	state := e.health[name]
	if state == nil {
		state = &sourceHealth{}
		e.health[name] = state
	}
	state.totalRequests++
	if latency > 0 {
		state.lastLatency = latency
		metrics.SourceRequestDuration.WithLabelValues(name).Observe(latency.Seconds())
	}
	state.lastTimeout = isTimeoutLikeError(err)
	if state.lastTimeout {
		state.timeoutCount++
	}

	if err == nil {
		state.consecutiveFailures = 0
		state.blockedUntil = time.Time{}
		state.lastError = ""
		state.lastSuccessAt = now
		metrics.SourceRequestsTotal.WithLabelValues(name, "ok").Inc()
		metrics.SourceAvailable.WithLabelValues(name).Set(1)
		return
	}

	state.consecutiveFailures++
	state.totalFailures++
	state.lastFailureAt = now
	state.lastError = err.Error()

	status := "error"
	if state.lastTimeout {
		status = "timeout"
	}
	metrics.SourceRequestsTotal.WithLabelValues(name, status).Inc()

	if state.consecutiveFailures >= sourceFailureThreshold {
		state.blockedUntil = now.Add(exponentialBlockDuration(state.consecutiveFailures))
		metrics.SourceAvailable.WithLabelValues(name).Set(0)
	}
}

// exponentialBlockDuration computes how long to block a source after
// repeated failures: base × 2^(failures - threshold), capped.
func exponentialBlockDuration(consecutiveFailures int) time.Duration {
	exponent := consecutiveFailures - sourceFailureThreshold
	if exponent < 0 {
		exponent = 0
	}
	d := sourceBlockBase
	for i := 0; i < exponent; i++ {
		d *= 2
		if d > sourceBlockMax {
			return sourceBlockMax
		}
	}
	return d
}

func isTimeoutLikeError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var srcErr *domain.SourceError
	if errors.As(err, &srcErr) && srcErr.Timeout {
		return true
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "timeout") || strings.Contains(value, "deadline exceeded")
}

// Diagnostics reports per-source health for operators.
func (e *Engine) Diagnostics() []domain.SourceDiagnostics {
	e.healthMu.Lock()
	defer e.healthMu.Unlock()

	items := make([]domain.SourceDiagnostics, 0, len(e.names))
	for _, name := range e.names {
		info := e.sources[name].Info()
		item := domain.SourceDiagnostics{
			Name:  info.Name,
			Label: info.Label,
		}
		if state := e.health[name]; state != nil {
			item.ConsecutiveFailures = state.consecutiveFailures
			if !state.blockedUntil.IsZero() {
				blockedUntil := state.blockedUntil
				item.BlockedUntil = &blockedUntil
			}
			item.LastError = state.lastError
			if !state.lastSuccessAt.IsZero() {
				lastSuccessAt := state.lastSuccessAt
				item.LastSuccessAt = &lastSuccessAt
			}
			if !state.lastFailureAt.IsZero() {
				lastFailureAt := state.lastFailureAt
				item.LastFailureAt = &lastFailureAt
			}
			item.LastLatencyMS = state.lastLatency.Milliseconds()
			item.LastTimeout = state.lastTimeout
			item.TotalRequests = state.totalRequests
			item.TotalFailures = state.totalFailures
			item.TimeoutCount = state.timeoutCount
		}
		items = append(items, item)
	}
	return items
}
