// Package ratelimit surfaces HTTP 429 conditions that the asset store client
// absorbs internally and never reports through its return values.
//
// Two canonical detection transports exist, each owning its events exactly
// once: ObserveStatus for responses seen by the client's response hook, and
// ObserveMessage for diagnostic lines emitted where no response object is
// available. A client must feed any given event through one transport only,
// so a single 429 is never double-counted.
package ratelimit

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/assetflow/uploader/internal/metrics"
)

// vocabulary is matched case-insensitively against diagnostic messages.
var vocabulary = []string{
	"rate limit",
	"too many requests",
	"429",
	"quota exceeded",
	"throttl", // throttle, throttled, throttling
	"retry-after",
	"retry after",
}

// Bus is the process-wide rate-limit signal counter. It is observability
// only: nothing reads it to make scheduling decisions. The counter resets
// only at the start of a new run.
type Bus struct {
	events atomic.Int64
}

func NewBus() *Bus {
	return &Bus{}
}

// ObserveStatus is the canonical detection path for the network transport.
// It records one event per 429 response.
func (b *Bus) ObserveStatus(code int) {
	if code == http.StatusTooManyRequests {
		b.record()
	}
}

// ObserveMessage is the canonical detection path for the client's diagnostic
// log transport. It records one event per message matching the rate-limit
// vocabulary and reports whether the message matched.
func (b *Bus) ObserveMessage(msg string) bool {
	if !MatchesVocabulary(msg) {
		return false
	}
	b.record()
	return true
}

func (b *Bus) record() {
	b.events.Add(1)
	metrics.RateLimitEvents.Inc()
}

// Count returns the number of events observed since the last reset.
func (b *Bus) Count() int64 {
	return b.events.Load()
}

// Reset zeroes the counter. Called only when a new run begins.
func (b *Bus) Reset() {
	b.events.Store(0)
}

// MatchesVocabulary reports whether the message looks like a rate-limit
// diagnostic. String matching is a last-resort fallback for collaborators
// that expose throttling only through log text; the typed ObserveStatus
// path is preferred.
func MatchesVocabulary(msg string) bool {
	lower := strings.ToLower(msg)
	for _, word := range vocabulary {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
