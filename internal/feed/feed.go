package feed

import (
	"context"

	"github.com/hetulpatel/sportsarb/internal/odds"
)

// Quota is the request bookkeeping reported by the odds source. The
// engine logs it but never interprets it.
type Quota struct {
	Used      int
	Remaining int
}

// FetchOptions select what a provider should fetch in one cycle.
type FetchOptions struct {
	Sports  []string
	Regions []string
	Markets []string
}

// Provider is implemented by odds sources. A provider fetches raw
// payloads, normalizes them into events with snapshots, and accounts for
// its own rate limits and timeouts; the engine treats a failed fetch as
// an empty cycle.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, opts FetchOptions) ([]odds.Event, Quota, error)
}
