package geolib

import "go.uber.org/atomic"

// Stats is a snapshot of resolver counters.
type Stats struct {
	Lookups           uint64       `json:"lookups"`
	CacheHits         uint64       `json:"cache_hits"`
	CacheMisses       uint64       `json:"cache_misses"`
	APICalls          uint64       `json:"api_calls"`
	APIFailures       uint64       `json:"api_failures"`
	RateLimitHits     uint64       `json:"rate_limit_hits"`
	CircuitState      CircuitState `json:"circuit_state"`
	CircuitFailures   uint32       `json:"circuit_failures"`
	CacheSize         int          `json:"cache_size"`
	CoalescedWaits    uint64       `json:"coalesced_waits"`
	PrivateHits       uint64       `json:"private_hits"`
	InvalidInputs     uint64       `json:"invalid_inputs"`
	CircuitRejections uint64       `json:"circuit_rejections"`
}

type usageStats struct {
	lookups           atomic.Uint64
	cacheHits         atomic.Uint64
	cacheMisses       atomic.Uint64
	apiCalls          atomic.Uint64
	apiFailures       atomic.Uint64
	rateLimitHits     atomic.Uint64
	coalescedWaits    atomic.Uint64
	privateHits       atomic.Uint64
	invalidInputs     atomic.Uint64
	circuitRejections atomic.Uint64
}

func (u *usageStats) Snapshot() Stats {
	return Stats{
		Lookups:           u.lookups.Load(),
		CacheHits:         u.cacheHits.Load(),
		CacheMisses:       u.cacheMisses.Load(),
		APICalls:          u.apiCalls.Load(),
		APIFailures:       u.apiFailures.Load(),
		RateLimitHits:     u.rateLimitHits.Load(),
		CoalescedWaits:    u.coalescedWaits.Load(),
		PrivateHits:       u.privateHits.Load(),
		InvalidInputs:     u.invalidInputs.Load(),
		CircuitRejections: u.circuitRejections.Load(),
	}
}
