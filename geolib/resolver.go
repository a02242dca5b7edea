package geolib

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
)

const (
	DefaultAPITimeout           = 5 * time.Second
	DefaultMaxRetries           = 2
	DefaultRetryDelay           = time.Second
	DefaultMaxCacheSize         = 1000
	DefaultMaxRequestsPerMinute = 15
	DefaultMinRequestDelay      = 4 * time.Second
	DefaultMaxRateLimitWait     = 2 * time.Second
	DefaultMaxFailures          = 5
	DefaultResetTimeout         = 30 * time.Second
	DefaultWorkerPoolSize       = 64

	// Upper bounds of options. Backoff delay grows as
	// RetryDelay * 2^MaxRetries so both have to be capped.
	MaxRetriesLimit  = 10
	MaxDurationLimit = 24 * time.Hour

	workerPoolExpireTime = time.Minute
)

// Opts defines a behaviour of Resolver. Zero values mean defaults.
type Opts struct {
	// Source is a coordinate of the service itself. This is where all
	// arcs on the map start.
	Source Coordinate

	// APITimeout is a hard timeout of a single upstream attempt.
	APITimeout time.Duration

	MaxRetries   int
	RetryDelay   time.Duration
	MaxCacheSize int

	MaxRequestsPerMinute int
	MinRequestDelay      time.Duration

	// MaxRateLimitWait is a maximal time to wait for the next slot of
	// minimal spacing. If the next slot is further, request fails fast.
	MaxRateLimitWait time.Duration

	MaxFailures  uint32
	ResetTimeout time.Duration

	// WorkerPoolSize is a size of the pool used by ResolveAll.
	WorkerPoolSize int
}

func (o Opts) GetAPITimeout() time.Duration {
	if o.APITimeout == 0 {
		return DefaultAPITimeout
	}

	return o.APITimeout
}

func (o Opts) GetMaxRetries() int {
	if o.MaxRetries == 0 {
		return DefaultMaxRetries
	}

	return o.MaxRetries
}

func (o Opts) GetRetryDelay() time.Duration {
	if o.RetryDelay == 0 {
		return DefaultRetryDelay
	}

	return o.RetryDelay
}

func (o Opts) GetMaxCacheSize() int {
	if o.MaxCacheSize == 0 {
		return DefaultMaxCacheSize
	}

	return o.MaxCacheSize
}

func (o Opts) GetMaxRequestsPerMinute() int {
	if o.MaxRequestsPerMinute == 0 {
		return DefaultMaxRequestsPerMinute
	}

	return o.MaxRequestsPerMinute
}

func (o Opts) GetMinRequestDelay() time.Duration {
	if o.MinRequestDelay == 0 {
		return DefaultMinRequestDelay
	}

	return o.MinRequestDelay
}

func (o Opts) GetMaxRateLimitWait() time.Duration {
	if o.MaxRateLimitWait == 0 {
		return DefaultMaxRateLimitWait
	}

	return o.MaxRateLimitWait
}

func (o Opts) GetMaxFailures() uint32 {
	if o.MaxFailures == 0 {
		return DefaultMaxFailures
	}

	return o.MaxFailures
}

func (o Opts) GetResetTimeout() time.Duration {
	if o.ResetTimeout == 0 {
		return DefaultResetTimeout
	}

	return o.ResetTimeout
}

func (o Opts) GetWorkerPoolSize() int {
	if o.WorkerPoolSize == 0 {
		return DefaultWorkerPoolSize
	}

	return o.WorkerPoolSize
}

// Validate checks that options make sense.
func (o Opts) Validate() error {
	if math.IsNaN(o.Source.Latitude) || math.IsNaN(o.Source.Longitude) {
		return errors.New("source coordinate is not a number")
	}

	if !o.Source.Valid() {
		return fmt.Errorf("source coordinate (%v, %v) is out of range",
			o.Source.Latitude, o.Source.Longitude)
	}

	switch {
	case o.MaxRetries < 0 || o.MaxRetries > MaxRetriesLimit:
		return fmt.Errorf("incorrect max retries %d", o.MaxRetries)
	case o.MaxCacheSize < 0:
		return fmt.Errorf("incorrect max cache size %d", o.MaxCacheSize)
	case o.MaxRequestsPerMinute < 0:
		return fmt.Errorf("incorrect max requests per minute %d", o.MaxRequestsPerMinute)
	case o.WorkerPoolSize < 0:
		return fmt.Errorf("incorrect worker pool size %d", o.WorkerPoolSize)
	}

	durations := map[string]time.Duration{
		"api timeout":         o.APITimeout,
		"retry delay":         o.RetryDelay,
		"min request delay":   o.MinRequestDelay,
		"max rate limit wait": o.MaxRateLimitWait,
		"reset timeout":       o.ResetTimeout,
	}

	for name, value := range durations {
		if value < 0 || value > MaxDurationLimit {
			return fmt.Errorf("incorrect %s %v", name, value)
		}
	}

	return nil
}

// Resolver resolves IP addresses into coordinates. It protects an
// upstream provider with caching, request coalescing, rate limiting,
// circuit breaking and retries.
//
// Resolver is safe for concurrent use.
type Resolver struct {
	ctx        context.Context
	cancel     context.CancelFunc
	provider   Provider
	logger     Logger
	source     Coordinate
	apiTimeout time.Duration
	cache      *resultCache
	coalescer  *coalescer
	limiter    *rateLimiter
	breaker    *circuitBreaker
	retry      retryPolicy
	stats      usageStats
	workerPool *ants.PoolWithFunc
	closeOnce  sync.Once
}

// Resolve returns a coordinate of the given address or nil if address
// is unresolvable. It never fails: invalid and private addresses,
// upstream failures, open circuit and rate limiting all end up as nil.
//
// Given context bounds only a time caller is ready to wait. Upstream
// request itself is not cancelled if caller goes away.
func (r *Resolver) Resolve(ctx context.Context, ip string) *Coordinate {
	r.stats.lookups.Inc()

	if r.ctx.Err() != nil {
		return nil
	}

	key, addr, err := normalizeAddress(ip)
	if err != nil {
		r.stats.invalidInputs.Inc()

		return nil
	}

	if value, ok := r.cache.Get(key); ok {
		r.stats.cacheHits.Inc()

		return value
	}

	r.stats.cacheMisses.Inc()

	value, waited, err := r.coalescer.Do(ctx, key, func() *Coordinate {
		return r.resolveMiss(key, addr)
	})

	if waited {
		r.stats.coalescedWaits.Inc()
	}

	if err != nil {
		return nil
	}

	return value
}

// ResolveAll resolves a batch of addresses on a worker pool. Results
// follow an order of given addresses.
func (r *Resolver) ResolveAll(ctx context.Context, ips []string) []ResolveResult {
	batch := newBatchRequest(ctx, ips, r.workerPool)

	if r.ctx.Err() == nil {
		for i := range ips {
			if err := batch.Do(i); err != nil {
				break
			}
		}
	}

	return batch.Wait()
}

// Source returns a coordinate of the service itself.
func (r *Resolver) Source() Coordinate {
	return r.source
}

// ClearCache drops all cached results, both positive and negative ones.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
}

// ResetCircuitBreaker closes a circuit and drops a failure counter.
func (r *Resolver) ResetCircuitBreaker() {
	r.breaker.Reset()
}

func (r *Resolver) Stats() Stats {
	rv := r.stats.Snapshot()
	rv.CircuitState, rv.CircuitFailures = r.breaker.State()
	rv.CacheSize = r.cache.Size()

	return rv
}

// Shutdown stops a resolver. All in-flight lookups are cancelled and
// all subsequent calls return nil.
func (r *Resolver) Shutdown() {
	r.closeOnce.Do(func() {
		r.cancel()
		r.workerPool.Release()
	})
}

func (r *Resolver) resolveMiss(key string, addr net.IP) *Coordinate {
	if value, ok := r.cache.Get(key); ok {
		return value
	}

	if err := checkRoutable(addr); err != nil {
		r.stats.privateHits.Inc()
		r.logger.AddressSkipped(key, err)
		r.cache.Put(key, nil)

		return nil
	}

	var (
		value     *Coordinate
		lookupErr error
	)

	err := r.breaker.Do(func() error {
		if lookupErr = r.limiter.Wait(r.ctx); lookupErr != nil {
			if errors.Is(lookupErr, ErrRateLimited) {
				r.stats.rateLimitHits.Inc()
			}

			return fmt.Errorf("%w: %w", ErrCircuitBreakerIgnore, lookupErr)
		}

		value, lookupErr = r.lookup(key, addr)

		switch {
		case lookupErr == nil, errors.Is(lookupErr, ErrProviderFailure):
			return nil
		case errors.Is(lookupErr, context.Canceled):
			return fmt.Errorf("%w: %w", ErrCircuitBreakerIgnore, lookupErr)
		}

		return lookupErr
	})

	switch {
	case errors.Is(err, ErrCircuitBreakerOpened):
		r.stats.circuitRejections.Inc()

		return nil
	case errors.Is(err, ErrRateLimited):
		r.logger.RateLimited(key, lookupErr)

		return nil
	case errors.Is(err, context.Canceled):
		return nil
	case errors.Is(lookupErr, ErrProviderFailure):
		r.logger.ProviderFailure(key, r.provider.Name(), lookupErr)
	case err != nil:
		r.logger.LookupError(key, r.provider.Name(), err)
	}

	r.cache.Put(key, value)

	return value
}

// lookup makes a retry-wrapped call to provider. A rate limiter slot
// is taken once by the caller: retries are spaced by the backoff.
func (r *Resolver) lookup(key string, addr net.IP) (*Coordinate, error) {
	var rv *Coordinate

	err := r.retry.Do(r.ctx, func() error {
		r.stats.apiCalls.Inc()

		res, err := r.lookupAttempt(addr)
		if err == nil {
			rv, err = newCoordinate(res)
		}

		if err != nil {
			r.stats.apiFailures.Inc()

			return err
		}

		return nil
	}, func(attempt int, delay time.Duration, err error) {
		r.logger.RetryScheduled(key, attempt, delay, err)
	})

	return rv, err
}

func (r *Resolver) lookupAttempt(addr net.IP) (ProviderLookupResult, error) {
	ctx, cancel := context.WithTimeout(r.ctx, r.apiTimeout)
	defer cancel()

	res, err := r.provider.Lookup(ctx, addr)

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrUpstreamTimeout) {
		err = fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}

	return res, err
}

func (r *Resolver) resolveWorker(args interface{}) {
	req := args.(*resolveRequest)
	defer req.wg.Done()

	req.result.Result = r.Resolve(req.ctx, req.ip)
}

// NewResolver creates a new resolver on top of the given provider.
func NewResolver(provider Provider, logger Logger, opts Opts) (*Resolver, error) {
	if provider == nil {
		return nil, errors.New("provider is not defined")
	}

	if logger == nil {
		return nil, errors.New("logger is not defined")
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("incorrect options: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rv := &Resolver{
		ctx:        ctx,
		cancel:     cancel,
		provider:   provider,
		logger:     logger,
		source:     opts.Source,
		apiTimeout: opts.GetAPITimeout(),
		cache:      newResultCache(opts.GetMaxCacheSize()),
		coalescer:  &coalescer{},
		limiter: newRateLimiter(opts.GetMaxRequestsPerMinute(),
			opts.GetMinRequestDelay(),
			opts.GetMaxRateLimitWait()),
		breaker: newCircuitBreaker(opts.GetMaxFailures(),
			opts.GetResetTimeout(),
			logger),
		retry: retryPolicy{
			maxRetries: uint64(opts.GetMaxRetries()),
			retryDelay: opts.GetRetryDelay(),
		},
	}

	pool, err := ants.NewPoolWithFunc(opts.GetWorkerPoolSize(), rv.resolveWorker,
		ants.WithExpiryDuration(workerPoolExpireTime))
	if err != nil {
		cancel()

		return nil, fmt.Errorf("cannot create a worker pool: %w", err)
	}

	rv.workerPool = pool

	return rv, nil
}
