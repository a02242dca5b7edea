package geolib

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

type resolveRequest struct {
	ctx    context.Context
	ip     string
	result *ResolveResult
	wg     *sync.WaitGroup
}

// batchRequest schedules resolving of many addresses on a shared worker
// pool. Each task writes into its own slot so an order of results is
// an order of input.
type batchRequest struct {
	ctx     context.Context
	results []ResolveResult
	wg      *sync.WaitGroup
	pool    *ants.PoolWithFunc
}

func (b *batchRequest) Do(idx int) error {
	select {
	case <-b.ctx.Done():
		return b.ctx.Err()
	default:
	}

	b.wg.Add(1)

	req := &resolveRequest{
		ctx:    b.ctx,
		ip:     b.results[idx].IP,
		result: &b.results[idx],
		wg:     b.wg,
	}

	if err := b.pool.Invoke(req); err != nil {
		b.wg.Done()

		return fmt.Errorf("cannot schedule a task: %w", err)
	}

	return nil
}

func (b *batchRequest) Wait() []ResolveResult {
	b.wg.Wait()

	return b.results
}

func newBatchRequest(ctx context.Context, ips []string, pool *ants.PoolWithFunc) *batchRequest {
	results := make([]ResolveResult, len(ips))

	for i, v := range ips {
		results[i].IP = v
	}

	return &batchRequest{
		ctx:     ctx,
		results: results,
		wg:      &sync.WaitGroup{},
		pool:    pool,
	}
}
