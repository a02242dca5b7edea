package geolib

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// coalescer makes sure that there is at most one lookup in flight for
// a given key. Everyone who comes while lookup is running waits for the
// same outcome.
type coalescer struct {
	group singleflight.Group
}

// Do runs fn or joins an already running one. Returned flag is true if
// this caller has not executed fn itself.
//
// Context bounds only a waiting time of the caller: fn keeps running
// and its result is delivered to other waiters.
func (c *coalescer) Do(ctx context.Context, key string, fn func() *Coordinate) (*Coordinate, bool, error) {
	executed := false
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		executed = true

		return fn(), nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-resultChan:
		return copyCoordinate(res.Val.(*Coordinate)), !executed, nil
	}
}
