package geolib

import lru "github.com/hashicorp/golang-lru"

// resultCache keeps both positive (coordinate) and negative (nil)
// outcomes. All operations are safe for concurrent use.
type resultCache struct {
	lru *lru.Cache
}

// Get returns a copy of a cached value. A hit promotes the key to the
// most recently used one.
func (r *resultCache) Get(key string) (*Coordinate, bool) {
	value, ok := r.lru.Get(key)
	if !ok {
		return nil, false
	}

	return copyCoordinate(value.(*Coordinate)), true
}

// Put inserts a value as the most recently used one. If cache is full,
// exactly one least recently used item is evicted.
func (r *resultCache) Put(key string, value *Coordinate) {
	r.lru.Add(key, copyCoordinate(value))
}

func (r *resultCache) Size() int {
	return r.lru.Len()
}

func (r *resultCache) Clear() {
	r.lru.Purge()
}

func copyCoordinate(value *Coordinate) *Coordinate {
	if value == nil {
		return nil
	}

	rv := *value

	return &rv
}

func newResultCache(size int) *resultCache {
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}

	return &resultCache{
		lru: cache,
	}
}
