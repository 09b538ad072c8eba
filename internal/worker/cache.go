package main

import (
	"sync"

	"github.com/dgryski/go-tinylfu"

	"github.com/ntdkhiem/huffman-compression-platform/compression"
)

// codebookCache keeps recently used codebooks keyed by the xxhash of the
// frequency table they were built from. Jobs over identical content skip
// the tree build.
type codebookCache struct {
	mu  sync.Mutex
	lfu *tinylfu.T[uint64, *compression.Codebook]
}

func newCodebookCache(size int) *codebookCache {
	return &codebookCache{
		lfu: tinylfu.New[uint64, *compression.Codebook](size, size*10, func(k uint64) uint64 { return k }),
	}
}

// get returns the cached codebook for key, building it from ft on a miss.
// The second result reports a cache hit.
func (c *codebookCache) get(key uint64, ft compression.FrequencyTable) (*compression.Codebook, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.lfu.Get(key); ok {
		return cb, true
	}
	cb := compression.NewCodebook(ft)
	c.lfu.Add(key, cb)
	return cb, false
}
