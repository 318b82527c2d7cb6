package pool

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
)

// Cache holds loaded pools by address for concurrent read access.
type Cache struct {
	mu    sync.RWMutex
	pools map[common.Address]*model.Pool
}

// NewCache creates an empty pool cache.
func NewCache() *Cache {
	return &Cache{pools: make(map[common.Address]*model.Pool)}
}

// Get returns the cached pool.
func (c *Cache) Get(address common.Address) (*model.Pool, bool) {
	c.mu.RLock()
	p, ok := c.pools[address]
	c.mu.RUnlock()
	return p, ok
}

// Put stores or replaces a pool.
func (c *Cache) Put(p *model.Pool) {
	c.mu.Lock()
	c.pools[p.Address] = p
	c.mu.Unlock()
}

// All returns every cached pool.
func (c *Cache) All() []*model.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Pool, 0, len(c.pools))
	for _, p := range c.pools {
		out = append(out, p)
	}
	return out
}

// Len returns the number of cached pools.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pools)
}
