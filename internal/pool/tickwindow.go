package pool

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/unimath"
)

// ticksPerWord is how many initialized-tick slots one bitmap word covers.
const ticksPerWord = 256

// Window is a contiguous range of tick bitmap words with every populated
// tick inside it. Ticks are sorted ascending.
type Window struct {
	Ticks       []unimath.TickData
	LowerWord   int32
	UpperWord   int32
	TickSpacing int32
}

// LowerTick is the inclusive lower tick bound of the window.
func (w *Window) LowerTick() int32 {
	return w.LowerWord * ticksPerWord * w.TickSpacing
}

// UpperTick is the inclusive upper tick bound of the window.
func (w *Window) UpperTick() int32 {
	return (w.UpperWord+1)*ticksPerWord*w.TickSpacing - 1
}

// wordOfTick maps a tick to its bitmap word, flooring toward negative
// infinity as the contract does.
func wordOfTick(tick, tickSpacing int32) int32 {
	compressed := floorDiv(tick, tickSpacing)
	return floorDiv(compressed, ticksPerWord)
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// BatchCaller is the slice of chain.Client this package needs, kept narrow
// so tests can substitute a fake.
type BatchCaller interface {
	BatchCall(ctx context.Context, calls []chain.Call, blockNumber *big.Int) ([]chain.CallResult, error)
}

// TickCache fetches and caches populated-tick windows per pool via the
// TickLens contract.
type TickCache struct {
	client BatchCaller
	lens   common.Address
	radius int32

	mu      sync.RWMutex
	windows map[common.Address]*Window

	logger *zap.Logger
}

// NewTickCache creates a tick cache. radius is how many bitmap words to load
// on each side of the current tick.
func NewTickCache(client BatchCaller, lens common.Address, radius int32, logger *zap.Logger) *TickCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if radius <= 0 {
		radius = 2
	}
	return &TickCache{
		client:  client,
		lens:    lens,
		radius:  radius,
		windows: make(map[common.Address]*Window),
		logger:  logger,
	}
}

// Window returns the cached window for the pool, fetching the initial range
// around the current tick on a miss.
func (c *TickCache) Window(ctx context.Context, p *model.Pool) (*Window, error) {
	if p.Variant != model.VariantV3 || p.Immutables == nil || p.V3 == nil {
		return nil, fmt.Errorf("pool %s has no v3 state", p.Address.Hex())
	}

	c.mu.RLock()
	w, ok := c.windows[p.Address]
	c.mu.RUnlock()
	if ok {
		return w, nil
	}

	spacing := p.Immutables.TickSpacing
	center := wordOfTick(p.V3.Tick, spacing)
	ticks, err := c.fetchWords(ctx, p.Address, center-c.radius, center+c.radius)
	if err != nil {
		return nil, err
	}

	w = &Window{
		Ticks:       ticks,
		LowerWord:   center - c.radius,
		UpperWord:   center + c.radius,
		TickSpacing: spacing,
	}
	c.mu.Lock()
	c.windows[p.Address] = w
	c.mu.Unlock()
	return w, nil
}

// Widen extends the pool's window by the cache radius below (down=true) or
// above the current range and returns the merged window.
func (c *TickCache) Widen(ctx context.Context, p *model.Pool, down bool) (*Window, error) {
	w, err := c.Window(ctx, p)
	if err != nil {
		return nil, err
	}

	var fromWord, toWord int32
	if down {
		fromWord = w.LowerWord - c.radius
		toWord = w.LowerWord - 1
	} else {
		fromWord = w.UpperWord + 1
		toWord = w.UpperWord + c.radius
	}

	ticks, err := c.fetchWords(ctx, p.Address, fromWord, toWord)
	if err != nil {
		return nil, err
	}

	merged := &Window{
		Ticks:       append(append([]unimath.TickData{}, w.Ticks...), ticks...),
		LowerWord:   w.LowerWord,
		UpperWord:   w.UpperWord,
		TickSpacing: w.TickSpacing,
	}
	if down {
		merged.LowerWord = fromWord
	} else {
		merged.UpperWord = toWord
	}
	sort.Slice(merged.Ticks, func(i, j int) bool { return merged.Ticks[i].Tick < merged.Ticks[j].Tick })

	c.mu.Lock()
	c.windows[p.Address] = merged
	c.mu.Unlock()
	return merged, nil
}

// Invalidate drops the cached window so the next access refetches it.
func (c *TickCache) Invalidate(address common.Address) {
	c.mu.Lock()
	delete(c.windows, address)
	c.mu.Unlock()
}

// fetchWords loads every populated tick in [fromWord, toWord] with one
// batched call. A word the lens reverts on is treated as empty.
func (c *TickCache) fetchWords(ctx context.Context, poolAddr common.Address, fromWord, toWord int32) ([]unimath.TickData, error) {
	lensABI, err := TickLensABI()
	if err != nil {
		return nil, fmt.Errorf("parse ticklens abi: %w", err)
	}

	calls := make([]chain.Call, 0, toWord-fromWord+1)
	for word := fromWord; word <= toWord; word++ {
		data, err := lensABI.Pack("getPopulatedTicksInWord", poolAddr, int16(word))
		if err != nil {
			return nil, fmt.Errorf("pack getPopulatedTicksInWord: %w", err)
		}
		calls = append(calls, chain.Call{To: c.lens, Data: data})
	}

	results, err := c.client.BatchCall(ctx, calls, nil)
	if err != nil {
		return nil, fmt.Errorf("pool %s tick words [%d,%d]: %w", poolAddr.Hex(), fromWord, toWord, err)
	}

	var ticks []unimath.TickData
	for i, r := range results {
		if !r.Ok() {
			c.logger.Debug("tick word fetch failed",
				zap.String("pool", poolAddr.Hex()),
				zap.Int32("word", fromWord+int32(i)),
				zap.Error(r.Err))
			continue
		}
		var populated []struct {
			Tick           *big.Int
			LiquidityNet   *big.Int
			LiquidityGross *big.Int
		}
		if err := lensABI.UnpackIntoInterface(&populated, "getPopulatedTicksInWord", r.Data); err != nil {
			return nil, fmt.Errorf("unpack tick word %d: %w", fromWord+int32(i), err)
		}
		for _, pt := range populated {
			tick, err := int24FromBig(pt.Tick)
			if err != nil {
				return nil, fmt.Errorf("tick word %d: %w", fromWord+int32(i), err)
			}
			ticks = append(ticks, unimath.TickData{
				Tick:         tick,
				LiquidityNet: pt.LiquidityNet,
			})
		}
	}

	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Tick < ticks[j].Tick })
	return ticks, nil
}
