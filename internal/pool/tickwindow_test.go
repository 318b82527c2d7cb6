package pool

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/unimath"
)

// fakeBatchCaller answers every call in a batch with the same canned result
// and counts round trips.
type fakeBatchCaller struct {
	batches int
	calls   int
	result  func(call chain.Call) chain.CallResult
}

func (f *fakeBatchCaller) BatchCall(_ context.Context, calls []chain.Call, _ *big.Int) ([]chain.CallResult, error) {
	f.batches++
	f.calls += len(calls)
	out := make([]chain.CallResult, len(calls))
	for i, c := range calls {
		out[i] = f.result(c)
	}
	return out, nil
}

func packPopulatedTicks(t *testing.T, ticks ...unimath.TickData) []byte {
	t.Helper()
	lensABI, err := TickLensABI()
	if err != nil {
		t.Fatalf("parse ticklens abi: %v", err)
	}
	type populatedTick struct {
		Tick           *big.Int
		LiquidityNet   *big.Int
		LiquidityGross *big.Int
	}
	out := make([]populatedTick, len(ticks))
	for i, td := range ticks {
		out[i] = populatedTick{
			Tick:           big.NewInt(int64(td.Tick)),
			LiquidityNet:   td.LiquidityNet,
			LiquidityGross: big.NewInt(0),
		}
	}
	data, err := lensABI.Methods["getPopulatedTicksInWord"].Outputs.Pack(out)
	if err != nil {
		t.Fatalf("pack populated ticks: %v", err)
	}
	return data
}

func v3CachePool(t *testing.T, liquidity int64) *model.Pool {
	t.Helper()
	sqrt, err := unimath.SqrtRatioAtTick(0)
	if err != nil {
		t.Fatalf("sqrt at tick 0: %v", err)
	}
	return &model.Pool{
		Address:    common.HexToAddress("0x0000000000000000000000000000000000000301"),
		Variant:    model.VariantV3,
		Token0:     model.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000a01"), Decimals: 18},
		Token1:     model.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000a02"), Decimals: 18},
		Immutables: &model.V3Immutables{Fee: 3000, TickSpacing: 60},
		V3:         &model.V3State{SqrtPriceX96: sqrt, Liquidity: big.NewInt(liquidity), Tick: 0},
	}
}

func TestFloorDiv(t *testing.T) {
	cases := []struct {
		a, b, want int32
	}{
		{0, 60, 0},
		{59, 60, 0},
		{60, 60, 1},
		{-1, 60, -1},
		{-60, 60, -1},
		{-61, 60, -2},
	}
	for _, c := range cases {
		if got := floorDiv(c.a, c.b); got != c.want {
			t.Fatalf("floorDiv(%d, %d) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestWordOfTick(t *testing.T) {
	// With spacing 60 one word covers 15360 ticks.
	cases := []struct {
		tick, spacing, want int32
	}{
		{0, 60, 0},
		{15359, 60, 0},
		{15360, 60, 1},
		{-1, 60, -1},
		{-15360, 60, -1},
		{-15361, 60, -2},
		{0, 10, 0},
		{2560, 10, 1},
	}
	for _, c := range cases {
		if got := wordOfTick(c.tick, c.spacing); got != c.want {
			t.Fatalf("wordOfTick(%d, %d) = %d, want %d", c.tick, c.spacing, got, c.want)
		}
	}
}

func TestTickCacheFetchCounts(t *testing.T) {
	empty := packPopulatedTicks(t)
	fake := &fakeBatchCaller{result: func(chain.Call) chain.CallResult {
		return chain.CallResult{Data: empty}
	}}
	c := NewTickCache(fake, common.HexToAddress("0x0000000000000000000000000000000000000e01"), 2, nil)
	p := v3CachePool(t, 1)

	w, err := c.Window(context.Background(), p)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if fake.batches != 1 || fake.calls != 5 {
		t.Fatalf("initial fetch: %d batches / %d calls, want 1/5", fake.batches, fake.calls)
	}
	if w.LowerWord != -2 || w.UpperWord != 2 {
		t.Fatalf("window words [%d,%d], want [-2,2]", w.LowerWord, w.UpperWord)
	}

	// Cached windows answer without a network round trip.
	if _, err := c.Window(context.Background(), p); err != nil {
		t.Fatalf("cached window: %v", err)
	}
	if fake.batches != 1 {
		t.Fatalf("cached window refetched: %d batches", fake.batches)
	}

	// Widening fetches exactly the missing words, once.
	w, err = c.Widen(context.Background(), p, true)
	if err != nil {
		t.Fatalf("widen: %v", err)
	}
	if fake.batches != 2 || fake.calls != 7 {
		t.Fatalf("widen fetch: %d batches / %d calls, want 2/7", fake.batches, fake.calls)
	}
	if w.LowerWord != -4 || w.UpperWord != 2 {
		t.Fatalf("widened words [%d,%d], want [-4,2]", w.LowerWord, w.UpperWord)
	}
}

func TestWindowBounds(t *testing.T) {
	w := &Window{LowerWord: -1, UpperWord: 1, TickSpacing: 60}
	if got := w.LowerTick(); got != -15360 {
		t.Fatalf("lower tick %d, want -15360", got)
	}
	if got := w.UpperTick(); got != 2*15360-1 {
		t.Fatalf("upper tick %d, want %d", got, 2*15360-1)
	}

	// Every tick in the covered words maps back inside the bounds.
	for _, tick := range []int32{-15360, -1, 0, 15359, 30719} {
		word := wordOfTick(tick, 60)
		if word < w.LowerWord || word > w.UpperWord {
			t.Fatalf("tick %d word %d outside window", tick, word)
		}
	}
}
