package pool

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/unimath"
)

func v2Pool() *model.Pool {
	r0, _ := new(big.Int).SetString("1000000000000000000000", 10) // 1000 WETH
	r1, _ := new(big.Int).SetString("3000000000000000000000000", 10)
	return &model.Pool{
		Address: common.HexToAddress("0x0000000000000000000000000000000000000101"),
		Variant: model.VariantV2,
		Token0:  model.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000a01"), Decimals: 18, Symbol: "WETH"},
		Token1:  model.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000a02"), Decimals: 18, Symbol: "TKN"},
		V2:      &model.V2State{Reserve0: r0, Reserve1: r1},
	}
}

func TestSimulatorV2SwapExactIn(t *testing.T) {
	s := NewSimulator(nil, nil, common.Address{}, nil)
	p := v2Pool()

	in, _ := new(big.Int).SetString("1000000000000000000", 10) // 1 WETH
	out, err := s.SwapExactIn(context.Background(), p, p.Token0.Address, in)
	if err != nil {
		t.Fatal(err)
	}
	// Price is ~3000 TKN per WETH; after the fee and impact the output
	// lands just below that.
	want, _ := new(big.Int).SetString("2990000000000000000000", 10)
	if out.Cmp(want) > 0 {
		t.Fatalf("output %s above the fee-free price", out)
	}
	low, _ := new(big.Int).SetString("2980000000000000000000", 10)
	if out.Cmp(low) < 0 {
		t.Fatalf("output %s implausibly low", out)
	}
}

func TestSimulatorV2BothDirections(t *testing.T) {
	s := NewSimulator(nil, nil, common.Address{}, nil)
	p := v2Pool()

	in, _ := new(big.Int).SetString("3000000000000000000000", 10) // 3000 TKN
	out, err := s.SwapExactIn(context.Background(), p, p.Token1.Address, in)
	if err != nil {
		t.Fatal(err)
	}
	// ~1 WETH before fee and impact.
	oneEth, _ := new(big.Int).SetString("1000000000000000000", 10)
	if out.Cmp(oneEth) >= 0 {
		t.Fatalf("reverse output %s not below 1 WETH", out)
	}
	if out.Sign() <= 0 {
		t.Fatal("reverse output is zero")
	}
}

func TestSimulatorRejectsForeignToken(t *testing.T) {
	s := NewSimulator(nil, nil, common.Address{}, nil)
	p := v2Pool()

	_, err := s.SwapExactIn(context.Background(), p, common.HexToAddress("0xdead"), big.NewInt(1))
	if !errors.Is(err, ErrNotPoolToken) {
		t.Fatalf("got %v, want ErrNotPoolToken", err)
	}
}

func TestSimulatorRejectsErrorStatePool(t *testing.T) {
	s := NewSimulator(nil, nil, common.Address{}, nil)
	p := v2Pool()
	p.Err = errors.New("refresh failed")

	_, err := s.SwapExactIn(context.Background(), p, p.Token0.Address, big.NewInt(1))
	if !errors.Is(err, ErrPoolNotTradable) {
		t.Fatalf("got %v, want ErrPoolNotTradable", err)
	}
}

func TestSimulatorV2RequiredInput(t *testing.T) {
	s := NewSimulator(nil, nil, common.Address{}, nil)
	p := v2Pool()

	out, _ := new(big.Int).SetString("2900000000000000000000", 10)
	in, err := s.RequiredInput(context.Background(), p, p.Token1.Address, out)
	if err != nil {
		t.Fatal(err)
	}
	// The quoted input must actually buy the requested output.
	got, err := s.SwapExactIn(context.Background(), p, p.Token0.Address, in)
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(out) < 0 {
		t.Fatalf("required input %s yields only %s of %s", in, got, out)
	}
}

func TestSimulatorV3WideningStopsWithoutProgress(t *testing.T) {
	empty := packPopulatedTicks(t)
	fake := &fakeBatchCaller{result: func(chain.Call) chain.CallResult {
		return chain.CallResult{Data: empty}
	}}
	ticks := NewTickCache(fake, common.HexToAddress("0x0000000000000000000000000000000000000e02"), 2, nil)
	s := NewSimulator(nil, ticks, common.Address{}, nil)
	p := v3CachePool(t, 0)

	in, _ := new(big.Int).SetString("1000000000000000000", 10)
	_, err := s.SwapExactIn(context.Background(), p, p.Token0.Address, in)
	if !errors.Is(err, ErrTickWindowExhausted) {
		t.Fatalf("got %v, want ErrTickWindowExhausted", err)
	}
	// Initial window plus a single widening that added nothing; the loop
	// must not keep refetching an empty direction.
	if fake.batches != 2 {
		t.Fatalf("lens batches = %d, want 2", fake.batches)
	}
}

func TestRate(t *testing.T) {
	p := v2Pool()
	r, err := Rate(p, p.Token0.Address)
	if err != nil {
		t.Fatal(err)
	}
	if r < 2999 || r > 3001 {
		t.Fatalf("token0 rate %f, want ~3000", r)
	}

	inv, err := Rate(p, p.Token1.Address)
	if err != nil {
		t.Fatal(err)
	}
	if inv <= 0 || inv*r < 0.999 || inv*r > 1.001 {
		t.Fatalf("inverse rate %f does not invert %f", inv, r)
	}
}

func TestRateV3(t *testing.T) {
	sqrt, err := unimath.SqrtRatioAtTick(0)
	if err != nil {
		t.Fatal(err)
	}
	liq, _ := new(big.Int).SetString("1000000000000000000", 10)
	p := &model.Pool{
		Address:    common.HexToAddress("0x0000000000000000000000000000000000000102"),
		Variant:    model.VariantV3,
		Token0:     model.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000a01"), Decimals: 18},
		Token1:     model.Token{Address: common.HexToAddress("0x0000000000000000000000000000000000000a02"), Decimals: 18},
		Immutables: &model.V3Immutables{Fee: 3000, TickSpacing: 60},
		V3:         &model.V3State{SqrtPriceX96: sqrt, Liquidity: liq, Tick: 0},
	}

	r, err := Rate(p, p.Token0.Address)
	if err != nil {
		t.Fatal(err)
	}
	if r < 0.9999 || r > 1.0001 {
		t.Fatalf("tick 0 rate %f, want 1", r)
	}
}
