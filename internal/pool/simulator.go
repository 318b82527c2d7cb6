package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/unimath"
)

// maxWindowWidenings bounds how often one swap may grow the tick window
// before exhaustion is surfaced.
const maxWindowWidenings = 8

var (
	// ErrTickWindowExhausted means the swap walked past the cached tick
	// range and widening it stopped helping.
	ErrTickWindowExhausted = errors.New("tick window exhausted")

	// ErrNotPoolToken means the given token is not one of the pool's pair.
	ErrNotPoolToken = errors.New("token not in pool")

	// ErrPoolNotTradable means the pool is in an error state or missing
	// state for its variant.
	ErrPoolNotTradable = errors.New("pool not tradable")
)

// Simulator prices swaps against locally cached pool state.
type Simulator struct {
	client *chain.Client
	ticks  *TickCache
	quoter common.Address
	logger *zap.Logger
}

// NewSimulator creates a simulator. quoter may be the zero address if the
// on-chain quote path is unused.
func NewSimulator(client *chain.Client, ticks *TickCache, quoter common.Address, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		client: client,
		ticks:  ticks,
		quoter: quoter,
		logger: logger,
	}
}

// SwapExactIn returns the output of swapping amountIn of tokenIn through
// the pool, using local math only. For V3 pools the cached tick window is
// widened as needed to complete the walk.
func (s *Simulator) SwapExactIn(ctx context.Context, p *model.Pool, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	out, _, err := s.SwapExactInPrice(ctx, p, tokenIn, amountIn)
	return out, err
}

// SwapExactInPrice is SwapExactIn plus the pool's post-swap sqrt price,
// which downstream transaction builders use as a price limit. The price is
// nil for V2 pools.
func (s *Simulator) SwapExactInPrice(ctx context.Context, p *model.Pool, tokenIn common.Address, amountIn *big.Int) (*big.Int, *big.Int, error) {
	if !p.Tradable() {
		return nil, nil, fmt.Errorf("pool %s: %w", p.Address.Hex(), ErrPoolNotTradable)
	}
	if !p.HasToken(tokenIn) {
		return nil, nil, fmt.Errorf("pool %s token %s: %w", p.Address.Hex(), tokenIn.Hex(), ErrNotPoolToken)
	}
	zeroForOne := tokenIn == p.Token0.Address

	switch p.Variant {
	case model.VariantV2:
		var out *big.Int
		var err error
		if zeroForOne {
			out, err = unimath.V2AmountOut(p.V2.Reserve0, p.V2.Reserve1, amountIn)
		} else {
			out, err = unimath.V2AmountOut(p.V2.Reserve1, p.V2.Reserve0, amountIn)
		}
		return out, nil, err

	case model.VariantV3:
		return s.swapV3(ctx, p, amountIn, zeroForOne)

	default:
		return nil, nil, fmt.Errorf("pool %s: %w", p.Address.Hex(), ErrPoolNotTradable)
	}
}

// RequiredInput returns the input needed to receive amountOut from the
// pool. V2 has a closed form; V3 is solved by inverting SwapExactIn with a
// bounded binary search.
func (s *Simulator) RequiredInput(ctx context.Context, p *model.Pool, tokenOut common.Address, amountOut *big.Int) (*big.Int, error) {
	if !p.Tradable() {
		return nil, fmt.Errorf("pool %s: %w", p.Address.Hex(), ErrPoolNotTradable)
	}
	if !p.HasToken(tokenOut) {
		return nil, fmt.Errorf("pool %s token %s: %w", p.Address.Hex(), tokenOut.Hex(), ErrNotPoolToken)
	}

	if p.Variant == model.VariantV2 {
		if tokenOut == p.Token1.Address {
			return unimath.V2AmountIn(p.V2.Reserve0, p.V2.Reserve1, amountOut)
		}
		return unimath.V2AmountIn(p.V2.Reserve1, p.V2.Reserve0, amountOut)
	}

	// V3: binary search the input whose simulated output covers amountOut.
	other, _ := p.OtherToken(tokenOut)
	tokenIn := other.Address
	low := big.NewInt(1)
	high := new(big.Int).Lsh(amountOut, 1)
	if high.Sign() <= 0 {
		return big.NewInt(0), nil
	}

	// Grow the upper bound until the output is sufficient.
	for i := 0; i < 64; i++ {
		out, err := s.SwapExactIn(ctx, p, tokenIn, high)
		if err != nil {
			return nil, err
		}
		if out.Cmp(amountOut) >= 0 {
			break
		}
		high.Lsh(high, 1)
	}

	for i := 0; i < 128 && low.Cmp(high) < 0; i++ {
		mid := new(big.Int).Add(low, high)
		mid.Rsh(mid, 1)
		out, err := s.SwapExactIn(ctx, p, tokenIn, mid)
		if err != nil {
			return nil, err
		}
		if out.Cmp(amountOut) >= 0 {
			high.Set(mid)
		} else {
			low.Add(mid, big.NewInt(1))
		}
	}
	return high, nil
}

func (s *Simulator) swapV3(ctx context.Context, p *model.Pool, amountIn *big.Int, zeroForOne bool) (*big.Int, *big.Int, error) {
	w, err := s.ticks.Window(ctx, p)
	if err != nil {
		return nil, nil, err
	}

	res, err := s.runV3(p, w, amountIn, zeroForOne)
	if err != nil {
		return nil, nil, err
	}

	// Widen in the traveled direction until the walk completes. Surface
	// exhaustion only when a widening fails or stops making progress.
	for attempt := 0; res.Exhausted && attempt < maxWindowWidenings; attempt++ {
		w, err = s.ticks.Widen(ctx, p, zeroForOne)
		if err != nil {
			return nil, nil, err
		}
		next, err := s.runV3(p, w, amountIn, zeroForOne)
		if err != nil {
			return nil, nil, err
		}
		if next.Exhausted && next.AmountIn.Cmp(res.AmountIn) == 0 {
			res = next
			break
		}
		res = next
	}
	if res.Exhausted {
		return res.AmountOut, res.SqrtPriceX96, fmt.Errorf("pool %s: %w", p.Address.Hex(), ErrTickWindowExhausted)
	}
	return res.AmountOut, res.SqrtPriceX96, nil
}

func (s *Simulator) runV3(p *model.Pool, w *Window, amountIn *big.Int, zeroForOne bool) (unimath.V3SwapResult, error) {
	params := unimath.V3Params{
		SqrtPriceX96: p.V3.SqrtPriceX96,
		Liquidity:    p.V3.Liquidity,
		Tick:         p.V3.Tick,
		TickSpacing:  p.Immutables.TickSpacing,
		FeePPM:       p.Immutables.Fee,
		Ticks:        w.Ticks,
		WindowLower:  w.LowerTick(),
		WindowUpper:  w.UpperTick(),
	}
	return unimath.V3SwapExactIn(params, amountIn, zeroForOne)
}

// QuoteExactIn asks the on-chain Quoter for the swap output. Slower than
// local math but authoritative; used to cross-check candidates.
func (s *Simulator) QuoteExactIn(ctx context.Context, p *model.Pool, tokenIn common.Address, amountIn *big.Int) (*big.Int, error) {
	if p.Variant != model.VariantV3 || p.Immutables == nil {
		return nil, fmt.Errorf("pool %s: quoter supports v3 only", p.Address.Hex())
	}
	if (s.quoter == common.Address{}) {
		return nil, errors.New("quoter address not configured")
	}
	if !p.HasToken(tokenIn) {
		return nil, fmt.Errorf("pool %s token %s: %w", p.Address.Hex(), tokenIn.Hex(), ErrNotPoolToken)
	}

	other, _ := p.OtherToken(tokenIn)
	return s.quote(ctx, p, "quoteExactInputSingle", tokenIn, other.Address, amountIn)
}

// QuoteExactOut asks the on-chain Quoter for the input required to receive
// amountOut of tokenOut.
func (s *Simulator) QuoteExactOut(ctx context.Context, p *model.Pool, tokenOut common.Address, amountOut *big.Int) (*big.Int, error) {
	if p.Variant != model.VariantV3 || p.Immutables == nil {
		return nil, fmt.Errorf("pool %s: quoter supports v3 only", p.Address.Hex())
	}
	if (s.quoter == common.Address{}) {
		return nil, errors.New("quoter address not configured")
	}
	if !p.HasToken(tokenOut) {
		return nil, fmt.Errorf("pool %s token %s: %w", p.Address.Hex(), tokenOut.Hex(), ErrNotPoolToken)
	}

	other, _ := p.OtherToken(tokenOut)
	return s.quote(ctx, p, "quoteExactOutputSingle", other.Address, tokenOut, amountOut)
}

func (s *Simulator) quote(ctx context.Context, p *model.Pool, method string, tokenIn, tokenOut common.Address, amount *big.Int) (*big.Int, error) {
	quoter, err := QuoterABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	data, err := quoter.Pack(method,
		tokenIn, tokenOut, new(big.Int).SetUint64(uint64(p.Immutables.Fee)), amount, big.NewInt(0))
	if err != nil {
		return nil, fmt.Errorf("pack quote: %w", err)
	}

	msg := ethereum.CallMsg{To: &s.quoter, Data: data}
	resp, err := s.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", p.Address.Hex(), err)
	}
	values, err := quoter.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack quote: %w", err)
	}
	return asBigInt(values[0])
}

// Rate returns the decimal-adjusted spot price of the source token in units
// of the pool's other token.
func Rate(p *model.Pool, source common.Address) (float64, error) {
	if !p.Tradable() {
		return 0, fmt.Errorf("pool %s: %w", p.Address.Hex(), ErrPoolNotTradable)
	}
	if !p.HasToken(source) {
		return 0, fmt.Errorf("pool %s token %s: %w", p.Address.Hex(), source.Hex(), ErrNotPoolToken)
	}

	var price float64
	switch p.Variant {
	case model.VariantV3:
		price = unimath.PriceFromSqrtX96(p.V3.SqrtPriceX96, p.Token0.Decimals, p.Token1.Decimals)
	case model.VariantV2:
		price = unimath.PriceFromReserves(p.V2.Reserve0, p.V2.Reserve1, p.Token0.Decimals, p.Token1.Decimals)
	default:
		return 0, fmt.Errorf("pool %s: %w", p.Address.Hex(), ErrPoolNotTradable)
	}

	if source == p.Token0.Address {
		return price, nil
	}
	if price == 0 {
		return 0, nil
	}
	return 1 / price, nil
}
