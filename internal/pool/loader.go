// Package pool loads pool state from chain and simulates swaps against it.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/registry"
)

// ErrUnrecognizedFactory means the pool's factory is not on the allow-list,
// so its contract semantics cannot be trusted.
var ErrUnrecognizedFactory = errors.New("unrecognized factory")

// Loader resolves pool contracts into model.Pool values using batched calls.
type Loader struct {
	client    BatchCaller
	tokens    *registry.Registry
	network   string
	factories map[common.Address]model.Variant
	ticks     *TickCache
	logger    *zap.Logger
}

// NewLoader creates a loader. factories maps allow-listed factory addresses
// to the pool variant they deploy. ticks may be nil, in which case V3 tick
// windows are fetched lazily on first simulation instead of at load time.
func NewLoader(client BatchCaller, tokens *registry.Registry, network string, factories map[common.Address]model.Variant, ticks *TickCache, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		client:    client,
		tokens:    tokens,
		network:   network,
		factories: factories,
		ticks:     ticks,
		logger:    logger,
	}
}

// Load resolves a pool address into a fully populated Pool: variant,
// immutables, token metadata, and current state. Factory lookup and token
// discovery go in one batch, the variant-specific state in a second; the
// variant is unknown before the first batch returns, so the two cannot be
// merged. Pool-level failures come back recorded on the Pool's Err field
// rather than as an error, so callers cache the address instead of
// re-probing it on every pass; only batch-level transport failures return
// an error.
func (l *Loader) Load(ctx context.Context, address common.Address) (*model.Pool, error) {
	p := &model.Pool{Address: address, Network: l.network}

	v3ABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse v3 pool abi: %w", err)
	}

	// factory(), token0(), token1() have identical shapes on V2 pairs and
	// V3 pools, so the V3 ABI serves both for this batch.
	calls := make([]chain.Call, 0, 3)
	for _, method := range []string{"factory", "token0", "token1"} {
		data, err := v3ABI.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		calls = append(calls, chain.Call{To: address, Data: data})
	}

	results, err := l.client.BatchCall(ctx, calls, nil)
	if err != nil {
		return nil, fmt.Errorf("pool %s identity batch: %w", address.Hex(), err)
	}

	factory, err := unpackAddress(v3ABI, "factory", results[0])
	if err != nil {
		return l.failLoad(p, fmt.Errorf("factory: %w", err)), nil
	}
	p.Factory = factory
	variant, ok := l.factories[factory]
	if !ok {
		return l.failLoad(p, fmt.Errorf("factory %s: %w", factory.Hex(), ErrUnrecognizedFactory)), nil
	}
	p.Variant = variant

	token0Addr, err := unpackAddress(v3ABI, "token0", results[1])
	if err != nil {
		return l.failLoad(p, fmt.Errorf("token0: %w", err)), nil
	}
	token1Addr, err := unpackAddress(v3ABI, "token1", results[2])
	if err != nil {
		return l.failLoad(p, fmt.Errorf("token1: %w", err)), nil
	}

	token0, err := l.tokens.Token(ctx, token0Addr)
	if err != nil {
		return l.failLoad(p, fmt.Errorf("token0 metadata: %w", err)), nil
	}
	token1, err := l.tokens.Token(ctx, token1Addr)
	if err != nil {
		return l.failLoad(p, fmt.Errorf("token1 metadata: %w", err)), nil
	}
	p.Token0 = token0
	p.Token1 = token1

	if variant == model.VariantV3 {
		if err := l.loadV3Immutables(ctx, p); err != nil {
			return l.failLoad(p, err), nil
		}
	}

	if err := l.Refresh(ctx, p, nil); err != nil {
		// Pools that fail to refresh stay in an error state so the caller
		// can exclude them without forgetting them.
		p.Err = err
		l.logger.Warn("pool state refresh failed", zap.String("pool", address.Hex()), zap.Error(err))
		return p, nil
	}

	// Prefetch the populated-tick window so the pool is simulation-ready
	// without another round trip on first use.
	if variant == model.VariantV3 && l.ticks != nil {
		if _, err := l.ticks.Window(ctx, p); err != nil {
			l.logger.Warn("tick window prefetch failed", zap.String("pool", address.Hex()), zap.Error(err))
		}
	}

	return p, nil
}

// failLoad records an unrecoverable load failure on the pool itself, keeping
// the address known while Tradable stays false.
func (l *Loader) failLoad(p *model.Pool, err error) *model.Pool {
	p.Err = fmt.Errorf("pool %s: %w", p.Address.Hex(), err)
	l.logger.Warn("pool load failed", zap.String("pool", p.Address.Hex()), zap.Error(err))
	return p
}

func (l *Loader) loadV3Immutables(ctx context.Context, p *model.Pool) error {
	v3ABI, err := V3PoolABI()
	if err != nil {
		return fmt.Errorf("parse v3 pool abi: %w", err)
	}

	methods := []string{"fee", "tickSpacing", "maxLiquidityPerTick"}
	calls := make([]chain.Call, 0, len(methods))
	for _, method := range methods {
		data, err := v3ABI.Pack(method)
		if err != nil {
			return fmt.Errorf("pack %s: %w", method, err)
		}
		calls = append(calls, chain.Call{To: p.Address, Data: data})
	}

	results, err := l.client.BatchCall(ctx, calls, nil)
	if err != nil {
		return fmt.Errorf("pool %s immutables batch: %w", p.Address.Hex(), err)
	}

	fee, err := unpackBigInt(v3ABI, "fee", results[0])
	if err != nil {
		return fmt.Errorf("pool %s fee: %w", p.Address.Hex(), err)
	}
	spacingBig, err := unpackBigInt(v3ABI, "tickSpacing", results[1])
	if err != nil {
		return fmt.Errorf("pool %s tickSpacing: %w", p.Address.Hex(), err)
	}
	spacing, err := int24FromBig(spacingBig)
	if err != nil {
		return fmt.Errorf("pool %s tickSpacing: %w", p.Address.Hex(), err)
	}
	maxLiq, err := unpackBigInt(v3ABI, "maxLiquidityPerTick", results[2])
	if err != nil {
		return fmt.Errorf("pool %s maxLiquidityPerTick: %w", p.Address.Hex(), err)
	}

	p.Immutables = &model.V3Immutables{
		Fee:                 uint32(fee.Uint64()),
		TickSpacing:         spacing,
		MaxLiquidityPerTick: maxLiq,
	}
	return nil
}

// Refresh reloads the pool's mutable state and token balances in one batch,
// optionally pinned to a block.
func (l *Loader) Refresh(ctx context.Context, p *model.Pool, blockNumber *big.Int) error {
	erc20, err := registry.ERC20ABI()
	if err != nil {
		return fmt.Errorf("parse erc20 abi: %w", err)
	}
	balanceData, err := erc20.Pack("balanceOf", p.Address)
	if err != nil {
		return fmt.Errorf("pack balanceOf: %w", err)
	}

	switch p.Variant {
	case model.VariantV3:
		return l.refreshV3(ctx, p, balanceData, blockNumber)
	case model.VariantV2:
		return l.refreshV2(ctx, p, balanceData, blockNumber)
	default:
		return fmt.Errorf("pool %s: %w", p.Address.Hex(), ErrUnrecognizedFactory)
	}
}

func (l *Loader) refreshV3(ctx context.Context, p *model.Pool, balanceData []byte, blockNumber *big.Int) error {
	v3ABI, err := V3PoolABI()
	if err != nil {
		return fmt.Errorf("parse v3 pool abi: %w", err)
	}

	slot0Data, err := v3ABI.Pack("slot0")
	if err != nil {
		return fmt.Errorf("pack slot0: %w", err)
	}
	liquidityData, err := v3ABI.Pack("liquidity")
	if err != nil {
		return fmt.Errorf("pack liquidity: %w", err)
	}

	calls := []chain.Call{
		{To: p.Address, Data: slot0Data},
		{To: p.Address, Data: liquidityData},
		{To: p.Token0.Address, Data: balanceData},
		{To: p.Token1.Address, Data: balanceData},
	}
	results, err := l.client.BatchCall(ctx, calls, blockNumber)
	if err != nil {
		return fmt.Errorf("pool %s v3 state batch: %w", p.Address.Hex(), err)
	}

	if !results[0].Ok() {
		return fmt.Errorf("pool %s slot0: %w", p.Address.Hex(), callErr(results[0]))
	}
	slot0Values, err := v3ABI.Unpack("slot0", results[0].Data)
	if err != nil {
		return fmt.Errorf("pool %s slot0: %w", p.Address.Hex(), err)
	}
	sqrtPrice, err := asBigInt(slot0Values[0])
	if err != nil {
		return fmt.Errorf("pool %s sqrtPriceX96: %w", p.Address.Hex(), err)
	}
	tickBig, err := asBigInt(slot0Values[1])
	if err != nil {
		return fmt.Errorf("pool %s tick: %w", p.Address.Hex(), err)
	}
	tick, err := int24FromBig(tickBig)
	if err != nil {
		return fmt.Errorf("pool %s tick: %w", p.Address.Hex(), err)
	}

	liquidity, err := unpackBigInt(v3ABI, "liquidity", results[1])
	if err != nil {
		return fmt.Errorf("pool %s liquidity: %w", p.Address.Hex(), err)
	}

	p.V3 = &model.V3State{
		Liquidity:    liquidity,
		SqrtPriceX96: sqrtPrice,
		Tick:         tick,
	}
	l.applyBalances(p, results[2], results[3])
	p.Err = nil
	return nil
}

func (l *Loader) refreshV2(ctx context.Context, p *model.Pool, balanceData []byte, blockNumber *big.Int) error {
	v2ABI, err := V2PairABI()
	if err != nil {
		return fmt.Errorf("parse v2 pair abi: %w", err)
	}

	reservesData, err := v2ABI.Pack("getReserves")
	if err != nil {
		return fmt.Errorf("pack getReserves: %w", err)
	}

	calls := []chain.Call{
		{To: p.Address, Data: reservesData},
		{To: p.Token0.Address, Data: balanceData},
		{To: p.Token1.Address, Data: balanceData},
	}
	results, err := l.client.BatchCall(ctx, calls, blockNumber)
	if err != nil {
		return fmt.Errorf("pool %s v2 state batch: %w", p.Address.Hex(), err)
	}

	if !results[0].Ok() {
		return fmt.Errorf("pool %s getReserves: %w", p.Address.Hex(), callErr(results[0]))
	}
	values, err := v2ABI.Unpack("getReserves", results[0].Data)
	if err != nil {
		return fmt.Errorf("pool %s getReserves: %w", p.Address.Hex(), err)
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return fmt.Errorf("pool %s reserve0: %w", p.Address.Hex(), err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return fmt.Errorf("pool %s reserve1: %w", p.Address.Hex(), err)
	}
	tsBig, err := asBigInt(values[2])
	if err != nil {
		return fmt.Errorf("pool %s blockTimestampLast: %w", p.Address.Hex(), err)
	}

	p.V2 = &model.V2State{
		Reserve0:  reserve0,
		Reserve1:  reserve1,
		Timestamp: uint32(tsBig.Uint64()),
	}
	l.applyBalances(p, results[1], results[2])
	p.Err = nil
	return nil
}

// applyBalances decodes balanceOf results. Balance failures are tolerated;
// reserves and slot0 remain the pricing source of truth.
func (l *Loader) applyBalances(p *model.Pool, res0, res1 chain.CallResult) {
	erc20, err := registry.ERC20ABI()
	if err != nil {
		return
	}
	if res0.Ok() {
		if values, err := erc20.Unpack("balanceOf", res0.Data); err == nil {
			if bal, err := asBigInt(values[0]); err == nil {
				p.Balance0 = bal
			}
		}
	}
	if res1.Ok() {
		if values, err := erc20.Unpack("balanceOf", res1.Data); err == nil {
			if bal, err := asBigInt(values[0]); err == nil {
				p.Balance1 = bal
			}
		}
	}
}

func callErr(r chain.CallResult) error {
	if r.Err != nil {
		return r.Err
	}
	return errors.New("empty return data")
}

func unpackAddress(parsed abi.ABI, method string, r chain.CallResult) (common.Address, error) {
	if !r.Ok() {
		return common.Address{}, callErr(r)
	}
	values, err := parsed.Unpack(method, r.Data)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

func unpackBigInt(parsed abi.ABI, method string, r chain.CallResult) (*big.Int, error) {
	if !r.Ok() {
		return nil, callErr(r)
	}
	values, err := parsed.Unpack(method, r.Data)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
