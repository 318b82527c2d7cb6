// Package registry resolves and caches ERC-20 token metadata and tracks the
// token blacklist.
package registry

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
)

// Store is the persistence backend for token records.
type Store interface {
	GetToken(ctx context.Context, address common.Address) (model.TokenRecord, bool, error)
	UpsertToken(ctx context.Context, record model.TokenRecord) error
	SetTokenBlacklisted(ctx context.Context, address common.Address, blacklisted bool) error
}

// Registry layers an in-process LRU over the store, falling back to chain
// calls for unseen tokens.
type Registry struct {
	client  *chain.Client
	store   Store
	network string
	cache   *lru.Cache[common.Address, model.TokenRecord]
	logger  *zap.Logger
}

// New creates a token registry. store may be nil, in which case every miss
// goes to the chain.
func New(client *chain.Client, store Store, network string, cacheSize int, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cache, err := lru.New[common.Address, model.TokenRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("token cache: %w", err)
	}
	return &Registry{
		client:  client,
		store:   store,
		network: network,
		cache:   cache,
		logger:  logger,
	}, nil
}

// Token resolves token metadata, consulting the cache, the store, and
// finally the chain. Chain results are persisted.
func (r *Registry) Token(ctx context.Context, address common.Address) (model.Token, error) {
	rec, err := r.record(ctx, address)
	if err != nil {
		return model.Token{}, err
	}
	return rec.Token, nil
}

// IsBlacklisted reports whether the token is on the blacklist. Unknown
// tokens are not blacklisted.
func (r *Registry) IsBlacklisted(ctx context.Context, address common.Address) bool {
	rec, err := r.record(ctx, address)
	if err != nil {
		return false
	}
	return rec.Blacklisted
}

// Blacklist marks the token so its pools are excluded from the graph.
func (r *Registry) Blacklist(ctx context.Context, address common.Address) error {
	rec, err := r.record(ctx, address)
	if err != nil {
		// Record the flag even when metadata is unavailable.
		rec = model.TokenRecord{Token: model.Token{Address: address, Network: r.network}}
	}
	rec.Blacklisted = true
	r.cache.Add(address, rec)

	if r.store == nil {
		return nil
	}
	if err := r.store.SetTokenBlacklisted(ctx, address, true); err != nil {
		return fmt.Errorf("blacklist %s: %w", address.Hex(), err)
	}
	return nil
}

func (r *Registry) record(ctx context.Context, address common.Address) (model.TokenRecord, error) {
	if rec, ok := r.cache.Get(address); ok {
		return rec, nil
	}

	if r.store != nil {
		rec, ok, err := r.store.GetToken(ctx, address)
		if err != nil {
			r.logger.Warn("token store read failed", zap.String("token", address.Hex()), zap.Error(err))
		} else if ok {
			r.cache.Add(address, rec)
			return rec, nil
		}
	}

	token, err := r.fetch(ctx, address)
	if err != nil {
		return model.TokenRecord{}, err
	}
	rec := model.TokenRecord{Token: token}
	r.cache.Add(address, rec)

	if r.store != nil {
		if err := r.store.UpsertToken(ctx, rec); err != nil {
			r.logger.Warn("token store write failed", zap.String("token", address.Hex()), zap.Error(err))
		}
	}
	return rec, nil
}

// fetch loads decimals, symbol, and name with the bytes32 fallback for the
// string fields. Decimals is mandatory; a token without it is unusable.
func (r *Registry) fetch(ctx context.Context, address common.Address) (model.Token, error) {
	token := model.Token{Address: address, Network: r.network}
	if r.client == nil {
		return token, fmt.Errorf("chain client is nil")
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return token, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return token, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	call := func(method string, parsed abi.ABI) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &address, Data: data}
		resp, err := r.client.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		values, err := parsed.Unpack(method, resp)
		if err != nil {
			return nil, fmt.Errorf("unpack %s: %w", method, err)
		}
		return values, nil
	}

	values, err := call("decimals", stringABI)
	if err != nil {
		return token, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return token, fmt.Errorf("decimals: %w", err)
	}
	token.Decimals = decimals

	if values, err := call("symbol", stringABI); err == nil {
		if symbol, ok := values[0].(string); ok {
			token.Symbol = symbol
		}
	} else if values, err := call("symbol", bytes32ABI); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			token.Symbol = symbol
		}
	} else {
		r.logger.Debug("symbol call failed", zap.String("token", address.Hex()), zap.Error(err))
	}

	if values, err := call("name", stringABI); err == nil {
		if name, ok := values[0].(string); ok {
			token.Name = name
		}
	} else if values, err := call("name", bytes32ABI); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			token.Name = name
		}
	} else {
		r.logger.Debug("name call failed", zap.String("token", address.Hex()), zap.Error(err))
	}

	return token, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return uint8(v), nil
	case uint32:
		return uint8(v), nil
	case uint64:
		return uint8(v), nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
