// Package liquidity scores pool liquidity against anchor-token thresholds
// and applies the blacklist.
package liquidity

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/chain"
)

const aggregatorABIJSON = `[
  {
    "inputs": [],
    "name": "latestRoundData",
    "outputs": [
      {"internalType": "uint80", "name": "roundId", "type": "uint80"},
      {"internalType": "int256", "name": "answer", "type": "int256"},
      {"internalType": "uint256", "name": "startedAt", "type": "uint256"},
      {"internalType": "uint256", "name": "updatedAt", "type": "uint256"},
      {"internalType": "uint80", "name": "answeredInRound", "type": "uint80"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "decimals",
    "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	aggregatorABI     abi.ABI
	aggregatorABIOnce sync.Once
	aggregatorABIErr  error
)

func aggregatorABIInstance() (abi.ABI, error) {
	aggregatorABIOnce.Do(func() {
		aggregatorABI, aggregatorABIErr = abi.JSON(strings.NewReader(aggregatorABIJSON))
	})
	return aggregatorABI, aggregatorABIErr
}

// PriceFeed reads a Chainlink aggregator and caches the answer briefly so
// per-pool classification does not hammer the feed.
type PriceFeed struct {
	client *chain.Client
	feed   common.Address
	ttl    time.Duration

	mu        sync.RWMutex
	price     float64
	fetchedAt time.Time
}

// NewPriceFeed creates a feed reader for the given aggregator address.
func NewPriceFeed(client *chain.Client, feed common.Address, ttl time.Duration) *PriceFeed {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &PriceFeed{client: client, feed: feed, ttl: ttl}
}

// Price returns the latest feed answer scaled to a plain float.
func (f *PriceFeed) Price(ctx context.Context) (float64, error) {
	f.mu.RLock()
	price, fetchedAt := f.price, f.fetchedAt
	f.mu.RUnlock()
	if price > 0 && time.Since(fetchedAt) < f.ttl {
		return price, nil
	}

	parsed, err := aggregatorABIInstance()
	if err != nil {
		return 0, fmt.Errorf("parse aggregator abi: %w", err)
	}

	call := func(method string) ([]interface{}, error) {
		data, err := parsed.Pack(method)
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", method, err)
		}
		msg := ethereum.CallMsg{To: &f.feed, Data: data}
		resp, err := f.client.CallContract(ctx, msg, nil)
		if err != nil {
			return nil, fmt.Errorf("call %s: %w", method, err)
		}
		return parsed.Unpack(method, resp)
	}

	roundValues, err := call("latestRoundData")
	if err != nil {
		return 0, err
	}
	answer, ok := roundValues[1].(*big.Int)
	if !ok || answer.Sign() <= 0 {
		return 0, fmt.Errorf("feed %s returned non-positive answer", f.feed.Hex())
	}

	decValues, err := call("decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := decValues[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("feed %s decimals: unexpected type %T", f.feed.Hex(), decValues[0])
	}

	answerFloat, _ := new(big.Float).SetInt(answer).Float64()
	price = answerFloat / math.Pow(10, float64(decimals))

	f.mu.Lock()
	f.price = price
	f.fetchedAt = time.Now()
	f.mu.Unlock()
	return price, nil
}
