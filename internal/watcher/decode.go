package watcher

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
)

// Event signatures the watcher subscribes to.
var (
	TopicSwapV3 = crypto.Keccak256Hash([]byte("Swap(address,address,int256,int256,uint160,uint128,int24)"))
	TopicSyncV2 = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))
)

// DecodePoolLog converts a raw log into a typed pool event. Logs with an
// unrecognized topic0 return an error and should be counted, not fatal.
func DecodePoolLog(log types.Log) (model.PoolEvent, error) {
	if len(log.Topics) == 0 {
		return model.PoolEvent{}, fmt.Errorf("log %s/%d: missing topic0", log.TxHash.Hex(), log.Index)
	}

	event := model.PoolEvent{
		Pool:        log.Address,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
	}

	switch log.Topics[0] {
	case TopicSwapV3:
		swap, err := decodeSwapV3(log)
		if err != nil {
			return model.PoolEvent{}, err
		}
		event.Kind = model.EventSwapV3
		event.Swap = swap
		return event, nil

	case TopicSyncV2:
		sync, err := decodeSyncV2(log)
		if err != nil {
			return model.PoolEvent{}, err
		}
		event.Kind = model.EventSyncV2
		event.Sync = sync
		return event, nil

	default:
		return model.PoolEvent{}, fmt.Errorf("log %s/%d: unrecognized topic0 %s", log.TxHash.Hex(), log.Index, log.Topics[0].Hex())
	}
}

func decodeSwapV3(log types.Log) (*model.SwapV3Data, error) {
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("swap log %s/%d: want 3 topics, got %d", log.TxHash.Hex(), log.Index, len(log.Topics))
	}

	parsed, err := pool.V3PoolABI()
	if err != nil {
		return nil, err
	}

	var payload struct {
		Amount0      *big.Int
		Amount1      *big.Int
		SqrtPriceX96 *big.Int
		Liquidity    *big.Int
		Tick         *big.Int
	}
	if err := parsed.UnpackIntoInterface(&payload, "Swap", log.Data); err != nil {
		return nil, fmt.Errorf("unpack swap %s/%d: %w", log.TxHash.Hex(), log.Index, err)
	}
	if !payload.Tick.IsInt64() {
		return nil, fmt.Errorf("swap %s/%d: tick out of range", log.TxHash.Hex(), log.Index)
	}

	return &model.SwapV3Data{
		Sender:       topicAddress(log.Topics[1]),
		Recipient:    topicAddress(log.Topics[2]),
		Amount0:      payload.Amount0,
		Amount1:      payload.Amount1,
		SqrtPriceX96: payload.SqrtPriceX96,
		Liquidity:    payload.Liquidity,
		Tick:         int32(payload.Tick.Int64()),
	}, nil
}

func decodeSyncV2(log types.Log) (*model.SyncV2Data, error) {
	parsed, err := pool.V2PairABI()
	if err != nil {
		return nil, err
	}

	var payload struct {
		Reserve0 *big.Int
		Reserve1 *big.Int
	}
	if err := parsed.UnpackIntoInterface(&payload, "Sync", log.Data); err != nil {
		return nil, fmt.Errorf("unpack sync %s/%d: %w", log.TxHash.Hex(), log.Index, err)
	}

	return &model.SyncV2Data{
		Reserve0: payload.Reserve0,
		Reserve1: payload.Reserve1,
	}, nil
}

func topicAddress(topic common.Hash) common.Address {
	return common.BytesToAddress(topic.Bytes()[12:])
}
