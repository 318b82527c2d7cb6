package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind distinguishes the pool log signatures the pipeline subscribes to.
type EventKind uint8

const (
	EventSwapV3 EventKind = iota + 1
	EventSyncV2
)

func (k EventKind) String() string {
	switch k {
	case EventSwapV3:
		return "Swap"
	case EventSyncV2:
		return "Sync"
	default:
		return "unknown"
	}
}

// SwapV3Data is the decoded payload of a V3 Swap log.
type SwapV3Data struct {
	Sender       common.Address `json:"sender"`
	Recipient    common.Address `json:"recipient"`
	Amount0      *big.Int       `json:"amount0"`
	Amount1      *big.Int       `json:"amount1"`
	SqrtPriceX96 *big.Int       `json:"sqrt_price_x96"`
	Liquidity    *big.Int       `json:"liquidity"`
	Tick         int32          `json:"tick"`
}

// SyncV2Data is the decoded payload of a V2 Sync log.
type SyncV2Data struct {
	Reserve0 *big.Int `json:"reserve0"`
	Reserve1 *big.Int `json:"reserve1"`
}

// PoolEvent is one decoded pool log, tagged with its origin.
type PoolEvent struct {
	Pool        common.Address `json:"pool"`
	Kind        EventKind      `json:"kind"`
	BlockNumber uint64         `json:"block_number"`
	TxHash      common.Hash    `json:"tx_hash"`
	LogIndex    uint           `json:"log_index"`
	Swap        *SwapV3Data    `json:"swap,omitempty"`
	Sync        *SyncV2Data    `json:"sync,omitempty"`
}
