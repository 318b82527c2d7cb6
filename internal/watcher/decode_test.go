package watcher

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/model"
	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
)

var (
	testPool   = common.HexToAddress("0x0000000000000000000000000000000000000201")
	testSender = common.HexToAddress("0x0000000000000000000000000000000000000301")
	testRecip  = common.HexToAddress("0x0000000000000000000000000000000000000302")
)

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

func packSwapData(t *testing.T, amount0, amount1, sqrtPrice, liquidity *big.Int, tick int64) []byte {
	t.Helper()
	parsed, err := pool.V3PoolABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	data, err := parsed.Events["Swap"].Inputs.NonIndexed().Pack(
		amount0, amount1, sqrtPrice, liquidity, big.NewInt(tick),
	)
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}
	return data
}

func packSyncData(t *testing.T, reserve0, reserve1 *big.Int) []byte {
	t.Helper()
	parsed, err := pool.V2PairABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	data, err := parsed.Events["Sync"].Inputs.NonIndexed().Pack(reserve0, reserve1)
	if err != nil {
		t.Fatalf("pack sync: %v", err)
	}
	return data
}

func TestDecodeSwapV3Log(t *testing.T) {
	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	log := types.Log{
		Address:     testPool,
		BlockNumber: 42,
		TxHash:      common.HexToHash("0x01"),
		Index:       7,
		Topics: []common.Hash{
			TopicSwapV3,
			addressTopic(testSender),
			addressTopic(testRecip),
		},
		Data: packSwapData(t, big.NewInt(-1000), big.NewInt(997), sqrtPrice, big.NewInt(500000), -12),
	}

	event, err := DecodePoolLog(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Kind != model.EventSwapV3 {
		t.Fatalf("kind = %v", event.Kind)
	}
	if event.Pool != testPool || event.BlockNumber != 42 || event.LogIndex != 7 {
		t.Fatalf("identity mismatch: %+v", event)
	}
	swap := event.Swap
	if swap.Sender != testSender || swap.Recipient != testRecip {
		t.Fatalf("participants mismatch: %+v", swap)
	}
	if swap.Amount0.Int64() != -1000 || swap.Amount1.Int64() != 997 {
		t.Fatalf("amounts = %s/%s", swap.Amount0, swap.Amount1)
	}
	if swap.SqrtPriceX96.Cmp(sqrtPrice) != 0 {
		t.Fatalf("sqrt price = %s", swap.SqrtPriceX96)
	}
	if swap.Tick != -12 {
		t.Fatalf("tick = %d", swap.Tick)
	}
}

func TestDecodeSyncV2Log(t *testing.T) {
	log := types.Log{
		Address:     testPool,
		BlockNumber: 43,
		Topics:      []common.Hash{TopicSyncV2},
		Data:        packSyncData(t, big.NewInt(123456), big.NewInt(654321)),
	}

	event, err := DecodePoolLog(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Kind != model.EventSyncV2 {
		t.Fatalf("kind = %v", event.Kind)
	}
	if event.Sync.Reserve0.Int64() != 123456 || event.Sync.Reserve1.Int64() != 654321 {
		t.Fatalf("reserves = %s/%s", event.Sync.Reserve0, event.Sync.Reserve1)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	log := types.Log{
		Address: testPool,
		Topics:  []common.Hash{common.HexToHash("0xdead")},
	}
	if _, err := DecodePoolLog(log); err == nil {
		t.Fatal("expected error for unknown topic0")
	}

	if _, err := DecodePoolLog(types.Log{Address: testPool}); err == nil {
		t.Fatal("expected error for missing topic0")
	}
}

func TestLatestEventsKeepsLastPerPool(t *testing.T) {
	other := common.HexToAddress("0x0000000000000000000000000000000000000202")
	events := []model.PoolEvent{
		{Pool: testPool, Kind: model.EventSyncV2, BlockNumber: 10, LogIndex: 1},
		{Pool: testPool, Kind: model.EventSyncV2, BlockNumber: 10, LogIndex: 5},
		{Pool: testPool, Kind: model.EventSyncV2, BlockNumber: 10, LogIndex: 3},
		{Pool: other, Kind: model.EventSwapV3, BlockNumber: 10, LogIndex: 2},
	}

	latest := LatestEvents(events)
	if len(latest) != 2 {
		t.Fatalf("pools = %d, want 2", len(latest))
	}
	if latest[testPool].LogIndex != 5 {
		t.Fatalf("kept log index %d, want 5", latest[testPool].LogIndex)
	}
	if latest[other].Kind != model.EventSwapV3 {
		t.Fatalf("kept kind %v", latest[other].Kind)
	}
}
