package discover

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bijoydoteth/uniswap-arbitrage/internal/pool"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []BlockRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestPoolAddressFromLog(t *testing.T) {
	created := common.HexToAddress("0x0000000000000000000000000000000000000abc")

	v2ABI, err := pool.V2FactoryABI()
	if err != nil {
		t.Fatalf("parse v2 factory abi: %v", err)
	}
	pairData, err := v2ABI.Events["PairCreated"].Inputs.NonIndexed().Pack(created, big.NewInt(1))
	if err != nil {
		t.Fatalf("pack pair created: %v", err)
	}
	got, err := PoolAddressFromLog(types.Log{
		Topics: []common.Hash{TopicPairCreated},
		Data:   pairData,
	})
	if err != nil {
		t.Fatalf("pair created: %v", err)
	}
	if got != created {
		t.Fatalf("pair address = %s, want %s", got, created)
	}

	v3ABI, err := pool.V3FactoryABI()
	if err != nil {
		t.Fatalf("parse v3 factory abi: %v", err)
	}
	poolData, err := v3ABI.Events["PoolCreated"].Inputs.NonIndexed().Pack(big.NewInt(60), created)
	if err != nil {
		t.Fatalf("pack pool created: %v", err)
	}
	got, err = PoolAddressFromLog(types.Log{
		Topics: []common.Hash{TopicPoolCreated},
		Data:   poolData,
	})
	if err != nil {
		t.Fatalf("pool created: %v", err)
	}
	if got != created {
		t.Fatalf("pool address = %s, want %s", got, created)
	}

	if _, err := PoolAddressFromLog(types.Log{
		Topics: []common.Hash{common.HexToHash("0x01")},
	}); err == nil {
		t.Fatalf("expected error for unknown topic0")
	}

	if _, err := PoolAddressFromLog(types.Log{
		Topics: []common.Hash{TopicPairCreated},
		Data:   []byte{0x01},
	}); err == nil {
		t.Fatalf("expected error for short data")
	}
}
