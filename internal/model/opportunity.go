package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SwapCallParams carries per-pool parameters sufficient for the execution
// layer to build a transaction without re-querying pool state.
type SwapCallParams struct {
	Pool              common.Address `json:"pool"`
	Variant           Variant        `json:"variant"`
	SqrtPriceLimitX96 *big.Int       `json:"sqrt_price_limit_x96,omitempty"`
}

// Opportunity is one ranked arbitrage candidate produced by the graph
// engine after profit re-verification through direct simulation.
type Opportunity struct {
	Path          CyclePath        `json:"path"`
	BorrowToken   common.Address   `json:"borrow_token"`
	BaseToken     common.Address   `json:"base_token"`
	BorrowAmount  *big.Int         `json:"borrow_amount"`
	RepayAmount   *big.Int         `json:"repay_amount"`
	SwapOutAmount *big.Int         `json:"swap_out_amount"`
	Profit        *big.Int         `json:"profit"` // in base token units
	ProfitUSD     float64          `json:"profit_usd"`
	Calls         []SwapCallParams `json:"calls"`
	Block         uint64           `json:"block"`
	FoundAt       time.Time        `json:"found_at"`
}
