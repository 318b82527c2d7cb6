// Package addrs holds well-known mainnet contract addresses used across the
// loader, classifier, and graph engine.
package addrs

import "github.com/ethereum/go-ethereum/common"

var (
	// Factories recognized by the pool loader. An unmatched factory makes
	// the pool Unrecognized.
	UniswapV2Factory = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	UniswapV3Factory = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	SushiswapFactory = common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac")

	// V3 periphery lenses.
	UniswapV3Quoter   = common.HexToAddress("0xb27308f9F90D607463bb33eA1BeBb41C27CE5AB6")
	UniswapV3TickLens = common.HexToAddress("0xbfd8137f7d1516D3ea5cA83523914859ec47F573")

	// Chainlink ETH/USD aggregator, used to value native-anchor liquidity.
	ChainlinkETHUSD = common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")

	WETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	USDT = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	DAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	BUSD = common.HexToAddress("0x4Fabb145d64652a948d72533023f6E7A623C7C53")
	TUSD = common.HexToAddress("0x0000000000085d4780B73119b644AE5ecd22b376")
	USDD = common.HexToAddress("0x0C10bF8FcB7Bf5412187A595ab97a3609160b5c6")
	USDP = common.HexToAddress("0x8e870d67f660d95d5be530380d0ec0bd388289e1")
	FRAX = common.HexToAddress("0x853d955aCEf822Db058eb8505911ED77F175b99e")
)

// AnchorTokens is the ordered anchor list: native asset first, then major
// stablecoins by priority. Order matters for anchor selection when both
// pool tokens qualify.
var AnchorTokens = []common.Address{
	WETH, USDC, USDT, DAI, BUSD, TUSD, USDD, USDP, FRAX,
}

// Stablecoins is the subset of AnchorTokens valued 1:1 against USD.
var Stablecoins = map[common.Address]bool{
	USDC: true, USDT: true, DAI: true, BUSD: true,
	TUSD: true, USDD: true, USDP: true, FRAX: true,
}

// IsAnchor reports whether addr is on the anchor list.
func IsAnchor(addr common.Address) bool {
	for _, a := range AnchorTokens {
		if a == addr {
			return true
		}
	}
	return false
}

// AnchorPriority returns the index of addr in AnchorTokens, or -1.
func AnchorPriority(addr common.Address) int {
	for i, a := range AnchorTokens {
		if a == addr {
			return i
		}
	}
	return -1
}
