package model

import "github.com/ethereum/go-ethereum/common"

// Token captures resolved ERC20 identity. Immutable after resolution.
type Token struct {
	Address  common.Address `json:"address"`
	Network  string         `json:"network"`
	Decimals uint8          `json:"decimals"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
}

// TokenRecord is the persisted form of a token, including its blacklist flag.
type TokenRecord struct {
	Token
	Blacklisted bool `json:"blacklisted"`
}
