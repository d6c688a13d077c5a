package models

import (
	"github.com/shopspring/decimal"
)

// ChainTransaction is the provider-agnostic shape of an on-chain TRON
// transaction, produced fresh per lookup and never persisted. Amount is in
// TRX (converted from SUN by the chain lookup client).
type ChainTransaction struct {
	TxID        string          `json:"tx_id"`
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	Amount      decimal.Decimal `json:"amount"`
	Confirmed   bool            `json:"confirmed"`
	Timestamp   int64           `json:"timestamp"`
	BlockNumber int64           `json:"block_number"`
}
