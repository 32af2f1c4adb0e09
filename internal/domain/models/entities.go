package models

import (
	"fmt"
	"math/big"
)

// ProcessState is the singleton pipeline state. It survives across price
// batches; only the rate limiter advances LastPriceUpdate.
type ProcessState struct {
	LastPriceUpdate int64  `json:"last_price_update"`
	Registry        string `json:"registry"`
}

// Registry groups the deployed protocol versions. Populated by the fund
// onboarding service; read-only here.
type Registry struct {
	ID       string   `json:"id"`
	Versions []string `json:"versions"`
}

// Version is one protocol deployment listing its member funds.
type Version struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Funds []string `json:"funds"`
}

// Asset is the live price record for one asset. Overwritten on every
// accepted batch that prices it.
type Asset struct {
	ID              string   `json:"id"`
	Symbol          string   `json:"symbol"`
	Decimals        int      `json:"decimals"`
	LastPrice       *big.Int `json:"last_price"`
	LastPriceUpdate int64    `json:"last_price_update"`
	LastPriceValid  bool     `json:"last_price_valid"`
}

// Fund is the live record of one managed vehicle. The accounting, shares
// and participation fields address the fund's read oracles.
type Fund struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Version       string `json:"version"`
	Accounting    string `json:"accounting"`
	Shares        string `json:"shares"`
	Participation string `json:"participation"`

	Gav                     *big.Int `json:"gav"`
	Nav                     *big.Int `json:"nav"`
	TotalSupply             *big.Int `json:"total_supply"`
	FeesInDenominationAsset *big.Int `json:"fees_in_denomination_asset"`
	FeesInShares            *big.Int `json:"fees_in_shares"`
	SharePrice              *big.Int `json:"share_price"`
	GavPerShareNetMgmtFee   *big.Int `json:"gav_per_share_net_mgmt_fee"`
	ValidPrice              bool     `json:"valid_price"`
	LastCalculationsUpdate  int64    `json:"last_calculations_update"`
	CurrentDailySharePrice  *big.Int `json:"current_daily_share_price"`
	PreviousDailySharePrice *big.Int `json:"previous_daily_share_price"`
}

// Investment is the live (investor, fund) position.
type Investment struct {
	ID         string   `json:"id"`
	Investor   string   `json:"investor"`
	Fund       string   `json:"fund"`
	Shares     *big.Int `json:"shares"`
	Gav        *big.Int `json:"gav"`
	Nav        *big.Int `json:"nav"`
	SharePrice *big.Int `json:"share_price"`
	CreatedAt  int64    `json:"created_at"`
}

// InvestmentID builds the composite key for an (investor, fund) position.
func InvestmentID(investor, fund string) string {
	return investor + "/" + fund
}

// PriceBatch records one accepted price batch. Immutable once written.
type PriceBatch struct {
	Timestamp      int64
	PriceSource    string
	NumberOfAssets int
	InvalidPrices  int
}

// AssetPriceHistory is the append-only snapshot of one asset price at
// ingestion time, keyed by (asset, timestamp).
type AssetPriceHistory struct {
	ID         string
	Asset      string
	Timestamp  int64
	Price      *big.Int
	PriceValid bool
}

// FundHoldingsHistory is one (fund, timestamp, asset) exposure. Only
// non-zero amounts are persisted.
type FundHoldingsHistory struct {
	ID         string
	Fund       string
	Asset      string
	Timestamp  int64
	Amount     *big.Int
	AssetGav   *big.Int
	ValidPrice bool
}

// NetworkAssetHistory aggregates one asset across all funds for a batch.
// Mutated additively while the batch runs, flushed once at the end.
type NetworkAssetHistory struct {
	ID            string
	Asset         string
	Timestamp     int64
	Amount        *big.Int
	AssetGav      *big.Int
	NumberOfFunds int
	InvalidPrices int
}

// FundCalculationsHistory is the per-batch valuation snapshot of a fund.
type FundCalculationsHistory struct {
	ID                      string
	Fund                    string
	Timestamp               int64
	Gav                     *big.Int
	ValidPrices             bool
	FeesInDenominationAsset *big.Int
	FeesInShares            *big.Int
	Nav                     *big.Int
	SharePrice              *big.Int
	GavPerShareNetMgmtFee   *big.Int
	TotalSupply             *big.Int
	Source                  string
}

// InvestmentValuationHistory is the append-only per-batch snapshot of an
// investment position.
type InvestmentValuationHistory struct {
	ID         string
	Investment string
	Timestamp  int64
	Gav        *big.Int
	Nav        *big.Int
	SharePrice *big.Int
}

// InvestorValuationHistory aggregates one investor across all their funds
// within a batch.
type InvestorValuationHistory struct {
	ID        string
	Investor  string
	Timestamp int64
	Gav       *big.Int
	Nav       *big.Int
}

// NetworkHistory is the single network-wide valuation row per batch.
type NetworkHistory struct {
	Timestamp int64
	Gav       *big.Int
	ValidGav  bool
}

// HistoryID builds the composite "parts/joined/by/slash" row key used by
// every append-only entity.
func HistoryID(parts ...interface{}) string {
	id := ""
	for i, p := range parts {
		if i > 0 {
			id += "/"
		}
		id += fmt.Sprintf("%v", p)
	}
	return id
}
