package repository

import (
	"context"
	"math/big"
	"time"

	"FundPulse/internal/domain/models"
)

// StateStore holds the live, mutable entities: process state, registry,
// assets, funds and investment positions. Lookups that can legitimately
// miss return ok=false instead of an error.
type StateStore interface {
	GetProcessState(ctx context.Context) (*models.ProcessState, error)
	PutProcessState(ctx context.Context, s *models.ProcessState) error

	GetRegistry(ctx context.Context, id string) (*models.Registry, bool, error)
	GetVersion(ctx context.Context, id string) (*models.Version, bool, error)

	GetAsset(ctx context.Context, id string) (*models.Asset, bool, error)
	PutAsset(ctx context.Context, a *models.Asset) error

	GetFund(ctx context.Context, id string) (*models.Fund, bool, error)
	PutFund(ctx context.Context, f *models.Fund) error

	GetInvestment(ctx context.Context, id string) (*models.Investment, bool, error)
	PutInvestment(ctx context.Context, inv *models.Investment) error

	Health(ctx context.Context) error
	Close() error
}

// HistoryStore is the append-mostly sink for per-batch rows. Writes are
// buffered into a Batch and flushed once per price update; a flush failure
// fails the whole event.
type HistoryStore interface {
	NewBatch() Batch

	LatestNetworkHistory(ctx context.Context, limit int) ([]*models.NetworkHistory, error)
	FundCalculations(ctx context.Context, fund string, limit int) ([]*models.FundCalculationsHistory, error)
	AssetPrices(ctx context.Context, asset string, from, to time.Time, limit int) ([]*models.AssetPriceHistory, error)
	InvestorValuations(ctx context.Context, investor string, limit int) ([]*models.InvestorValuationHistory, error)

	Health(ctx context.Context) error
	Close() error
}

// Batch accumulates history rows for one price update.
type Batch interface {
	AddPriceBatch(*models.PriceBatch)
	AddAssetPrice(*models.AssetPriceHistory)
	AddFundHoldings(*models.FundHoldingsHistory)
	AddNetworkAsset(*models.NetworkAssetHistory)
	AddFundCalculations(*models.FundCalculationsHistory)
	AddInvestmentValuation(*models.InvestmentValuationHistory)
	AddInvestorValuation(*models.InvestorValuationHistory)
	AddNetworkHistory(*models.NetworkHistory)
	Flush(ctx context.Context) error
}

// FundHolding is one (asset, amount) exposure reported by the accounting
// oracle.
type FundHolding struct {
	Asset  string
	Amount *big.Int
}

// FundCalculations is the atomic result of the accounting oracle's
// calculation endpoint.
type FundCalculations struct {
	Gav                     *big.Int
	FeesInDenominationAsset *big.Int
	FeesInShares            *big.Int
	Nav                     *big.Int
	SharePrice              *big.Int
	GavPerShareNetMgmtFee   *big.Int
}

// AccountingOracle reads a fund's holdings and valuation figures. The
// calculation endpoint is unreliable when any constituent price is missing
// and must not be called for funds with invalid holdings.
type AccountingOracle interface {
	FundHoldings(ctx context.Context, accounting string) ([]FundHolding, error)
	PerformCalculations(ctx context.Context, accounting string) (*FundCalculations, error)
}

// SharesOracle reads a fund's total share supply.
type SharesOracle interface {
	TotalSupply(ctx context.Context, shares string) (*big.Int, error)
}

// ParticipationOracle reads a fund's historical investor list.
type ParticipationOracle interface {
	HistoricalInvestors(ctx context.Context, participation string) ([]string, error)
}

// SnapshotPublisher fans the per-batch network snapshot out to downstream
// consumers.
type SnapshotPublisher interface {
	PublishNetworkHistory(ctx context.Context, h *models.NetworkHistory) error
	Close() error
}

// PricePublisher forwards raw price update events into the intake topic.
type PricePublisher interface {
	PublishPriceUpdate(ctx context.Context, ev *models.PriceUpdate) error
	Close() error
}

// PriceStream is a long-lived connection to the chain gateway delivering
// price update events.
type PriceStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceUpdate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordBatch(assets, invalidPrices int)
	RecordBatchSkipped(reason string)
	RecordFundValued(valid bool)
	RecordNetworkGav(gav float64, valid bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
