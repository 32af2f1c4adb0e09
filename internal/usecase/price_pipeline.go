package usecase

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/samber/lo"

	"FundPulse/internal/domain/models"
	drepo "FundPulse/internal/domain/repository"
	"FundPulse/internal/service/ratelimit"
	applogger "FundPulse/pkg/logger"
)

// ValuationPipeline recomputes fund, investor and network valuations for
// one price batch. Processing is single-threaded per event; oracle or
// storage failures abort the whole event so the host can replay it.
type ValuationPipeline struct {
	state         drepo.StateStore
	history       drepo.HistoryStore
	accounting    drepo.AccountingOracle
	shares        drepo.SharesOracle
	participation drepo.ParticipationOracle
	snapshots     drepo.SnapshotPublisher
	gate          *ratelimit.IntervalGate
	metrics       drepo.Metrics
	logger        *applogger.Logger
}

// NewValuationPipeline creates the pipeline use case.
func NewValuationPipeline(
	state drepo.StateStore,
	history drepo.HistoryStore,
	accounting drepo.AccountingOracle,
	shares drepo.SharesOracle,
	participation drepo.ParticipationOracle,
	snapshots drepo.SnapshotPublisher,
	gate *ratelimit.IntervalGate,
	metrics drepo.Metrics,
	logger *applogger.Logger,
) *ValuationPipeline {
	return &ValuationPipeline{
		state:         state,
		history:       history,
		accounting:    accounting,
		shares:        shares,
		participation: participation,
		snapshots:     snapshots,
		gate:          gate,
		metrics:       metrics,
		logger:        logger,
	}
}

// batchState carries everything one price update accumulates: the price
// and decimals lookups from ingestion and the additive per-batch
// aggregates, flushed exactly once at the end.
type batchState struct {
	timestamp int64
	batch     drepo.Batch

	prices   map[string]*big.Int
	decimals map[string]int

	networkAssets map[string]*models.NetworkAssetHistory
	investors     map[string]*models.InvestorValuationHistory
	networkGav    *big.Int
	validGav      bool
}

func newBatchState(timestamp int64, batch drepo.Batch) *batchState {
	return &batchState{
		timestamp:     timestamp,
		batch:         batch,
		prices:        make(map[string]*big.Int),
		decimals:      make(map[string]int),
		networkAssets: make(map[string]*models.NetworkAssetHistory),
		investors:     make(map[string]*models.InvestorValuationHistory),
		networkGav:    new(big.Int),
		validGav:      true,
	}
}

// networkAsset returns the running aggregate for an asset, created lazily.
func (bs *batchState) networkAsset(asset string) *models.NetworkAssetHistory {
	agg, ok := bs.networkAssets[asset]
	if !ok {
		agg = &models.NetworkAssetHistory{
			ID:        models.HistoryID(asset, bs.timestamp),
			Asset:     asset,
			Timestamp: bs.timestamp,
			Amount:    new(big.Int),
			AssetGav:  new(big.Int),
		}
		bs.networkAssets[asset] = agg
	}
	return agg
}

// investorAggregate returns the running aggregate for an investor, created
// lazily.
func (bs *batchState) investorAggregate(investor string) *models.InvestorValuationHistory {
	agg, ok := bs.investors[investor]
	if !ok {
		agg = &models.InvestorValuationHistory{
			ID:        models.HistoryID(investor, bs.timestamp),
			Investor:  investor,
			Timestamp: bs.timestamp,
			Gav:       new(big.Int),
			Nav:       new(big.Int),
		}
		bs.investors[investor] = agg
	}
	return agg
}

// HandlePriceUpdate runs the full pipeline for one price batch.
func (p *ValuationPipeline) HandlePriceUpdate(ctx context.Context, ev *models.PriceUpdate) error {
	start := time.Now()

	prices, err := ev.ParsedPrices()
	if err != nil {
		p.metrics.RecordError("price_update_decode")
		return err
	}

	st, err := p.state.GetProcessState(ctx)
	if err != nil {
		return fmt.Errorf("load process state: %w", err)
	}

	if !p.gate.Allow(ev.Timestamp, st.LastPriceUpdate) {
		p.metrics.RecordBatchSkipped("rate_limited")
		p.logger.Debug("price update rate limited",
			applogger.Int64("timestamp", ev.Timestamp),
			applogger.Int64("last_update", st.LastPriceUpdate),
		)
		return nil
	}

	bs := newBatchState(ev.Timestamp, p.history.NewBatch())

	if err := p.ingestPrices(ctx, bs, ev, prices); err != nil {
		return fmt.Errorf("ingest prices: %w", err)
	}

	// The interval advances once the batch is accepted, whether or not any
	// fund work happens below.
	st.LastPriceUpdate = ev.Timestamp
	if err := p.state.PutProcessState(ctx, st); err != nil {
		return fmt.Errorf("save process state: %w", err)
	}

	funds, err := p.registeredFunds(ctx, st.Registry)
	if err != nil {
		return err
	}
	if funds == nil {
		// No registry yet: prices are recorded, per-fund work is skipped.
		p.metrics.RecordBatchSkipped("no_registry")
		return bs.batch.Flush(ctx)
	}

	for _, fund := range funds {
		if err := p.processFund(ctx, bs, fund); err != nil {
			return fmt.Errorf("fund %s: %w", fund.ID, err)
		}
	}

	if err := p.finishBatch(ctx, bs); err != nil {
		return err
	}

	p.metrics.RecordLatency("price_update", time.Since(start).Seconds())
	p.logger.Info("price update processed",
		applogger.Int64("timestamp", ev.Timestamp),
		applogger.Int("funds", len(funds)),
		applogger.String("network_gav", bs.networkGav.String()),
		applogger.Bool("valid_gav", bs.validGav),
	)
	return nil
}

// registeredFunds resolves registry -> versions -> funds. A nil slice
// means there is no registry at all; missing versions and funds are
// skipped silently.
func (p *ValuationPipeline) registeredFunds(ctx context.Context, registryID string) ([]*models.Fund, error) {
	if registryID == "" {
		return nil, nil
	}
	registry, ok, err := p.state.GetRegistry(ctx, registryID)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var funds []*models.Fund
	for _, versionID := range registry.Versions {
		version, ok, err := p.state.GetVersion(ctx, versionID)
		if err != nil {
			return nil, fmt.Errorf("load version %s: %w", versionID, err)
		}
		if !ok {
			continue
		}
		for _, fundID := range version.Funds {
			fund, ok, err := p.state.GetFund(ctx, fundID)
			if err != nil {
				return nil, fmt.Errorf("load fund %s: %w", fundID, err)
			}
			if !ok {
				continue
			}
			funds = append(funds, fund)
		}
	}
	if funds == nil {
		funds = []*models.Fund{}
	}
	return funds, nil
}

// processFund runs holdings valuation, fund calculation and investor
// aggregation for one fund. A fund with any invalidly priced non-zero
// holding contributes its holdings to the network aggregates but is
// excluded from everything downstream.
func (p *ValuationPipeline) processFund(ctx context.Context, bs *batchState, fund *models.Fund) error {
	valid, err := p.valuateHoldings(ctx, bs, fund)
	if err != nil {
		return err
	}
	if !valid {
		bs.validGav = false
		p.metrics.RecordFundValued(false)
		p.logger.Warn("fund excluded from valuation",
			applogger.String("fund", fund.ID),
			applogger.Int64("timestamp", bs.timestamp),
		)
		return nil
	}

	calcs, totalSupply, err := p.calculateFund(ctx, bs, fund)
	if err != nil {
		return err
	}

	if err := p.aggregateInvestors(ctx, bs, fund, calcs, totalSupply); err != nil {
		return err
	}

	p.metrics.RecordFundValued(true)
	return nil
}

// finishBatch flushes the per-batch aggregates, the network snapshot and
// every buffered history row, then publishes the snapshot downstream.
func (p *ValuationPipeline) finishBatch(ctx context.Context, bs *batchState) error {
	for _, asset := range sortedKeys(bs.networkAssets) {
		bs.batch.AddNetworkAsset(bs.networkAssets[asset])
	}
	for _, investor := range sortedKeys(bs.investors) {
		bs.batch.AddInvestorValuation(bs.investors[investor])
	}

	snapshot := &models.NetworkHistory{
		Timestamp: bs.timestamp,
		Gav:       bs.networkGav,
		ValidGav:  bs.validGav,
	}
	bs.batch.AddNetworkHistory(snapshot)

	if err := bs.batch.Flush(ctx); err != nil {
		p.metrics.RecordError("history_flush")
		return fmt.Errorf("flush batch: %w", err)
	}

	if err := p.snapshots.PublishNetworkHistory(ctx, snapshot); err != nil {
		p.metrics.RecordError("snapshot_publish")
		return fmt.Errorf("publish network snapshot: %w", err)
	}

	gav, _ := new(big.Float).SetInt(bs.networkGav).Float64()
	p.metrics.RecordNetworkGav(gav, bs.validGav)
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

// tenToThePowerOf returns 10^n for non-negative n.
func tenToThePowerOf(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
