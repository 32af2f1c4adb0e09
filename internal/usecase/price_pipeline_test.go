package usecase

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundPulse/internal/domain/models"
	drepo "FundPulse/internal/domain/repository"
	"FundPulse/internal/service/ratelimit"
	applogger "FundPulse/pkg/logger"
)

// --- fakes ---

type fakeState struct {
	state       *models.ProcessState
	registries  map[string]*models.Registry
	versions    map[string]*models.Version
	assets      map[string]*models.Asset
	funds       map[string]*models.Fund
	investments map[string]*models.Investment
}

func newFakeState(registry string) *fakeState {
	return &fakeState{
		state:       &models.ProcessState{Registry: registry},
		registries:  make(map[string]*models.Registry),
		versions:    make(map[string]*models.Version),
		assets:      make(map[string]*models.Asset),
		funds:       make(map[string]*models.Fund),
		investments: make(map[string]*models.Investment),
	}
}

func (s *fakeState) GetProcessState(context.Context) (*models.ProcessState, error) {
	return s.state, nil
}

func (s *fakeState) PutProcessState(_ context.Context, st *models.ProcessState) error {
	s.state = st
	return nil
}

func (s *fakeState) GetRegistry(_ context.Context, id string) (*models.Registry, bool, error) {
	r, ok := s.registries[id]
	return r, ok, nil
}

func (s *fakeState) GetVersion(_ context.Context, id string) (*models.Version, bool, error) {
	v, ok := s.versions[id]
	return v, ok, nil
}

func (s *fakeState) GetAsset(_ context.Context, id string) (*models.Asset, bool, error) {
	a, ok := s.assets[id]
	return a, ok, nil
}

func (s *fakeState) PutAsset(_ context.Context, a *models.Asset) error {
	s.assets[a.ID] = a
	return nil
}

func (s *fakeState) GetFund(_ context.Context, id string) (*models.Fund, bool, error) {
	f, ok := s.funds[id]
	return f, ok, nil
}

func (s *fakeState) PutFund(_ context.Context, f *models.Fund) error {
	s.funds[f.ID] = f
	return nil
}

func (s *fakeState) GetInvestment(_ context.Context, id string) (*models.Investment, bool, error) {
	inv, ok := s.investments[id]
	return inv, ok, nil
}

func (s *fakeState) PutInvestment(_ context.Context, inv *models.Investment) error {
	s.investments[inv.ID] = inv
	return nil
}

func (s *fakeState) Health(context.Context) error { return nil }
func (s *fakeState) Close() error                 { return nil }

type fakeBatch struct {
	priceBatches  []*models.PriceBatch
	assetPrices   []*models.AssetPriceHistory
	holdings      []*models.FundHoldingsHistory
	networkAssets []*models.NetworkAssetHistory
	calculations  []*models.FundCalculationsHistory
	investments   []*models.InvestmentValuationHistory
	investors     []*models.InvestorValuationHistory
	network       []*models.NetworkHistory
	flushed       bool
}

func (b *fakeBatch) AddPriceBatch(r *models.PriceBatch) { b.priceBatches = append(b.priceBatches, r) }

func (b *fakeBatch) AddAssetPrice(r *models.AssetPriceHistory) {
	b.assetPrices = append(b.assetPrices, r)
}

func (b *fakeBatch) AddFundHoldings(r *models.FundHoldingsHistory) {
	b.holdings = append(b.holdings, r)
}

func (b *fakeBatch) AddNetworkAsset(r *models.NetworkAssetHistory) {
	b.networkAssets = append(b.networkAssets, r)
}
func (b *fakeBatch) AddFundCalculations(r *models.FundCalculationsHistory) {
	b.calculations = append(b.calculations, r)
}
func (b *fakeBatch) AddInvestmentValuation(r *models.InvestmentValuationHistory) {
	b.investments = append(b.investments, r)
}
func (b *fakeBatch) AddInvestorValuation(r *models.InvestorValuationHistory) {
	b.investors = append(b.investors, r)
}
func (b *fakeBatch) AddNetworkHistory(r *models.NetworkHistory) { b.network = append(b.network, r) }
func (b *fakeBatch) Flush(context.Context) error {
	b.flushed = true
	return nil
}

type fakeHistory struct {
	batch *fakeBatch
}

func (h *fakeHistory) NewBatch() drepo.Batch {
	h.batch = &fakeBatch{}
	return h.batch
}

func (h *fakeHistory) LatestNetworkHistory(context.Context, int) ([]*models.NetworkHistory, error) {
	return nil, nil
}

func (h *fakeHistory) FundCalculations(context.Context, string, int) ([]*models.FundCalculationsHistory, error) {
	return nil, nil
}

func (h *fakeHistory) AssetPrices(context.Context, string, time.Time, time.Time, int) ([]*models.AssetPriceHistory, error) {
	return nil, nil
}

func (h *fakeHistory) InvestorValuations(context.Context, string, int) ([]*models.InvestorValuationHistory, error) {
	return nil, nil
}

func (h *fakeHistory) Health(context.Context) error { return nil }
func (h *fakeHistory) Close() error                 { return nil }

type fakeOracle struct {
	holdings  map[string][]drepo.FundHolding
	calcs     map[string]*drepo.FundCalculations
	supplies  map[string]*big.Int
	investors map[string][]string

	calcCalls     []string
	investorCalls []string
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		holdings:  make(map[string][]drepo.FundHolding),
		calcs:     make(map[string]*drepo.FundCalculations),
		supplies:  make(map[string]*big.Int),
		investors: make(map[string][]string),
	}
}

func (o *fakeOracle) FundHoldings(_ context.Context, accounting string) ([]drepo.FundHolding, error) {
	return o.holdings[accounting], nil
}

func (o *fakeOracle) PerformCalculations(_ context.Context, accounting string) (*drepo.FundCalculations, error) {
	o.calcCalls = append(o.calcCalls, accounting)
	return o.calcs[accounting], nil
}

func (o *fakeOracle) TotalSupply(_ context.Context, shares string) (*big.Int, error) {
	return o.supplies[shares], nil
}

func (o *fakeOracle) HistoricalInvestors(_ context.Context, participation string) ([]string, error) {
	o.investorCalls = append(o.investorCalls, participation)
	return o.investors[participation], nil
}

type fakeSnapshots struct {
	published []*models.NetworkHistory
}

func (s *fakeSnapshots) PublishNetworkHistory(_ context.Context, h *models.NetworkHistory) error {
	s.published = append(s.published, h)
	return nil
}

func (s *fakeSnapshots) Close() error { return nil }

type fakeMetrics struct {
	batches int
	skipped []string
	valued  []bool
	errors  []string
}

func (m *fakeMetrics) RecordBatch(int, int) { m.batches++ }

func (m *fakeMetrics) RecordBatchSkipped(reason string) { m.skipped = append(m.skipped, reason) }

func (m *fakeMetrics) RecordFundValued(valid bool) { m.valued = append(m.valued, valid) }

func (m *fakeMetrics) RecordNetworkGav(float64, bool) {}

func (m *fakeMetrics) RecordError(kind string) { m.errors = append(m.errors, kind) }

func (m *fakeMetrics) RecordLatency(string, float64) {}

// --- helpers ---

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func bi(n int64) *big.Int { return big.NewInt(n) }

// scaled returns n * 10^decimals.
func scaled(n int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

type pipelineFixture struct {
	state     *fakeState
	history   *fakeHistory
	oracle    *fakeOracle
	snapshots *fakeSnapshots
	metrics   *fakeMetrics
	pipeline  *ValuationPipeline
}

func newPipelineFixture(t *testing.T, interval int64, registry string) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		state:     newFakeState(registry),
		history:   &fakeHistory{},
		oracle:    newFakeOracle(),
		snapshots: &fakeSnapshots{},
		metrics:   &fakeMetrics{},
	}
	f.pipeline = NewValuationPipeline(
		f.state, f.history, f.oracle, f.oracle, f.oracle, f.snapshots,
		ratelimit.New(interval), f.metrics, testLogger(t),
	)
	return f
}

func (f *pipelineFixture) addAsset(id string, decimals int) {
	f.state.assets[id] = &models.Asset{ID: id, Symbol: id, Decimals: decimals}
}

func (f *pipelineFixture) addFund(id string) *models.Fund {
	fund := &models.Fund{
		ID:            id,
		Name:          "Fund " + id,
		Accounting:    "acc-" + id,
		Shares:        "sh-" + id,
		Participation: "part-" + id,
	}
	f.state.funds[id] = fund
	return fund
}

func (f *pipelineFixture) registerFunds(registry string, fundIDs ...string) {
	f.state.registries[registry] = &models.Registry{ID: registry, Versions: []string{"v1"}}
	f.state.versions["v1"] = &models.Version{ID: "v1", Funds: fundIDs}
}

// --- tests ---

func TestHandlePriceUpdate_FullBatch(t *testing.T) {
	// Two funds, two assets. Fund A holds 100 units of tokenA (6 decimals)
	// and a zero amount of tokenB. Fund B holds 5 units of tokenB (18
	// decimals). Both funds price cleanly.
	f := newPipelineFixture(t, 300, "reg")
	f.addAsset("tokenA", 6)
	f.addAsset("tokenB", 18)
	fundA := f.addFund("fundA")
	f.addFund("fundB")
	f.registerFunds("reg", "fundA", "fundB")

	f.oracle.holdings["acc-fundA"] = []drepo.FundHolding{
		{Asset: "tokenA", Amount: scaled(100, 6)},
		{Asset: "tokenB", Amount: bi(0)},
	}
	f.oracle.holdings["acc-fundB"] = []drepo.FundHolding{
		{Asset: "tokenB", Amount: scaled(5, 18)},
	}
	f.oracle.calcs["acc-fundA"] = &drepo.FundCalculations{
		Gav: bi(1000), Nav: bi(900), SharePrice: bi(10),
		FeesInDenominationAsset: bi(100), FeesInShares: bi(7), GavPerShareNetMgmtFee: bi(11),
	}
	f.oracle.calcs["acc-fundB"] = &drepo.FundCalculations{
		Gav: bi(500), Nav: bi(500), SharePrice: bi(5),
		FeesInDenominationAsset: bi(0), FeesInShares: bi(0), GavPerShareNetMgmtFee: bi(5),
	}
	f.oracle.supplies["sh-fundA"] = bi(100)
	f.oracle.supplies["sh-fundB"] = bi(100)
	f.oracle.investors["part-fundA"] = []string{"alice", "bob"}
	f.oracle.investors["part-fundB"] = []string{"alice"}

	f.state.investments["alice/fundA"] = &models.Investment{
		ID: "alice/fundA", Investor: "alice", Fund: "fundA", Shares: bi(40),
	}
	f.state.investments["bob/fundA"] = &models.Investment{
		ID: "bob/fundA", Investor: "bob", Fund: "fundA", Shares: bi(60),
	}
	f.state.investments["alice/fundB"] = &models.Investment{
		ID: "alice/fundB", Investor: "alice", Fund: "fundB", Shares: bi(100),
	}

	fundA.CurrentDailySharePrice = bi(111)

	err := f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source:    "0xfeed",
		Timestamp: 2000,
		Tokens:    []string{"tokenA", "tokenB"},
		Prices:    []string{scaled(2, 6).String(), scaled(3, 18).String()},
	})
	require.NoError(t, err)

	batch := f.history.batch
	require.NotNil(t, batch)
	assert.True(t, batch.flushed)

	// Prices recorded for both assets.
	require.Len(t, batch.assetPrices, 2)
	assert.Equal(t, scaled(2, 6), f.state.assets["tokenA"].LastPrice)
	assert.True(t, f.state.assets["tokenA"].LastPriceValid)
	assert.Equal(t, int64(2000), f.state.assets["tokenA"].LastPriceUpdate)

	// Zero-amount holding of tokenB is not persisted.
	require.Len(t, batch.holdings, 2)
	assert.Equal(t, "fundA", batch.holdings[0].Fund)
	assert.Equal(t, "tokenA", batch.holdings[0].Asset)
	// 100e6 * 2e6 / 1e6 = 200e6
	assert.Equal(t, scaled(200, 6), batch.holdings[0].AssetGav)
	assert.Equal(t, "fundB", batch.holdings[1].Fund)
	// 5e18 * 3e18 / 1e18 = 15e18
	assert.Equal(t, scaled(15, 18), batch.holdings[1].AssetGav)

	// Network asset aggregates, sorted by asset id.
	require.Len(t, batch.networkAssets, 2)
	tokA, tokB := batch.networkAssets[0], batch.networkAssets[1]
	assert.Equal(t, "tokenA", tokA.Asset)
	assert.Equal(t, 1, tokA.NumberOfFunds)
	assert.Equal(t, "tokenB", tokB.Asset)
	assert.Equal(t, scaled(5, 18), tokB.Amount)
	assert.Equal(t, 1, tokB.NumberOfFunds, "zero-amount holding must not count as a holder")

	// Both funds produced calculation snapshots.
	require.Len(t, batch.calculations, 2)
	assert.Equal(t, bi(1000), batch.calculations[0].Gav)
	assert.Equal(t, "priceUpdate", batch.calculations[0].Source)
	assert.True(t, batch.calculations[0].ValidPrices)

	// Fund share price rolled over.
	assert.Equal(t, bi(111), fundA.PreviousDailySharePrice)
	assert.Equal(t, bi(10), fundA.CurrentDailySharePrice)
	assert.Equal(t, int64(2000), fundA.LastCalculationsUpdate)

	// Pro-rata investor valuations: alice 40/100 of fundA plus all of fundB.
	require.Len(t, batch.investments, 3)
	assert.Equal(t, bi(400), batch.investments[0].Gav)
	assert.Equal(t, bi(360), batch.investments[0].Nav)
	assert.Equal(t, bi(600), batch.investments[1].Gav)

	// Per-investor aggregates fold across funds, sorted by investor.
	require.Len(t, batch.investors, 2)
	assert.Equal(t, "alice", batch.investors[0].Investor)
	assert.Equal(t, bi(900), batch.investors[0].Gav, "400 from fundA + 500 from fundB")
	assert.Equal(t, "bob", batch.investors[1].Investor)
	assert.Equal(t, bi(600), batch.investors[1].Gav)

	// Network snapshot: sum of fund GAVs, fully valid, published downstream.
	require.Len(t, batch.network, 1)
	assert.Equal(t, bi(1500), batch.network[0].Gav)
	assert.True(t, batch.network[0].ValidGav)
	require.Len(t, f.snapshots.published, 1)
	assert.Equal(t, batch.network[0], f.snapshots.published[0])

	assert.Equal(t, int64(2000), f.state.state.LastPriceUpdate)
	assert.Equal(t, []bool{true, true}, f.metrics.valued)
}

func TestHandlePriceUpdate_RateLimited(t *testing.T) {
	f := newPipelineFixture(t, 300, "reg")
	f.addAsset("tokenA", 6)
	f.state.state.LastPriceUpdate = 1000

	ev := &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 1200,
		Tokens: []string{"tokenA"}, Prices: []string{"5"},
	}
	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), ev))

	assert.Nil(t, f.history.batch, "a gated batch must not touch history")
	assert.Nil(t, f.state.assets["tokenA"].LastPrice)
	assert.Equal(t, int64(1000), f.state.state.LastPriceUpdate)
	assert.Equal(t, []string{"rate_limited"}, f.metrics.skipped)

	// Exactly at the interval boundary the batch goes through.
	ev.Timestamp = 1300
	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), ev))
	assert.Equal(t, int64(1300), f.state.state.LastPriceUpdate)
	require.NotNil(t, f.history.batch)
}

func TestHandlePriceUpdate_ZeroPriceInvalidButStored(t *testing.T) {
	f := newPipelineFixture(t, 300, "")
	f.addAsset("tokenA", 6)

	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 500,
		Tokens: []string{"tokenA"}, Prices: []string{"0"},
	}))

	asset := f.state.assets["tokenA"]
	assert.Equal(t, bi(0), asset.LastPrice, "invalidated price is still the latest price")
	assert.False(t, asset.LastPriceValid)

	batch := f.history.batch
	require.Len(t, batch.assetPrices, 1)
	assert.False(t, batch.assetPrices[0].PriceValid)
	require.Len(t, batch.priceBatches, 1)
	assert.Equal(t, 1, batch.priceBatches[0].InvalidPrices)
}

func TestHandlePriceUpdate_UnknownAssetSkipped(t *testing.T) {
	f := newPipelineFixture(t, 300, "")
	f.addAsset("tokenA", 6)

	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 500,
		Tokens: []string{"tokenA", "mystery"}, Prices: []string{"7", "9"},
	}))

	batch := f.history.batch
	require.Len(t, batch.assetPrices, 1)
	assert.Equal(t, "tokenA", batch.assetPrices[0].Asset)
	require.Len(t, batch.priceBatches, 1)
	assert.Equal(t, 1, batch.priceBatches[0].NumberOfAssets)
}

func TestHandlePriceUpdate_NoRegistrySkipsFundWork(t *testing.T) {
	// Registry id is set but no registry entity exists yet: prices are
	// recorded, everything downstream is skipped.
	f := newPipelineFixture(t, 300, "reg")
	f.addAsset("tokenA", 6)

	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 500,
		Tokens: []string{"tokenA"}, Prices: []string{"7"},
	}))

	batch := f.history.batch
	assert.True(t, batch.flushed)
	assert.Len(t, batch.assetPrices, 1)
	assert.Empty(t, batch.calculations)
	assert.Empty(t, batch.network)
	assert.Empty(t, f.snapshots.published)
	assert.Equal(t, []string{"no_registry"}, f.metrics.skipped)
	assert.Equal(t, int64(500), f.state.state.LastPriceUpdate, "state advances even without funds")
}

func TestHandlePriceUpdate_InvalidHoldingExcludesFund(t *testing.T) {
	// tokenB's price is explicitly invalidated. fundB holds it, so fundB is
	// excluded from calculations but its holdings still reach the network
	// aggregates. fundA remains fully valid.
	f := newPipelineFixture(t, 300, "reg")
	f.addAsset("tokenA", 6)
	f.addAsset("tokenB", 18)
	f.addFund("fundA")
	f.addFund("fundB")
	f.registerFunds("reg", "fundA", "fundB")

	f.oracle.holdings["acc-fundA"] = []drepo.FundHolding{
		{Asset: "tokenA", Amount: scaled(100, 6)},
	}
	f.oracle.holdings["acc-fundB"] = []drepo.FundHolding{
		{Asset: "tokenB", Amount: scaled(5, 18)},
	}
	f.oracle.calcs["acc-fundA"] = &drepo.FundCalculations{
		Gav: bi(1000), Nav: bi(1000), SharePrice: bi(1),
		FeesInDenominationAsset: bi(0), FeesInShares: bi(0), GavPerShareNetMgmtFee: bi(1),
	}
	f.oracle.supplies["sh-fundA"] = bi(0)
	f.oracle.investors["part-fundA"] = nil

	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 500,
		Tokens: []string{"tokenA", "tokenB"}, Prices: []string{scaled(2, 6).String(), "0"},
	}))

	batch := f.history.batch

	// fundB produced no calculations and its oracles were never asked.
	require.Len(t, batch.calculations, 1)
	assert.Equal(t, "fundA", batch.calculations[0].Fund)
	assert.Equal(t, []string{"acc-fundA"}, f.oracle.calcCalls)
	assert.Equal(t, []string{"part-fundA"}, f.oracle.investorCalls)

	// fundB's holding is still persisted and aggregated, flagged invalid.
	require.Len(t, batch.holdings, 2)
	assert.False(t, batch.holdings[1].ValidPrice)
	require.Len(t, batch.networkAssets, 2)
	assert.Equal(t, 1, batch.networkAssets[1].InvalidPrices)

	// Network GAV covers valid funds only and the batch is flagged partial.
	require.Len(t, batch.network, 1)
	assert.Equal(t, bi(1000), batch.network[0].Gav)
	assert.False(t, batch.network[0].ValidGav)

	assert.Equal(t, []bool{true, false}, f.metrics.valued)
}

func TestHandlePriceUpdate_ZeroHoldingOfInvalidAssetStaysValid(t *testing.T) {
	// fundA holds 100 tokenA (priced cleanly) and 0 tokenB (price
	// invalidated). An empty position must not poison the fund.
	f := newPipelineFixture(t, 300, "reg")
	f.addAsset("tokenA", 6)
	f.addAsset("tokenB", 18)
	f.addFund("fundA")
	f.registerFunds("reg", "fundA")

	f.oracle.holdings["acc-fundA"] = []drepo.FundHolding{
		{Asset: "tokenA", Amount: scaled(100, 6)},
		{Asset: "tokenB", Amount: bi(0)},
	}
	f.oracle.calcs["acc-fundA"] = &drepo.FundCalculations{
		Gav: bi(1000), Nav: bi(900), SharePrice: bi(10),
		FeesInDenominationAsset: bi(0), FeesInShares: bi(0), GavPerShareNetMgmtFee: bi(10),
	}
	f.oracle.supplies["sh-fundA"] = bi(100)
	f.oracle.investors["part-fundA"] = nil

	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 500,
		Tokens: []string{"tokenA", "tokenB"}, Prices: []string{scaled(2, 6).String(), "0"},
	}))

	batch := f.history.batch

	// The fund still gets a full calculation snapshot.
	require.Len(t, batch.calculations, 1)
	assert.Equal(t, "fundA", batch.calculations[0].Fund)
	assert.True(t, batch.calculations[0].ValidPrices)
	assert.Equal(t, []string{"acc-fundA"}, f.oracle.calcCalls)
	assert.Equal(t, []bool{true}, f.metrics.valued)

	// Only the non-zero holding is persisted.
	require.Len(t, batch.holdings, 1)
	assert.Equal(t, "tokenA", batch.holdings[0].Asset)

	// The empty position does not count against tokenB's aggregate.
	require.Len(t, batch.networkAssets, 2)
	tokB := batch.networkAssets[1]
	assert.Equal(t, "tokenB", tokB.Asset)
	assert.Equal(t, 0, tokB.InvalidPrices)
	assert.Equal(t, 0, tokB.NumberOfFunds)

	require.Len(t, batch.network, 1)
	assert.Equal(t, bi(1000), batch.network[0].Gav)
	assert.True(t, batch.network[0].ValidGav, "an empty position of an unpriced asset must not invalidate the network gav")
}

func TestHandlePriceUpdate_ZeroSupplyYieldsZeroValuations(t *testing.T) {
	f := newPipelineFixture(t, 300, "reg")
	f.addAsset("tokenA", 6)
	f.addFund("fundA")
	f.registerFunds("reg", "fundA")

	f.oracle.holdings["acc-fundA"] = []drepo.FundHolding{
		{Asset: "tokenA", Amount: scaled(100, 6)},
	}
	f.oracle.calcs["acc-fundA"] = &drepo.FundCalculations{
		Gav: bi(1000), Nav: bi(900), SharePrice: bi(0),
		FeesInDenominationAsset: bi(0), FeesInShares: bi(0), GavPerShareNetMgmtFee: bi(0),
	}
	f.oracle.supplies["sh-fundA"] = bi(0)
	f.oracle.investors["part-fundA"] = []string{"alice"}

	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 500,
		Tokens: []string{"tokenA"}, Prices: []string{scaled(2, 6).String()},
	}))

	batch := f.history.batch
	require.Len(t, batch.investments, 1)
	assert.Equal(t, bi(0), batch.investments[0].Gav)
	assert.Equal(t, bi(0), batch.investments[0].Nav)

	// A position is created lazily for the unseen investor.
	created, ok := f.state.investments["alice/fundA"]
	require.True(t, ok)
	assert.Equal(t, int64(500), created.CreatedAt)
	assert.Equal(t, bi(0), created.Shares)
}

func TestHandlePriceUpdate_ProRataFloorDivision(t *testing.T) {
	// 10 GAV over 3 shares of supply: 1 share is worth floor(10/3) = 3.
	f := newPipelineFixture(t, 300, "reg")
	f.addAsset("tokenA", 6)
	f.addFund("fundA")
	f.registerFunds("reg", "fundA")

	f.oracle.holdings["acc-fundA"] = []drepo.FundHolding{
		{Asset: "tokenA", Amount: scaled(1, 6)},
	}
	f.oracle.calcs["acc-fundA"] = &drepo.FundCalculations{
		Gav: bi(10), Nav: bi(10), SharePrice: bi(3),
		FeesInDenominationAsset: bi(0), FeesInShares: bi(0), GavPerShareNetMgmtFee: bi(3),
	}
	f.oracle.supplies["sh-fundA"] = bi(3)
	f.oracle.investors["part-fundA"] = []string{"alice"}
	f.state.investments["alice/fundA"] = &models.Investment{
		ID: "alice/fundA", Investor: "alice", Fund: "fundA", Shares: bi(1),
	}

	require.NoError(t, f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 500,
		Tokens: []string{"tokenA"}, Prices: []string{scaled(2, 6).String()},
	}))

	batch := f.history.batch
	require.Len(t, batch.investments, 1)
	assert.Equal(t, bi(3), batch.investments[0].Gav)
}

func TestHandlePriceUpdate_DecodeError(t *testing.T) {
	f := newPipelineFixture(t, 300, "")

	err := f.pipeline.HandlePriceUpdate(context.Background(), &models.PriceUpdate{
		Source: "0xfeed", Timestamp: 500,
		Tokens: []string{"tokenA"}, Prices: []string{"not-a-number"},
	})
	require.Error(t, err)
	assert.Equal(t, []string{"price_update_decode"}, f.metrics.errors)
	assert.Nil(t, f.history.batch)
}
