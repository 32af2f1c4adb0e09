package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"FundPulse/internal/domain/models"
	domrepo "FundPulse/internal/domain/repository"
	pkgch "FundPulse/pkg/clickhouse"
	applogger "FundPulse/pkg/logger"
)

// CHHistoryStore implements HistoryStore backed by ClickHouse. Big values
// are stored as decimal strings: wei-scale integers exceed UInt64 and the
// API never aggregates them in SQL.
type CHHistoryStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewCHHistoryStore(ch *pkgch.Client, database string) *CHHistoryStore {
	return &CHHistoryStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *CHHistoryStore) SetLogger(l *applogger.Logger) { s.l = l }

// Schema returns the idempotent DDL for every history table.
func Schema(database string) []string {
	t := func(name, cols, order string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s.%s (%s) ENGINE=MergeTree ORDER BY %s", database, name, cols, order)
	}
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		t("price_batches", "ts DateTime, source String, num_assets Int32, invalid_prices Int32", "ts"),
		t("asset_prices", "id String, asset String, ts DateTime, price String, valid UInt8", "(asset, ts)"),
		t("fund_holdings", "id String, fund String, asset String, ts DateTime, amount String, asset_gav String, valid UInt8", "(fund, ts, asset)"),
		t("network_assets", "id String, asset String, ts DateTime, amount String, asset_gav String, num_funds Int32, invalid_prices Int32", "(asset, ts)"),
		t("fund_calculations", "id String, fund String, ts DateTime, gav String, valid UInt8, fees_denom String, fees_shares String, nav String, share_price String, gav_per_share String, total_supply String, source String", "(fund, ts)"),
		t("investment_valuations", "id String, investment String, ts DateTime, gav String, nav String, share_price String", "(investment, ts)"),
		t("investor_valuations", "id String, investor String, ts DateTime, gav String, nav String", "(investor, ts)"),
		t("network_history", "ts DateTime, gav String, valid UInt8", "ts"),
	}
}

func (s *CHHistoryStore) NewBatch() domrepo.Batch {
	return &chBatch{store: s}
}

// chBatch buffers one price update's rows and flushes them with one
// multi-row INSERT per table.
type chBatch struct {
	store *CHHistoryStore

	priceBatches  []*models.PriceBatch
	assetPrices   []*models.AssetPriceHistory
	fundHoldings  []*models.FundHoldingsHistory
	networkAssets []*models.NetworkAssetHistory
	fundCalcs     []*models.FundCalculationsHistory
	investmentVal []*models.InvestmentValuationHistory
	investorVal   []*models.InvestorValuationHistory
	networkRows   []*models.NetworkHistory
}

func (b *chBatch) AddPriceBatch(r *models.PriceBatch)                    { b.priceBatches = append(b.priceBatches, r) }
func (b *chBatch) AddAssetPrice(r *models.AssetPriceHistory)             { b.assetPrices = append(b.assetPrices, r) }
func (b *chBatch) AddFundHoldings(r *models.FundHoldingsHistory)         { b.fundHoldings = append(b.fundHoldings, r) }
func (b *chBatch) AddNetworkAsset(r *models.NetworkAssetHistory)         { b.networkAssets = append(b.networkAssets, r) }
func (b *chBatch) AddFundCalculations(r *models.FundCalculationsHistory) { b.fundCalcs = append(b.fundCalcs, r) }
func (b *chBatch) AddInvestmentValuation(r *models.InvestmentValuationHistory) {
	b.investmentVal = append(b.investmentVal, r)
}
func (b *chBatch) AddInvestorValuation(r *models.InvestorValuationHistory) {
	b.investorVal = append(b.investorVal, r)
}
func (b *chBatch) AddNetworkHistory(r *models.NetworkHistory) { b.networkRows = append(b.networkRows, r) }

// Flush writes all buffered rows. Any insert failure aborts the event; the
// host's replay is the recovery path.
func (b *chBatch) Flush(ctx context.Context) error {
	start := time.Now()
	s := b.store

	if err := s.insert(ctx, "price_batches", "ts, source, num_assets, invalid_prices", len(b.priceBatches), func(i int) []interface{} {
		r := b.priceBatches[i]
		return []interface{}{time.Unix(r.Timestamp, 0), r.PriceSource, r.NumberOfAssets, r.InvalidPrices}
	}); err != nil {
		return err
	}

	if err := s.insert(ctx, "asset_prices", "id, asset, ts, price, valid", len(b.assetPrices), func(i int) []interface{} {
		r := b.assetPrices[i]
		return []interface{}{r.ID, r.Asset, time.Unix(r.Timestamp, 0), r.Price.String(), boolU8(r.PriceValid)}
	}); err != nil {
		return err
	}

	if err := s.insert(ctx, "fund_holdings", "id, fund, asset, ts, amount, asset_gav, valid", len(b.fundHoldings), func(i int) []interface{} {
		r := b.fundHoldings[i]
		return []interface{}{r.ID, r.Fund, r.Asset, time.Unix(r.Timestamp, 0), r.Amount.String(), r.AssetGav.String(), boolU8(r.ValidPrice)}
	}); err != nil {
		return err
	}

	if err := s.insert(ctx, "network_assets", "id, asset, ts, amount, asset_gav, num_funds, invalid_prices", len(b.networkAssets), func(i int) []interface{} {
		r := b.networkAssets[i]
		return []interface{}{r.ID, r.Asset, time.Unix(r.Timestamp, 0), r.Amount.String(), r.AssetGav.String(), r.NumberOfFunds, r.InvalidPrices}
	}); err != nil {
		return err
	}

	if err := s.insert(ctx, "fund_calculations", "id, fund, ts, gav, valid, fees_denom, fees_shares, nav, share_price, gav_per_share, total_supply, source", len(b.fundCalcs), func(i int) []interface{} {
		r := b.fundCalcs[i]
		return []interface{}{
			r.ID, r.Fund, time.Unix(r.Timestamp, 0), r.Gav.String(), boolU8(r.ValidPrices),
			r.FeesInDenominationAsset.String(), r.FeesInShares.String(), r.Nav.String(),
			r.SharePrice.String(), r.GavPerShareNetMgmtFee.String(), r.TotalSupply.String(), r.Source,
		}
	}); err != nil {
		return err
	}

	if err := s.insert(ctx, "investment_valuations", "id, investment, ts, gav, nav, share_price", len(b.investmentVal), func(i int) []interface{} {
		r := b.investmentVal[i]
		return []interface{}{r.ID, r.Investment, time.Unix(r.Timestamp, 0), r.Gav.String(), r.Nav.String(), r.SharePrice.String()}
	}); err != nil {
		return err
	}

	if err := s.insert(ctx, "investor_valuations", "id, investor, ts, gav, nav", len(b.investorVal), func(i int) []interface{} {
		r := b.investorVal[i]
		return []interface{}{r.ID, r.Investor, time.Unix(r.Timestamp, 0), r.Gav.String(), r.Nav.String()}
	}); err != nil {
		return err
	}

	if err := s.insert(ctx, "network_history", "ts, gav, valid", len(b.networkRows), func(i int) []interface{} {
		r := b.networkRows[i]
		return []interface{}{time.Unix(r.Timestamp, 0), r.Gav.String(), boolU8(r.ValidGav)}
	}); err != nil {
		return err
	}

	if s.l != nil {
		s.l.Debug("history batch flushed",
			applogger.Int("asset_prices", len(b.assetPrices)),
			applogger.Int("fund_holdings", len(b.fundHoldings)),
			applogger.Int("fund_calculations", len(b.fundCalcs)),
			applogger.Int("investment_valuations", len(b.investmentVal)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// insert builds a single multi-row VALUES insert for one table.
func (s *CHHistoryStore) insert(ctx context.Context, table, cols string, n int, row func(int) []interface{}) error {
	if n == 0 {
		return nil
	}
	first := row(0)
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(first)), ", ") + ")"

	values := make([]string, 0, n)
	args := make([]interface{}, 0, n*len(first))
	for i := 0; i < n; i++ {
		values = append(values, placeholder)
		args = append(args, row(i)...)
	}

	q := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES %s", s.database, table, cols, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse insert error",
				applogger.String("table", table),
				applogger.Int("rows", n),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

func (s *CHHistoryStore) LatestNetworkHistory(ctx context.Context, limit int) ([]*models.NetworkHistory, error) {
	q := fmt.Sprintf("SELECT ts, gav, valid FROM %s.network_history ORDER BY ts DESC LIMIT ?", s.database)
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("get network history: %w", err)
	}
	defer rows.Close()

	out := make([]*models.NetworkHistory, 0, limit)
	for rows.Next() {
		var (
			ts    time.Time
			gav   string
			valid uint8
		)
		if err := rows.Scan(&ts, &gav, &valid); err != nil {
			return nil, fmt.Errorf("scan network history: %w", err)
		}
		g, err := scanBig(gav)
		if err != nil {
			return nil, fmt.Errorf("network history gav: %w", err)
		}
		out = append(out, &models.NetworkHistory{Timestamp: ts.Unix(), Gav: g, ValidGav: valid != 0})
	}
	return out, rows.Err()
}

func (s *CHHistoryStore) FundCalculations(ctx context.Context, fund string, limit int) ([]*models.FundCalculationsHistory, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT id, fund, ts, gav, valid, fees_denom, fees_shares, nav, share_price, gav_per_share, total_supply, source
        FROM %s.fund_calculations
        WHERE fund = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.database)
	rows, err := s.db.QueryContext(ctx, q, fund, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse fund_calculations query error",
				applogger.String("fund", fund),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("get fund calculations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.FundCalculationsHistory, 0, limit)
	for rows.Next() {
		var (
			r     models.FundCalculationsHistory
			ts    time.Time
			valid uint8
			raw   [7]string
		)
		if err := rows.Scan(&r.ID, &r.Fund, &ts, &raw[0], &valid, &raw[1], &raw[2], &raw[3], &raw[4], &raw[5], &raw[6], &r.Source); err != nil {
			return nil, fmt.Errorf("scan fund calculations: %w", err)
		}
		r.Timestamp = ts.Unix()
		r.ValidPrices = valid != 0
		for j, dst := range []**big.Int{&r.Gav, &r.FeesInDenominationAsset, &r.FeesInShares, &r.Nav, &r.SharePrice, &r.GavPerShareNetMgmtFee, &r.TotalSupply} {
			v, err := scanBig(raw[j])
			if err != nil {
				return nil, fmt.Errorf("fund calculations %s: %w", r.ID, err)
			}
			*dst = v
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse fund_calculations ok",
			applogger.String("fund", fund),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHHistoryStore) AssetPrices(ctx context.Context, asset string, from, to time.Time, limit int) ([]*models.AssetPriceHistory, error) {
	q := fmt.Sprintf(`
        SELECT id, asset, ts, price, valid
        FROM %s.asset_prices
        WHERE asset = ? AND ts >= ? AND ts <= ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.database)
	rows, err := s.db.QueryContext(ctx, q, asset, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("get asset prices: %w", err)
	}
	defer rows.Close()

	out := make([]*models.AssetPriceHistory, 0, limit)
	for rows.Next() {
		var (
			r     models.AssetPriceHistory
			ts    time.Time
			price string
			valid uint8
		)
		if err := rows.Scan(&r.ID, &r.Asset, &ts, &price, &valid); err != nil {
			return nil, fmt.Errorf("scan asset price: %w", err)
		}
		p, err := scanBig(price)
		if err != nil {
			return nil, fmt.Errorf("asset price %s: %w", r.ID, err)
		}
		r.Timestamp = ts.Unix()
		r.Price = p
		r.PriceValid = valid != 0
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *CHHistoryStore) InvestorValuations(ctx context.Context, investor string, limit int) ([]*models.InvestorValuationHistory, error) {
	q := fmt.Sprintf(`
        SELECT id, investor, ts, gav, nav
        FROM %s.investor_valuations
        WHERE investor = ?
        ORDER BY ts DESC
        LIMIT ?
    `, s.database)
	rows, err := s.db.QueryContext(ctx, q, investor, limit)
	if err != nil {
		return nil, fmt.Errorf("get investor valuations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.InvestorValuationHistory, 0, limit)
	for rows.Next() {
		var (
			r        models.InvestorValuationHistory
			ts       time.Time
			gav, nav string
		)
		if err := rows.Scan(&r.ID, &r.Investor, &ts, &gav, &nav); err != nil {
			return nil, fmt.Errorf("scan investor valuation: %w", err)
		}
		r.Timestamp = ts.Unix()
		if r.Gav, err = scanBig(gav); err != nil {
			return nil, fmt.Errorf("investor valuation %s: %w", r.ID, err)
		}
		if r.Nav, err = scanBig(nav); err != nil {
			return nil, fmt.Errorf("investor valuation %s: %w", r.ID, err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *CHHistoryStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHHistoryStore) Close() error {
	return nil // Managed by pkg
}

func boolU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func scanBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored big integer %q", s)
	}
	return v, nil
}

var _ domrepo.HistoryStore = (*CHHistoryStore)(nil)
