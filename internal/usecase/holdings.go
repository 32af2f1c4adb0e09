package usecase

import (
	"context"
	"fmt"
	"math/big"

	"FundPulse/internal/domain/models"
)

// valuateHoldings revalues each holding of a fund against the batch price
// lookup and folds the results into the network asset aggregates. It
// returns false when any non-zero holding lacks a usable price; the loop
// still visits every remaining holding so the aggregates stay complete.
//
// This happens before any accounting calculation on purpose: the oracle's
// calculation endpoint fails when a constituent price is missing, so the
// invalid flag must be derived here instead.
func (p *ValuationPipeline) valuateHoldings(ctx context.Context, bs *batchState, fund *models.Fund) (bool, error) {
	holdings, err := p.accounting.FundHoldings(ctx, fund.Accounting)
	if err != nil {
		p.metrics.RecordError("oracle_holdings")
		return false, fmt.Errorf("fund holdings oracle: %w", err)
	}

	fundGavValid := true
	for _, holding := range holdings {
		assetGav := new(big.Int)
		validPrice := true

		price := bs.prices[holding.Asset]
		switch {
		case price != nil && price.Sign() != 0:
			assetGav.Mul(holding.Amount, price)
			assetGav.Quo(assetGav, tenToThePowerOf(bs.decimals[holding.Asset]))
		case holding.Amount.Sign() == 0:
			// A zero-amount holding is valid no matter what the price says.
		default:
			validPrice = false
			fundGavValid = false
		}

		// Zero amounts are never persisted.
		if holding.Amount.Sign() != 0 {
			bs.batch.AddFundHoldings(&models.FundHoldingsHistory{
				ID:         models.HistoryID(fund.ID, bs.timestamp, holding.Asset),
				Fund:       fund.ID,
				Asset:      holding.Asset,
				Timestamp:  bs.timestamp,
				Amount:     holding.Amount,
				AssetGav:   assetGav,
				ValidPrice: validPrice,
			})
		}

		agg := bs.networkAsset(holding.Asset)
		agg.Amount.Add(agg.Amount, holding.Amount)
		agg.AssetGav.Add(agg.AssetGav, assetGav)
		if holding.Amount.Sign() != 0 {
			agg.NumberOfFunds++
		}
		if !validPrice {
			agg.InvalidPrices++
		}
	}

	return fundGavValid, nil
}
