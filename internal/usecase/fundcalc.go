package usecase

import (
	"context"
	"fmt"
	"math/big"

	"FundPulse/internal/domain/models"
	drepo "FundPulse/internal/domain/repository"
)

// calculateFund reads the accounting calculations and share supply for a
// fund whose holdings all priced cleanly, writes the valuation snapshot
// and rolls the fund's live share-price fields forward. The fund's GAV is
// folded into the running network total.
func (p *ValuationPipeline) calculateFund(ctx context.Context, bs *batchState, fund *models.Fund) (*drepo.FundCalculations, *big.Int, error) {
	calcs, err := p.accounting.PerformCalculations(ctx, fund.Accounting)
	if err != nil {
		p.metrics.RecordError("oracle_calculations")
		return nil, nil, fmt.Errorf("accounting calculations oracle: %w", err)
	}

	totalSupply, err := p.shares.TotalSupply(ctx, fund.Shares)
	if err != nil {
		p.metrics.RecordError("oracle_supply")
		return nil, nil, fmt.Errorf("shares oracle: %w", err)
	}

	bs.networkGav.Add(bs.networkGav, calcs.Gav)

	bs.batch.AddFundCalculations(&models.FundCalculationsHistory{
		ID:                      models.HistoryID(fund.ID, bs.timestamp),
		Fund:                    fund.ID,
		Timestamp:               bs.timestamp,
		Gav:                     calcs.Gav,
		ValidPrices:             true,
		FeesInDenominationAsset: calcs.FeesInDenominationAsset,
		FeesInShares:            calcs.FeesInShares,
		Nav:                     calcs.Nav,
		SharePrice:              calcs.SharePrice,
		GavPerShareNetMgmtFee:   calcs.GavPerShareNetMgmtFee,
		TotalSupply:             totalSupply,
		Source:                  "priceUpdate",
	})

	fund.Gav = calcs.Gav
	fund.Nav = calcs.Nav
	fund.ValidPrice = true
	fund.TotalSupply = totalSupply
	fund.FeesInDenominationAsset = calcs.FeesInDenominationAsset
	fund.FeesInShares = calcs.FeesInShares
	fund.SharePrice = calcs.SharePrice
	fund.GavPerShareNetMgmtFee = calcs.GavPerShareNetMgmtFee
	fund.LastCalculationsUpdate = bs.timestamp
	fund.PreviousDailySharePrice = fund.CurrentDailySharePrice
	fund.CurrentDailySharePrice = calcs.SharePrice

	if err := p.state.PutFund(ctx, fund); err != nil {
		return nil, nil, fmt.Errorf("save fund: %w", err)
	}

	return calcs, totalSupply, nil
}
