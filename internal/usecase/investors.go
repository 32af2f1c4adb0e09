package usecase

import (
	"context"
	"fmt"
	"math/big"

	"FundPulse/internal/domain/models"
	drepo "FundPulse/internal/domain/repository"
)

// aggregateInvestors distributes a fund's GAV/NAV pro rata to every
// historical investor and folds the amounts into each investor's
// per-batch aggregate. Floor division throughout; a zero total supply
// yields zeros rather than an error.
func (p *ValuationPipeline) aggregateInvestors(
	ctx context.Context,
	bs *batchState,
	fund *models.Fund,
	calcs *drepo.FundCalculations,
	totalSupply *big.Int,
) error {
	investors, err := p.participation.HistoricalInvestors(ctx, fund.Participation)
	if err != nil {
		p.metrics.RecordError("oracle_investors")
		return fmt.Errorf("participation oracle: %w", err)
	}

	for _, investor := range investors {
		investment, err := p.loadOrCreateInvestment(ctx, investor, fund.ID, bs.timestamp)
		if err != nil {
			return err
		}

		investmentGav := new(big.Int)
		investmentNav := new(big.Int)
		if totalSupply.Sign() != 0 {
			investmentGav.Mul(calcs.Gav, investment.Shares)
			investmentGav.Quo(investmentGav, totalSupply)
			investmentNav.Mul(calcs.Nav, investment.Shares)
			investmentNav.Quo(investmentNav, totalSupply)
		}

		investment.Gav = investmentGav
		investment.Nav = investmentNav
		investment.SharePrice = calcs.SharePrice
		if err := p.state.PutInvestment(ctx, investment); err != nil {
			return fmt.Errorf("save investment %s: %w", investment.ID, err)
		}

		bs.batch.AddInvestmentValuation(&models.InvestmentValuationHistory{
			ID:         models.HistoryID(investment.ID, bs.timestamp),
			Investment: investment.ID,
			Timestamp:  bs.timestamp,
			Gav:        investmentGav,
			Nav:        investmentNav,
			SharePrice: calcs.SharePrice,
		})

		// An investor holding several funds accumulates across all of them
		// within the batch.
		agg := bs.investorAggregate(investor)
		agg.Gav.Add(agg.Gav, investmentGav)
		agg.Nav.Add(agg.Nav, investmentNav)
	}

	return nil
}

// loadOrCreateInvestment resolves the live (investor, fund) position.
// Positions are created with zero shares; subscriptions are tracked by the
// onboarding service, not here.
func (p *ValuationPipeline) loadOrCreateInvestment(ctx context.Context, investor, fundID string, timestamp int64) (*models.Investment, error) {
	id := models.InvestmentID(investor, fundID)
	investment, ok, err := p.state.GetInvestment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load investment %s: %w", id, err)
	}
	if ok {
		return investment, nil
	}
	return &models.Investment{
		ID:         id,
		Investor:   investor,
		Fund:       fundID,
		Shares:     new(big.Int),
		Gav:        new(big.Int),
		Nav:        new(big.Int),
		SharePrice: new(big.Int),
		CreatedAt:  timestamp,
	}, nil
}
