package usecase

import (
	"context"
	"fmt"
	"math/big"

	"FundPulse/internal/domain/models"
	applogger "FundPulse/pkg/logger"
)

// ingestPrices validates and records the incoming batch and builds the
// price/decimals lookups for the rest of the pipeline. Unknown assets are
// skipped. A zero price is an explicit invalidation by the source: it is
// counted invalid but still stored as the latest price.
func (p *ValuationPipeline) ingestPrices(ctx context.Context, bs *batchState, ev *models.PriceUpdate, prices []*big.Int) error {
	numberOfAssets := 0
	invalidPrices := 0

	for i, price := range prices {
		asset, ok, err := p.state.GetAsset(ctx, ev.Tokens[i])
		if err != nil {
			return fmt.Errorf("load asset %s: %w", ev.Tokens[i], err)
		}
		if !ok {
			continue
		}

		priceValid := price.Sign() != 0
		if !priceValid {
			invalidPrices++
		}

		asset.LastPrice = price
		asset.LastPriceUpdate = bs.timestamp
		asset.LastPriceValid = priceValid
		if err := p.state.PutAsset(ctx, asset); err != nil {
			return fmt.Errorf("save asset %s: %w", asset.ID, err)
		}

		bs.batch.AddAssetPrice(&models.AssetPriceHistory{
			ID:         models.HistoryID(asset.ID, bs.timestamp),
			Asset:      asset.ID,
			Timestamp:  bs.timestamp,
			Price:      price,
			PriceValid: priceValid,
		})

		numberOfAssets++
		bs.prices[asset.ID] = price
		bs.decimals[asset.ID] = asset.Decimals
	}

	bs.batch.AddPriceBatch(&models.PriceBatch{
		Timestamp:      bs.timestamp,
		PriceSource:    ev.Source,
		NumberOfAssets: numberOfAssets,
		InvalidPrices:  invalidPrices,
	})

	p.metrics.RecordBatch(numberOfAssets, invalidPrices)
	p.logger.Debug("price batch ingested",
		applogger.Int64("timestamp", bs.timestamp),
		applogger.String("source", ev.Source),
		applogger.Int("assets", numberOfAssets),
		applogger.Int("invalid", invalidPrices),
	)
	return nil
}
