package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	models "FundPulse/internal/domain/models"
	domrepo "FundPulse/internal/domain/repository"
	icache "FundPulse/internal/service/cache"
	pkgcache "FundPulse/pkg/cache"
	xhttp "FundPulse/pkg/http"
	xlogger "FundPulse/pkg/logger"
	"FundPulse/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const (
	responseCacheTTL = 5 * time.Second
	decimalsCacheTTL = 10 * time.Minute
)

// ValuationsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
// List responses are cached briefly; asset decimals are memoized in-process.
type ValuationsEchoHandler struct {
	logger   *xlogger.Logger
	history  domrepo.HistoryStore
	state    domrepo.StateStore
	cache    pkgcache.Service
	decimals *icache.TTLCache
}

func NewValuationsEchoHandler(logger *xlogger.Logger, history domrepo.HistoryStore, state domrepo.StateStore, cache pkgcache.Service) *ValuationsEchoHandler {
	return &ValuationsEchoHandler{
		logger:   logger,
		history:  history,
		state:    state,
		cache:    cache,
		decimals: icache.NewTTLCache(),
	}
}

func (h *ValuationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/network/history", h.NetworkHistory)
	g.GET("/funds/:fund/calculations", h.FundCalculations)
	g.GET("/assets/:asset/prices", h.AssetPrices)
	g.GET("/investors/:investor/valuations", h.InvestorValuations)
	e.GET("/healthz", h.Health)
}

// cached serves rows from the response cache or fills them via fn. Rows are
// cached as a JSON string so both memory and Redis layers round-trip them.
func cached[T any](ctx context.Context, svc pkgcache.Service, key string, fill func() ([]T, error)) ([]T, error) {
	if svc != nil {
		var raw string
		if err := svc.Get(ctx, key, &raw); err == nil {
			var out []T
			if json.Unmarshal([]byte(raw), &out) == nil {
				return out, nil
			}
		}
	}

	out, err := fill()
	if err != nil {
		return nil, err
	}

	if svc != nil {
		if b, err := json.Marshal(out); err == nil {
			_ = svc.Set(ctx, key, string(b), responseCacheTTL)
		}
	}
	return out, nil
}

type networkHistoryRow struct {
	Timestamp int64  `json:"t"`
	Gav       string `json:"gav"`
	ValidGav  bool   `json:"valid_gav"`
}

func (h *ValuationsEchoHandler) NetworkHistory(c echo.Context) error {
	req := &models.NetworkHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := pkgcache.GenerateKeyWithParams("api:network_history", req.Limit)

	out, err := cached(ctx, h.cache, key, func() ([]networkHistoryRow, error) {
		rows, err := h.history.LatestNetworkHistory(ctx, req.Limit)
		if err != nil {
			return nil, err
		}
		return lo.Map(rows, func(r *models.NetworkHistory, _ int) networkHistoryRow {
			return networkHistoryRow{Timestamp: r.Timestamp, Gav: r.Gav.String(), ValidGav: r.ValidGav}
		}), nil
	})
	if err != nil {
		h.logger.Error("network history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

type fundCalculationsRow struct {
	Timestamp               int64  `json:"t"`
	Gav                     string `json:"gav"`
	Nav                     string `json:"nav"`
	FeesInDenominationAsset string `json:"fees_in_denomination_asset"`
	FeesInShares            string `json:"fees_in_shares"`
	SharePrice              string `json:"share_price"`
	GavPerShareNetMgmtFee   string `json:"gav_per_share_net_mgmt_fee"`
	TotalSupply             string `json:"total_supply"`
	ValidPrices             bool   `json:"valid_prices"`
	Source                  string `json:"source"`
}

func (h *ValuationsEchoHandler) FundCalculations(c echo.Context) error {
	req := &models.FundCalculationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := pkgcache.GenerateKeyWithParams("api:fund_calculations", req.Fund, req.Limit)

	out, err := cached(ctx, h.cache, key, func() ([]fundCalculationsRow, error) {
		rows, err := h.history.FundCalculations(ctx, req.Fund, req.Limit)
		if err != nil {
			return nil, err
		}
		return lo.Map(rows, func(r *models.FundCalculationsHistory, _ int) fundCalculationsRow {
			return fundCalculationsRow{
				Timestamp:               r.Timestamp,
				Gav:                     r.Gav.String(),
				Nav:                     r.Nav.String(),
				FeesInDenominationAsset: r.FeesInDenominationAsset.String(),
				FeesInShares:            r.FeesInShares.String(),
				SharePrice:              r.SharePrice.String(),
				GavPerShareNetMgmtFee:   r.GavPerShareNetMgmtFee.String(),
				TotalSupply:             r.TotalSupply.String(),
				ValidPrices:             r.ValidPrices,
				Source:                  r.Source,
			}
		}), nil
	})
	if err != nil {
		h.logger.Error("fund calculations query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

type assetPriceRow struct {
	Timestamp  int64  `json:"t"`
	Price      string `json:"price"`
	PriceHuman string `json:"price_human,omitempty"`
	PriceValid bool   `json:"price_valid"`
}

func (h *ValuationsEchoHandler) AssetPrices(c echo.Context) error {
	req := &models.AssetPricesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	to := util.ParseTimeDefault(req.To, time.Now())
	from := util.ParseTimeDefault(req.From, to.Add(-30*24*time.Hour))

	rows, err := h.history.AssetPrices(ctx, req.Asset, from, to, req.Limit)
	if err != nil {
		h.logger.Error("asset prices query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	decs := h.assetDecimals(ctx, req.Asset)

	out := lo.Map(rows, func(r *models.AssetPriceHistory, _ int) assetPriceRow {
		row := assetPriceRow{Timestamp: r.Timestamp, Price: r.Price.String(), PriceValid: r.PriceValid}
		if decs >= 0 {
			row.PriceHuman = decimal.NewFromBigInt(r.Price, -int32(decs)).String()
		}
		return row
	})
	return xhttp.ListResponse(c, out, int64(len(out)))
}

// assetDecimals returns the asset's decimals, or -1 when the asset is unknown.
func (h *ValuationsEchoHandler) assetDecimals(ctx context.Context, id string) int {
	if v, ok := h.decimals.Get(id); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	asset, ok, err := h.state.GetAsset(ctx, id)
	if err != nil || !ok {
		return -1
	}
	h.decimals.Set(id, asset.Decimals, decimalsCacheTTL)
	return asset.Decimals
}

type investorValuationRow struct {
	Timestamp int64  `json:"t"`
	Gav       string `json:"gav"`
	Nav       string `json:"nav"`
}

func (h *ValuationsEchoHandler) InvestorValuations(c echo.Context) error {
	req := &models.InvestorValuationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := pkgcache.GenerateKeyWithParams("api:investor_valuations", req.Investor, req.Limit)

	out, err := cached(ctx, h.cache, key, func() ([]investorValuationRow, error) {
		rows, err := h.history.InvestorValuations(ctx, req.Investor, req.Limit)
		if err != nil {
			return nil, err
		}
		return lo.Map(rows, func(r *models.InvestorValuationHistory, _ int) investorValuationRow {
			return investorValuationRow{Timestamp: r.Timestamp, Gav: r.Gav.String(), Nav: r.Nav.String()}
		}), nil
	})
	if err != nil {
		h.logger.Error("investor valuations query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *ValuationsEchoHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.history.Health(ctx); err != nil {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"clickhouse": err.Error()})
	}
	if err := h.state.Health(ctx); err != nil {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{"redis": err.Error()})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
