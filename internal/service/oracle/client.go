package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	drepo "FundPulse/internal/domain/repository"
	xhttp "FundPulse/pkg/http"
)

// Client reads the accounting, shares and participation oracles over the
// gateway's HTTP API. All reads are synchronous and deterministic for a
// given chain state; any transport or decode failure is returned to the
// caller and fails the whole event.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

// New creates an oracle client against the gateway base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type holdingsResponse struct {
	Amounts []string `json:"amounts"`
	Assets  []string `json:"assets"`
}

// FundHoldings returns the current (amount, asset) exposures of a fund.
func (c *Client) FundHoldings(ctx context.Context, accounting string) ([]drepo.FundHolding, error) {
	var resp holdingsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/accounting/%s/holdings", c.baseURL, accounting),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get fund holdings: %w", err)
	}
	if len(resp.Amounts) != len(resp.Assets) {
		return nil, fmt.Errorf("get fund holdings: %d amounts vs %d assets", len(resp.Amounts), len(resp.Assets))
	}

	holdings := make([]drepo.FundHolding, len(resp.Assets))
	for i := range resp.Assets {
		amount, err := parseBig(resp.Amounts[i])
		if err != nil {
			return nil, fmt.Errorf("get fund holdings: asset %s: %w", resp.Assets[i], err)
		}
		holdings[i] = drepo.FundHolding{Asset: resp.Assets[i], Amount: amount}
	}
	return holdings, nil
}

type calculationsResponse struct {
	Gav                     string `json:"gav"`
	FeesInDenominationAsset string `json:"fees_in_denomination_asset"`
	FeesInShares            string `json:"fees_in_shares"`
	Nav                     string `json:"nav"`
	SharePrice              string `json:"share_price"`
	GavPerShareNetMgmtFee   string `json:"gav_per_share_net_mgmt_fee"`
}

// PerformCalculations returns the oracle's atomic valuation read. Must not
// be called for funds with invalidly priced holdings.
func (c *Client) PerformCalculations(ctx context.Context, accounting string) (*drepo.FundCalculations, error) {
	var resp calculationsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/accounting/%s/calculations", c.baseURL, accounting),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("perform calculations: %w", err)
	}

	out := &drepo.FundCalculations{}
	for _, f := range []struct {
		name string
		src  string
		dst  **big.Int
	}{
		{"gav", resp.Gav, &out.Gav},
		{"fees_in_denomination_asset", resp.FeesInDenominationAsset, &out.FeesInDenominationAsset},
		{"fees_in_shares", resp.FeesInShares, &out.FeesInShares},
		{"nav", resp.Nav, &out.Nav},
		{"share_price", resp.SharePrice, &out.SharePrice},
		{"gav_per_share_net_mgmt_fee", resp.GavPerShareNetMgmtFee, &out.GavPerShareNetMgmtFee},
	} {
		v, err := parseBig(f.src)
		if err != nil {
			return nil, fmt.Errorf("perform calculations: %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return out, nil
}

type totalSupplyResponse struct {
	TotalSupply string `json:"total_supply"`
}

// TotalSupply returns a fund's total share supply.
func (c *Client) TotalSupply(ctx context.Context, shares string) (*big.Int, error) {
	var resp totalSupplyResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/shares/%s/total-supply", c.baseURL, shares),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get total supply: %w", err)
	}
	supply, err := parseBig(resp.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("get total supply: %w", err)
	}
	return supply, nil
}

type investorsResponse struct {
	Investors []string `json:"investors"`
}

// HistoricalInvestors returns every address that ever invested in a fund.
func (c *Client) HistoricalInvestors(ctx context.Context, participation string) ([]string, error) {
	var resp investorsResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/participation/%s/investors", c.baseURL, participation),
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("get historical investors: %w", err)
	}
	return resp.Investors, nil
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid big integer %q", s)
	}
	return v, nil
}

var (
	_ drepo.AccountingOracle    = (*Client)(nil)
	_ drepo.SharesOracle        = (*Client)(nil)
	_ drepo.ParticipationOracle = (*Client)(nil)
)
