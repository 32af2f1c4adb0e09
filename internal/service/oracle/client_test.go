package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFundHoldings(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/accounting/0xacc/holdings": `{"amounts":["100000000","0"],"assets":["0xaaa","0xbbb"]}`,
	})
	c := New(srv.URL, 5*time.Second)

	holdings, err := c.FundHoldings(context.Background(), "0xacc")
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "0xaaa", holdings[0].Asset)
	assert.Equal(t, "100000000", holdings[0].Amount.String())
	assert.Equal(t, 0, holdings[1].Amount.Sign())
}

func TestFundHoldingsLengthMismatch(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/accounting/0xacc/holdings": `{"amounts":["1"],"assets":["0xaaa","0xbbb"]}`,
	})
	c := New(srv.URL, 5*time.Second)

	_, err := c.FundHoldings(context.Background(), "0xacc")
	require.Error(t, err)
}

func TestPerformCalculations(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/accounting/0xacc/calculations": `{
			"gav": "123456789012345678901234567890",
			"fees_in_denomination_asset": "10",
			"fees_in_shares": "2",
			"nav": "990",
			"share_price": "1000000000000000000",
			"gav_per_share_net_mgmt_fee": "999"
		}`,
	})
	c := New(srv.URL, 5*time.Second)

	calcs, err := c.PerformCalculations(context.Background(), "0xacc")
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678901234567890", calcs.Gav.String(), "values beyond 64 bits must survive")
	assert.Equal(t, "990", calcs.Nav.String())
	assert.Equal(t, "1000000000000000000", calcs.SharePrice.String())
}

func TestPerformCalculationsMalformedField(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/accounting/0xacc/calculations": `{"gav":"oops","fees_in_denomination_asset":"0","fees_in_shares":"0","nav":"0","share_price":"0","gav_per_share_net_mgmt_fee":"0"}`,
	})
	c := New(srv.URL, 5*time.Second)

	_, err := c.PerformCalculations(context.Background(), "0xacc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gav")
}

func TestTotalSupply(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/shares/0xsh/total-supply": `{"total_supply":"5000000000000000000"}`,
	})
	c := New(srv.URL, 5*time.Second)

	supply, err := c.TotalSupply(context.Background(), "0xsh")
	require.NoError(t, err)
	assert.Equal(t, "5000000000000000000", supply.String())
}

func TestHistoricalInvestors(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/participation/0xpart/investors": `{"investors":["0x111","0x222"]}`,
	})
	c := New(srv.URL, 5*time.Second)

	investors, err := c.HistoricalInvestors(context.Background(), "0xpart")
	require.NoError(t, err)
	assert.Equal(t, []string{"0x111", "0x222"}, investors)
}

func TestOracleErrorStatus(t *testing.T) {
	srv := newTestServer(t, nil)
	c := New(srv.URL, 5*time.Second)

	_, err := c.TotalSupply(context.Background(), "0xmissing")
	require.Error(t, err)
}
