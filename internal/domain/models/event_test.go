package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsedPrices(t *testing.T) {
	ev := &PriceUpdate{
		Tokens: []string{"a", "b"},
		Prices: []string{"1000000000000000000", "0"},
	}
	got, err := ev.ParsedPrices()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1000000000000000000", got[0].String())
	assert.Equal(t, 0, got[1].Sign())
}

func TestParsedPricesLengthMismatch(t *testing.T) {
	ev := &PriceUpdate{Tokens: []string{"a"}, Prices: []string{"1", "2"}}
	_, err := ev.ParsedPrices()
	require.Error(t, err)
}

func TestParsedPricesMalformed(t *testing.T) {
	ev := &PriceUpdate{Tokens: []string{"a"}, Prices: []string{"1.5"}}
	_, err := ev.ParsedPrices()
	require.Error(t, err)
}

func TestParsedPricesNegative(t *testing.T) {
	ev := &PriceUpdate{Tokens: []string{"a"}, Prices: []string{"-1"}}
	_, err := ev.ParsedPrices()
	require.Error(t, err)
}

func TestHistoryID(t *testing.T) {
	assert.Equal(t, "0xabc/1000", HistoryID("0xabc", int64(1000)))
	assert.Equal(t, "f/1000/a", HistoryID("f", int64(1000), "a"))
}

func TestInvestmentID(t *testing.T) {
	assert.Equal(t, "alice/fund1", InvestmentID("alice", "fund1"))
}
