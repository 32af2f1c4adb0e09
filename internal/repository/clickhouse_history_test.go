package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema(t *testing.T) {
	stmts := Schema("fundpulse")
	require.Len(t, stmts, 9)

	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS fundpulse", stmts[0])
	for _, stmt := range stmts[1:] {
		assert.True(t, strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS fundpulse."), stmt)
		assert.Contains(t, stmt, "ENGINE=MergeTree")
	}

	tables := []string{
		"price_batches", "asset_prices", "fund_holdings", "network_assets",
		"fund_calculations", "investment_valuations", "investor_valuations", "network_history",
	}
	joined := strings.Join(stmts, "\n")
	for _, table := range tables {
		assert.Contains(t, joined, "fundpulse."+table)
	}
}

func TestRedisStateStoreKeys(t *testing.T) {
	s := NewRedisStateStore(nil, "", "0xreg")
	assert.Equal(t, "fundpulse:state", s.key("state"))
	assert.Equal(t, "fundpulse:asset:0xaaa", s.key("asset", "0xaaa"))

	s = NewRedisStateStore(nil, "custom", "0xreg")
	assert.Equal(t, "custom:fund:f1", s.key("fund", "f1"))
}
