package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
environment: test
kafka:
  brokers:
    - localhost:9092
  prices_topic: valuation.price-updates
  snapshots_topic: valuation.network-snapshots
clickhouse:
  host: localhost
  database: fundpulse
gateway:
  websocket_url: ws://localhost:8546/stream
  oracle_url: http://localhost:8547
valuation:
  min_interval: 300
  registry: "0xreg"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "valuation.price-updates", cfg.Kafka.PricesTopic)
	assert.Equal(t, int64(300), cfg.Valuation.MinInterval)
	assert.Equal(t, "0xreg", cfg.Valuation.Registry)
}

func TestLoadMissingRequired(t *testing.T) {
	cases := map[string]string{
		"environment": `
kafka:
  brokers: [localhost:9092]
  prices_topic: t
clickhouse: {host: h, database: d}
gateway: {websocket_url: w, oracle_url: o}
`,
		"oracle url": `
environment: test
kafka:
  brokers: [localhost:9092]
  prices_topic: t
clickhouse: {host: h, database: d}
gateway: {websocket_url: w}
`,
		"negative interval": `
environment: test
kafka:
  brokers: [localhost:9092]
  prices_topic: t
clickhouse: {host: h, database: d}
gateway: {websocket_url: w, oracle_url: o}
valuation: {min_interval: -1}
`,
	}
	for name, yaml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REGISTRY", "0xoverride")
	t.Setenv("MIN_INTERVAL", "600")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "0xoverride", cfg.Valuation.Registry)
	assert.Equal(t, int64(600), cfg.Valuation.MinInterval)
}
