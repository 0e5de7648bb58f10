package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint16(10), cfg.TickSpacing)
	assert.Equal(t, uint32(2500), cfg.TradeFeeRate)
	assert.Equal(t, uint64(3600), cfg.SnapshotInterval)
	assert.Empty(t, cfg.PGDSN)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "clmm.yaml")
	require.NoError(t, os.WriteFile(file, []byte("tick-spacing: 60\ntrade-fee-rate: 10000\nlog-level: warn\n"), 0o644))
	t.Setenv("CLMM_PG_DSN", "postgres://localhost/clmm")
	t.Setenv("CLMM_TRADE_FEE_RATE", "500")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--log-level=debug"}))

	cfg, err := Load(file, flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost/clmm", cfg.PGDSN)
	assert.Equal(t, uint32(500), cfg.TradeFeeRate)
	assert.Equal(t, uint16(60), cfg.TickSpacing)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	t.Setenv("CLMM_TICK_SPACING", "0")
	_, err = Load("", nil)
	assert.Error(t, err)
}
