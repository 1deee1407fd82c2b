package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-bridge-base/config"
	"github.com/alphabill-org/alphabill-bridge-base/store"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

func writeConfig(t *testing.T, dataDir string) string {
	file := filepath.Join(t.TempDir(), "config.toml")
	content := `
Operator = "0x9552ceB4e6FA8c356c1A76A8Bc8b1EFA7B9fb205"
Escrow = "0x000000000000000000000000000000000000e5c0"
DataDir = "` + dataDir + `"
LogLevel = "error"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestParseTokenPair(t *testing.T) {
	p, err := parseTokenPair("0x0000000000000000000000000000000000005000:0x000000000000000000000000000000000000d000")
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x5000"), p.SourceToken)
	require.Equal(t, common.HexToAddress("0xd000"), p.DestinationToken)

	_, err = parseTokenPair("0x0000000000000000000000000000000000005000")
	require.ErrorContains(t, err, "expected <source token>:<destination token>")

	_, err = parseTokenPair("foo:bar")
	require.ErrorContains(t, err, "tokens must be hex addresses")
}

func TestInitAndInspect(t *testing.T) {
	dataDir := t.TempDir()
	cfgFile := writeConfig(t, dataDir)
	pair := "0x0000000000000000000000000000000000005000:0x000000000000000000000000000000000000d000"

	require.NoError(t, newApp().Run([]string{"safebridge", "--config", cfgFile, "init", "--pair", pair}))
	// running again with the same pair is a no-op
	require.NoError(t, newApp().Run([]string{"safebridge", "--config", cfgFile, "init", "--pair", pair}))

	conflicting := "0x0000000000000000000000000000000000005000:0x000000000000000000000000000000000000d001"
	err := newApp().Run([]string{"safebridge", "--config", cfgFile, "init", "--pair", conflicting})
	require.ErrorIs(t, err, types.ErrTokenPairExists)

	db, err := store.Open(dataDir)
	require.NoError(t, err)
	cs, err := db.Load()
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NotNil(t, cs)
	require.EqualValues(t, 1, cs.Version)
	require.Len(t, cs.TokenPairs, 1)

	buf := &bytes.Buffer{}
	require.NoError(t, printState(buf, cs))
	require.Contains(t, buf.String(), "version: 1")
	require.Contains(t, buf.String(), common.HexToAddress("0xd000").Hex())
}

func TestInit_OperatorRequired(t *testing.T) {
	err := newApp().Run([]string{"safebridge", "--datadir", t.TempDir(), "--loglevel", "error", "init"})
	require.EqualError(t, err, "operator address must be configured")
}

func TestDumpConfig(t *testing.T) {
	dataDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "dump.toml")
	require.NoError(t, newApp().Run([]string{"safebridge", "--config", writeConfig(t, dataDir), "--loglevel", "warn", "dumpconfig", out}))

	cfg := config.Config{}
	require.NoError(t, config.Load(out, &cfg))
	require.Equal(t, dataDir, cfg.DataDir)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, config.Defaults.SafetyDelay, cfg.SafetyDelay)
}

func TestPrintState_Empty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, printState(buf, nil))
	require.Equal(t, "ledger state is empty\n", buf.String())
}
