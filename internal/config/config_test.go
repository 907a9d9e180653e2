package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "./data/state.json", cfg.StateFile)
	assert.Equal(t, "./data/events.jsonl", cfg.Events)
	assert.Equal(t, uint64(31337), cfg.ChainID)
	assert.Equal(t, "TLP", cfg.PairSuffix)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Empty(t, cfg.PgDSN)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "toknswap.yaml")
	require.NoError(t, os.WriteFile(file, []byte("chain-id: 56\npair-suffix: XLP\nlisten: \":7000\"\n"), 0o644))
	t.Setenv("TOKNSWAP_PG_DSN", "postgres://localhost/toknswap")
	t.Setenv("TOKNSWAP_PAIR_SUFFIX", "ENV")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":8545", "")
	require.NoError(t, flags.Parse([]string{"--listen", ":9000"}))

	cfg, err := Load(file, flags)
	require.NoError(t, err)
	assert.Equal(t, uint64(56), cfg.ChainID, "file")
	assert.Equal(t, "ENV", cfg.PairSuffix, "env beats file")
	assert.Equal(t, ":9000", cfg.Listen, "flag beats file")
	assert.Equal(t, "postgres://localhost/toknswap", cfg.PgDSN)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    *uint256.Int
		wantErr bool
	}{
		{name: "decimal", input: "1000", want: uint256.NewInt(1000)},
		{name: "hex", input: "0x10", want: uint256.NewInt(16)},
		{name: "trimmed", input: " 7 ", want: uint256.NewInt(7)},
		{name: "empty", input: "", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "too large", input: "0x1" + "0000000000000000000000000000000000000000000000000000000000000000", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParsePath(t *testing.T) {
	a := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	b := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	path, err := ParsePath(a.Hex() + ", " + b.Hex())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{a, b}, path)

	_, err = ParsePath(a.Hex())
	require.Error(t, err)
	_, err = ParsePath(a.Hex() + ",nope")
	require.Error(t, err)
}

func TestParseDeadline(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	got, err := ParseDeadline("20m", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_001_200), got)

	got, err = ParseDeadline("1700000100", now)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_000_100), got)

	_, err = ParseDeadline("-5m", now)
	require.Error(t, err)
	_, err = ParseDeadline("soon", now)
	require.Error(t, err)
}
