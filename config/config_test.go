package config

import (
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestSetupMissingFile(t *testing.T) {
	require := require.New(t)

	conf, err := Setup(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(err)
	require.Equal(defaults.Operator, conf.Operator)
	require.Equal(defaults.Fractional, conf.Fractional)
	require.Equal(ExpandHome(defaults.DataDir), conf.DataDir)
}

func TestSetupToml(t *testing.T) {
	require := require.New(t)
	path := writeConfig(t, "config.toml", `
data-dir = "/var/lib/fractional"
log-level = 3
operator = "alice"

[fractional]
decimals = 8
default-symbol = "SHARE"
`)

	conf, err := Setup(path)
	require.NoError(err)
	require.Equal("/var/lib/fractional", conf.DataDir)
	require.Equal(3, conf.LogLevel)
	require.Equal("alice", conf.Operator)
	require.Equal(defaults.MetricsAddr, conf.MetricsAddr)
	require.Equal(uint8(8), conf.Fractional.Decimals)
	require.Equal("SHARE", conf.Fractional.DefaultSymbol)
	require.Equal("Fractional Token", conf.Fractional.DefaultName)
	require.Equal(uint64(1), conf.Fractional.FungibleCodeId)

	_, err = Setup(writeConfig(t, "broken.toml", "operator = "))
	require.Error(err)
	_, err = Setup(writeConfig(t, "empty.toml", `operator = ""`))
	require.Error(err)
}

func TestSetupYaml(t *testing.T) {
	require := require.New(t)
	path := writeConfig(t, "config.yaml", `
operator: bob
metricsAddr: 0.0.0.0:9200
fractional:
  defaultName: Shares
  fungibleCodeId: 4
`)

	conf, err := Setup(path)
	require.NoError(err)
	require.Equal("bob", conf.Operator)
	require.Equal("0.0.0.0:9200", conf.MetricsAddr)
	require.Equal("Shares", conf.Fractional.DefaultName)
	require.Equal(uint64(4), conf.Fractional.FungibleCodeId)
	require.Equal(uint8(6), conf.Fractional.Decimals)
}

func TestSetupEnvironment(t *testing.T) {
	require := require.New(t)
	path := writeConfig(t, "config.toml", `operator = "alice"`)
	t.Setenv("FRACTIONAL_OPERATOR", "carol")
	t.Setenv("FRACTIONAL_TOKEN_DEFAULT_SYMBOL", "ENV")
	t.Setenv("FRACTIONAL_LOG_LEVEL", "1")

	conf, err := Setup(path)
	require.NoError(err)
	require.Equal("carol", conf.Operator)
	require.Equal("ENV", conf.Fractional.DefaultSymbol)
	require.Equal(1, conf.LogLevel)

	t.Setenv("FRACTIONAL_LOG_LEVEL", "verbose")
	_, err = Setup(path)
	require.Error(err)
}

func TestExpandHome(t *testing.T) {
	usr, err := user.Current()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(usr.HomeDir, "data"), ExpandHome("~/data"))
	require.Equal(t, "/tmp/data", ExpandHome("/tmp/data"))
	require.Equal(t, "~data", ExpandHome("~data"))
}
