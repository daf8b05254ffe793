package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

type FractionalConfiguration struct {
	FungibleCodeId uint64 `toml:"fungible-code-id" yaml:"fungibleCodeId" envconfig:"FUNGIBLE_CODE_ID"`
	Decimals       uint8  `toml:"decimals" yaml:"decimals" envconfig:"DECIMALS"`
	DefaultName    string `toml:"default-name" yaml:"defaultName" envconfig:"DEFAULT_NAME"`
	DefaultSymbol  string `toml:"default-symbol" yaml:"defaultSymbol" envconfig:"DEFAULT_SYMBOL"`
}

type Configuration struct {
	DataDir     string                  `toml:"data-dir" yaml:"dataDir" envconfig:"DATA_DIR"`
	LogLevel    int                     `toml:"log-level" yaml:"logLevel" envconfig:"LOG_LEVEL"`
	MetricsAddr string                  `toml:"metrics-addr" yaml:"metricsAddr" envconfig:"METRICS_ADDR"`
	Operator    string                  `toml:"operator" yaml:"operator" envconfig:"OPERATOR"`
	Fractional  FractionalConfiguration `toml:"fractional" yaml:"fractional" envconfig:"TOKEN"`
}

const DefaultConfigPath = "~/.mixin/fractional/config.toml"

var defaults = Configuration{
	DataDir:     "~/.mixin/fractional/data",
	LogLevel:    2,
	MetricsAddr: "127.0.0.1:9100",
	Operator:    "operator",
	Fractional: FractionalConfiguration{
		FungibleCodeId: 1,
		Decimals:       6,
		DefaultName:    "Fractional Token",
		DefaultSymbol:  "FRAC",
	},
}

// Setup reads the configuration file at path, a missing file keeps the
// defaults, then applies FRACTIONAL_ prefixed environment variables.
func Setup(path string) (*Configuration, error) {
	conf := defaults
	path = ExpandHome(path)

	f, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		err = nil
	case err != nil:
		return nil, err
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		err = yaml.Unmarshal(f, &conf)
	default:
		err = toml.Unmarshal(f, &conf)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	err = envconfig.Process("fractional", &conf)
	if err != nil {
		return nil, fmt.Errorf("config environment: %w", err)
	}
	conf.DataDir = ExpandHome(conf.DataDir)
	if conf.Operator == "" {
		return nil, fmt.Errorf("config %s: empty operator", path)
	}
	return &conf, nil
}

func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		panic(err)
	}
	return filepath.Join(usr.HomeDir, path[2:])
}
