/*
Package config contains the configuration of the bridge tooling, loaded from
a TOML file. The same configuration feeds the Source Ledger and the watchtower
so both agree on the delays.
*/
package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"

	"github.com/alphabill-org/alphabill-bridge-base/txsystem/source"
	"github.com/alphabill-org/alphabill-bridge-base/watchtower"
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// Duration is time.Duration encoded as text ("1m30s") in the config file.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	// Operator is the address whose signatures authorize batches.
	Operator common.Address
	// Escrow is the Source Ledger account holding the deposits.
	Escrow common.Address
	// Liquidity is the Destination Ledger account tickets are paid out from.
	Liquidity common.Address

	MaxAuthDelay       Duration
	SafetyDelay        Duration
	TrustedNonceWindow bool

	DataDir string
	// LogLevel is one of trace, debug, info, warn, error, crit.
	LogLevel string
	// WatchtowerCacheSize is the number of checked batches the watchtower remembers.
	WatchtowerCacheSize int
}

// Defaults contains the default settings.
var Defaults = Config{
	MaxAuthDelay:        Duration(source.DefaultMaxAuthDelay),
	SafetyDelay:         Duration(source.DefaultSafetyDelay),
	DataDir:             "data",
	LogLevel:            "info",
	WatchtowerCacheSize: 1024,
}

// Load reads the TOML file into cfg, fields missing from the file keep
// their current values.
func Load(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func (c *Config) Marshal() ([]byte, error) {
	return tomlSettings.Marshal(c)
}

func (c *Config) Validate() error {
	if time.Duration(c.MaxAuthDelay) < time.Second {
		return fmt.Errorf("MaxAuthDelay must be at least one second, got %s", time.Duration(c.MaxAuthDelay))
	}
	if c.SafetyDelay <= c.MaxAuthDelay {
		return fmt.Errorf("SafetyDelay (%s) must be greater than MaxAuthDelay (%s)", time.Duration(c.SafetyDelay), time.Duration(c.MaxAuthDelay))
	}
	if c.Operator != (common.Address{}) && c.Operator == c.Escrow {
		return fmt.Errorf("Escrow must differ from Operator (%s)", c.Operator)
	}
	if c.WatchtowerCacheSize <= 0 {
		return fmt.Errorf("WatchtowerCacheSize must be positive, got %d", c.WatchtowerCacheSize)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SourceOptions returns the Source Ledger options of the configuration.
func (c *Config) SourceOptions() []source.Option {
	opts := []source.Option{
		source.WithMaxAuthDelay(time.Duration(c.MaxAuthDelay)),
		source.WithSafetyDelay(time.Duration(c.SafetyDelay)),
	}
	if c.TrustedNonceWindow {
		opts = append(opts, source.WithTrustedNonceWindow())
	}
	return opts
}

// WatchtowerOptions returns the watchtower options of the configuration.
func (c *Config) WatchtowerOptions() []watchtower.Option {
	return []watchtower.Option{
		watchtower.WithMaxAuthDelay(time.Duration(c.MaxAuthDelay)),
		watchtower.WithCacheSize(c.WatchtowerCacheSize),
	}
}

// ParseLogLevel converts the name of the log level to slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info", "":
		return log.LevelInfo, nil
	case "warn":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return log.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
