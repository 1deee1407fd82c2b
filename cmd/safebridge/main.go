// safebridge is the command line tool of the bridge Source Ledger: it manages
// the configuration and the persisted ledger state.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/urfave/cli.v1"

	"github.com/alphabill-org/alphabill-bridge-base/config"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the ledger database",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "loglevel",
		Usage: "Logging level: trace, debug, info, warn, error, crit",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "safebridge"
	app.Usage = "the Source Ledger tool of the operator bridge"
	app.Flags = []cli.Flag{configFileFlag, dataDirFlag, logLevelFlag}
	app.Commands = []cli.Command{
		dumpConfigCommand,
		initCommand,
		inspectCommand,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// makeConfig loads the configuration file and applies the global flags.
func makeConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.Defaults
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := config.Load(file, &cfg); err != nil {
			return nil, err
		}
	}
	if ctx.GlobalIsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.GlobalString(dataDirFlag.Name)
	}
	if ctx.GlobalIsSet(logLevelFlag.Name) {
		cfg.LogLevel = ctx.GlobalString(logLevelFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lvl, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, false)))
	return &cfg, nil
}
