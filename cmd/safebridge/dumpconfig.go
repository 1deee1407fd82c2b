package main

import (
	"io"
	"os"

	"gopkg.in/urfave/cli.v1"
)

var dumpConfigCommand = cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Show configuration values",
	ArgsUsage:   "[dumpfile]",
	Category:    "MISCELLANEOUS COMMANDS",
	Description: `The dumpconfig command shows configuration values, when file name is given the configuration is written into it.`,
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := cfg.Marshal()
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = io.WriteString(dump, string(out))
	return err
}
