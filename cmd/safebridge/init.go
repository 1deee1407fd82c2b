package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/urfave/cli.v1"

	"github.com/alphabill-org/alphabill-bridge-base/store"
	"github.com/alphabill-org/alphabill-bridge-base/token"
	"github.com/alphabill-org/alphabill-bridge-base/txsystem/source"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

var (
	tokenPairFlag = cli.StringSliceFlag{
		Name:  "pair",
		Usage: "Token pair to register as <source token>:<destination token>, may be repeated",
	}

	initCommand = cli.Command{
		Action:    initLedger,
		Name:      "init",
		Usage:     "Create the ledger database and register token pairs",
		ArgsUsage: "",
		Flags:     []cli.Flag{tokenPairFlag},
		Category:  "LEDGER COMMANDS",
		Description: `The init command creates the Source Ledger database in the data directory
(or verifies the existing one) and registers the token pairs which are not
registered yet.`,
	}
)

func initLedger(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	if cfg.Operator == (common.Address{}) {
		return errors.New("operator address must be configured")
	}
	if cfg.Escrow == (common.Address{}) {
		return errors.New("escrow address must be configured")
	}
	pairs := make([]*types.TokenPair, 0, len(ctx.StringSlice(tokenPairFlag.Name)))
	for _, s := range ctx.StringSlice(tokenPairFlag.Name) {
		p, err := parseTokenPair(s)
		if err != nil {
			return err
		}
		pairs = append(pairs, p)
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	// registration moves no funds so the bank is not persisted
	opts := append(cfg.SourceOptions(), source.WithStore(db))
	ledger, err := source.NewLedger(cfg.Operator, cfg.Escrow, token.NewBank(), opts...)
	if err != nil {
		return err
	}

	var missing []*types.TokenPair
	for _, p := range pairs {
		existing, err := ledger.TokenPair(p.SourceToken)
		switch {
		case err != nil:
			missing = append(missing, p)
		case existing.DestinationToken != p.DestinationToken:
			return fmt.Errorf("%w: %s is paired with %s", types.ErrTokenPairExists, p.SourceToken, existing.DestinationToken)
		}
	}
	if len(missing) > 0 {
		if err := ledger.RegisterTokenPairs(cfg.Operator, missing...); err != nil {
			return err
		}
	}
	log.Info("ledger initialized", "path", db.Path(), "version", ledger.Version(), "token pairs", len(ledger.TokenPairs()))
	return nil
}

func parseTokenPair(s string) (*types.TokenPair, error) {
	src, dst, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("invalid token pair %q, expected <source token>:<destination token>", s)
	}
	if !common.IsHexAddress(src) || !common.IsHexAddress(dst) {
		return nil, fmt.Errorf("invalid token pair %q, tokens must be hex addresses", s)
	}
	return &types.TokenPair{
		SourceToken:      common.HexToAddress(src),
		DestinationToken: common.HexToAddress(dst),
	}, nil
}
