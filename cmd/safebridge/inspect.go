package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/alphabill-org/alphabill-bridge-base/store"
	"github.com/alphabill-org/alphabill-bridge-base/types"
)

var inspectCommand = cli.Command{
	Action:      inspect,
	Name:        "inspect",
	Usage:       "Print the ledger state stored in the data directory",
	ArgsUsage:   "",
	Category:    "LEDGER COMMANDS",
	Description: `The inspect command prints the token pairs, tickets and batches of the stored ledger state.`,
}

func inspect(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	cs, err := db.Load()
	if err != nil {
		return err
	}
	return printState(os.Stdout, cs)
}

func printState(w io.Writer, cs *types.Changeset) error {
	if cs == nil {
		_, err := fmt.Fprintln(w, "ledger state is empty")
		return err
	}
	if _, err := fmt.Fprintf(w, "version: %d\nstate hash: %X\ntimestamp: %d\n\n", cs.Version, cs.StateHash, cs.Timestamp); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Source token", "Destination token"})
	for _, p := range cs.TokenPairs {
		table.Append([]string{p.SourceToken.Hex(), p.DestinationToken.Hex()})
	}
	table.Render()

	table = tablewriter.NewWriter(w)
	table.SetHeader([]string{"Nonce", "State", "Value", "Recipient", "Depositor", "Created"})
	for _, t := range cs.Tickets {
		table.Append([]string{
			strconv.FormatUint(t.Nonce, 10),
			t.State.String(),
			strconv.FormatUint(t.Ticket.Value, 10),
			t.Ticket.Recipient.Hex(),
			t.Depositor.Hex(),
			strconv.FormatUint(t.CreatedAt, 10),
		})
	}
	table.Render()

	table = tablewriter.NewWriter(w)
	table.SetHeader([]string{"Range", "Status", "Authorized", "Signed"})
	for _, b := range cs.Batches {
		table.Append([]string{
			b.Range().String(),
			b.Status.String(),
			strconv.FormatUint(b.AuthorizedAt, 10),
			strconv.FormatBool(b.Signature != nil),
		})
	}
	table.Render()
	return nil
}
