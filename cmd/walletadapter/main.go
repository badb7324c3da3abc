package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/kaigoh/walletadapter/internal/walletadapter"
	walletinterfaces "github.com/kaigoh/walletadapter/wallet_interfaces"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "walletadapter",
		Usage: "run and operate currency wallet adapters",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yml",
				Usage:   "path to the YAML config",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "serve status endpoints and run wallet maintenance",
				Action: runServer,
			},
			{
				Name:  "schema",
				Usage: "print a backend's settings fields as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "backend", Required: true},
				},
				Action: printSchema,
			},
			{
				Name:  "balance",
				Usage: "print a currency's hot wallet balance",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "currency", Required: true},
				},
				Action: printBalance,
			},
			{
				Name:  "deposit-address",
				Usage: "issue a fresh deposit address",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "currency", Required: true},
					&cli.StringFlag{Name: "user", Usage: "user the address is issued for"},
				},
				Action: issueDepositAddress,
			},
			{
				Name:  "withdraw",
				Usage: "execute a single withdrawal",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "currency", Required: true},
					&cli.StringFlag{Name: "to", Required: true, Usage: "destination address"},
					&cli.StringFlag{Name: "amount", Required: true, Usage: "amount in atomic units"},
					&cli.StringFlag{Name: "extra", Usage: "destination tag or payment id"},
					&cli.StringFlag{Name: "user"},
				},
				Action: withdraw,
			},
		},
	}
}

func runServer(ctx context.Context, cmd *cli.Command) error {
	// We DON'T want to be running as root...
	if os.Getuid() == 0 {
		return errors.New("don't run walletadapter as root")
	}
	return walletadapter.Run(ctx, cmd.String("config"))
}

func printSchema(_ context.Context, cmd *cli.Command) error {
	name := cmd.String("backend")
	backend, ok := walletadapter.DefaultBackends().Get(name)
	if !ok {
		return fmt.Errorf("unknown backend %q", name)
	}
	return printJSON(backend.Schema)
}

func printBalance(ctx context.Context, cmd *cli.Command) error {
	app, err := walletadapter.Open(cmd.String("config"))
	if err != nil {
		return err
	}
	symbol := cmd.String("currency")
	balances, err := app.Dispatcher.Balances(ctx, symbol)
	if err != nil {
		return err
	}
	currency, _ := app.Registry.Currency(symbol)
	_, err = fmt.Fprintf(os.Stdout, "%s total=%s locked=%s\n",
		currency.Symbol, currency.Format(balances.Total), currency.Format(balances.Locked))
	return err
}

func issueDepositAddress(ctx context.Context, cmd *cli.Command) error {
	app, err := walletadapter.Open(cmd.String("config"))
	if err != nil {
		return err
	}
	addr, err := app.Dispatcher.DepositAddress(ctx, cmd.String("currency"), cmd.String("user"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, addr.Address)
	return err
}

func withdraw(ctx context.Context, cmd *cli.Command) error {
	amount, err := strconv.ParseUint(strings.TrimSpace(cmd.String("amount")), 10, 64)
	if err != nil {
		return fmt.Errorf("amount must be a whole number of atomic units: %w", err)
	}
	app, err := walletadapter.Open(cmd.String("config"))
	if err != nil {
		return err
	}
	symbol := cmd.String("currency")
	w, err := app.Dispatcher.NewWithdrawal(symbol, walletinterfaces.Amount(amount),
		cmd.String("to"), cmd.String("extra"), cmd.String("user"))
	if err != nil {
		return err
	}

	// The first sweep establishes reachability; adapters start locked.
	app.Scheduler().Sweep(ctx)

	_, err = app.Dispatcher.Execute(ctx, symbol, []*walletinterfaces.Withdrawal{w})
	if printErr := printJSON(w); printErr != nil {
		return printErr
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
