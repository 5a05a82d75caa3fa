package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "investlab/internal/cli"
	"investlab/internal/config"
	"investlab/internal/history"
	"investlab/internal/market"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "invest",
		Short:        "Investment lab: simulate instruments and trade against a running engine",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "engine API base URL")

	root.AddCommand(
		newSimulateCmd(),
		newCompoundCmd(),
		newDashCmd(&apiBase),
		newMarketCmd(&apiBase),
		newBuyCmd(&apiBase),
		newSellCmd(&apiBase),
		newTransactionsCmd(&apiBase),
		newTickCmd(&apiBase),
		newResetCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newSimulateCmd() *cobra.Command {
	var (
		days       int
		seed       int64
		volatility string
	)
	cmd := &cobra.Command{
		Use:   "simulate [symbol]",
		Short: "Project a catalog instrument's price path offline",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := symbolFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			def, ok := catalogDefinition(symbol)
			if !ok {
				return fmt.Errorf("%w: %s", market.ErrUnknownInstrument, symbol)
			}
			if days < 1 {
				return fmt.Errorf("days must be >= 1")
			}
			if !cmd.Flags().Changed("seed") {
				seed = time.Now().UnixNano()
			}
			prices, err := history.Simulate(def, market.DynamicsFor(volatility), days, seed)
			if err != nil {
				return err
			}
			renderSimulation(def, prices, seed)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "number of simulated days")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	cmd.Flags().StringVar(&volatility, "volatility", "mor", "calm, mor or wild")
	return cmd
}

func newCompoundCmd() *cobra.Command {
	calc := &cobra.Command{
		Use:   "compound",
		Short: "Compound interest calculator",
	}

	var (
		principal float64
		rate      float64
		periods   int
		years     float64
	)
	fv := &cobra.Command{
		Use:   "fv",
		Short: "Future value of a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if principal < 0 || years < 0 {
				return fmt.Errorf("principal and years must be >= 0")
			}
			renderFutureValue(principal, rate, periods, years)
			return nil
		},
	}
	fv.Flags().Float64Var(&principal, "principal", 1000, "starting amount")
	fv.Flags().Float64Var(&rate, "rate", 0.07, "annual rate as a fraction")
	fv.Flags().IntVar(&periods, "periods", 12, "compounding periods per year")
	fv.Flags().Float64Var(&years, "years", 10, "years invested")

	var doubleRate float64
	double := &cobra.Command{
		Use:   "double",
		Short: "Years to double at a rate, exact and by the rule of 72",
		RunE: func(cmd *cobra.Command, args []string) error {
			renderDoubling(doubleRate)
			return nil
		},
	}
	double.Flags().Float64Var(&doubleRate, "rate", 0.07, "annual rate as a fraction")

	var (
		advPrincipal float64
		advRate      float64
		advPeriods   int
		advYears     float64
	)
	advantage := &cobra.Command{
		Use:   "advantage",
		Short: "Compare compound against simple interest",
		RunE: func(cmd *cobra.Command, args []string) error {
			if advPrincipal < 0 || advYears < 0 {
				return fmt.Errorf("principal and years must be >= 0")
			}
			renderFutureValue(advPrincipal, advRate, advPeriods, advYears)
			return nil
		},
	}
	advantage.Flags().Float64Var(&advPrincipal, "principal", 1000, "starting amount")
	advantage.Flags().Float64Var(&advRate, "rate", 0.07, "annual rate as a fraction")
	advantage.Flags().IntVar(&advPeriods, "periods", 365, "compounding periods per year")
	advantage.Flags().Float64Var(&advYears, "years", 30, "years invested")

	calc.AddCommand(fv, double, advantage)
	return calc
}

func newDashCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Show cash, positions and lifetime stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Dashboard(ctx)
			if err != nil {
				return err
			}
			renderDashboard(out)
			return nil
		},
	}
}

func newMarketCmd(apiBase *string) *cobra.Command {
	var window int
	cmd := &cobra.Command{
		Use:     "market [symbol]",
		Short:   "List instruments or inspect one with its recent prices",
		Aliases: []string{"quotes"},
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)

			if len(args) == 0 {
				quotes, err := client.Instruments(ctx)
				if err != nil {
					return err
				}
				renderQuotes(quotes)
				return nil
			}
			symbol, err := symbolFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			detail, err := client.Instrument(ctx, symbol, window)
			if err != nil {
				return err
			}
			renderInstrumentDetail(detail)
			return nil
		},
	}
	cmd.Flags().IntVar(&window, "window", 30, "number of recent prices to show")
	return cmd
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy [symbol] [shares]",
		Short: "Buy whole shares",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := symbolFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			shares, err := int64FromArgOrPrompt(args, 1, "Shares to buy")
			if err != nil {
				return err
			}
			return placeOrderCommand(cmd, apiBase, "buy", symbol, shares)
		},
	}
}

func newSellCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sell [symbol] [shares|all]",
		Short: "Sell shares, or the whole position with all",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol, err := symbolFromArgsOrPrompt(args)
			if err != nil {
				return err
			}
			if len(args) > 1 && strings.EqualFold(strings.TrimSpace(args[1]), "all") {
				return placeOrderCommand(cmd, apiBase, "sell_all", symbol, 0)
			}
			shares, err := int64FromArgOrPrompt(args, 1, "Shares to sell")
			if err != nil {
				return err
			}
			return placeOrderCommand(cmd, apiBase, "sell", symbol, shares)
		},
	}
}

func placeOrderCommand(cmd *cobra.Command, apiBase *string, side, symbol string, shares int64) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	out, err := newClient(apiBase).PlaceOrder(ctx, symbol, side, uuid.NewString(), shares)
	if err != nil {
		return err
	}
	renderTradeResult(out)
	return nil
}

func newTransactionsCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:     "txs",
		Short:   "Show the sell log",
		Aliases: []string{"transactions"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Transactions(ctx)
			if err != nil {
				return err
			}
			renderTransactions(out)
			return nil
		},
	}
}

func newTickCmd(apiBase *string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Advance the market by one or more days",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be >= 1")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			var day int
			for i := 0; i < count; i++ {
				var err error
				if day, err = client.Tick(ctx); err != nil {
					return err
				}
			}
			printSuccess(fmt.Sprintf("Market advanced to day %d.", day))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "days to advance")
	return cmd
}

func newResetCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear positions, the sell log and lifetime stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Reset(ctx)
			if err != nil {
				return err
			}
			printSuccess("Investments reset.")
			renderDashboard(out)
			return nil
		},
	}
}

func catalogDefinition(symbol string) (market.Definition, bool) {
	symbol = market.NormalizeSymbol(symbol)
	for _, def := range market.DefaultCatalog() {
		if def.Symbol == symbol {
			return def, true
		}
	}
	return market.Definition{}, false
}

func symbolFromArgsOrPrompt(args []string) (string, error) {
	if len(args) > 0 {
		symbol := market.NormalizeSymbol(args[0])
		if err := market.ValidateSymbol(symbol); err != nil {
			return "", err
		}
		return symbol, nil
	}
	return promptSymbol("Symbol")
}

func int64FromArgOrPrompt(args []string, idx int, label string) (int64, error) {
	if len(args) > idx {
		v, err := strconv.ParseInt(strings.TrimSpace(args[idx]), 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid %s", strings.ToLower(label))
		}
		return v, nil
	}
	return promptInt64(label, 1)
}
