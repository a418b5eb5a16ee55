package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/defistate/liquidator-go/protocols/poolregistry"
	"github.com/defistate/liquidator-go/protocols/token"
	"github.com/defistate/liquidator-go/route"
	"github.com/defistate/liquidator-go/swapper"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

func routeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "route TOKEN_IN TOKEN_OUT [AMOUNT]",
		Short: "Resolves a route and quotes AMOUNT through it",
		Long:  "Tokens are configured symbols or hex addresses. AMOUNT is in whole tokens and defaults to 1.",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(_ *cobra.Command, args []string) error {
			app, err := loadApp(load)
			if err != nil {
				return err
			}
			amount := "1"
			if len(args) == 3 {
				amount = args[2]
			}
			return runRoute(os.Stdout, app, args[0], args[1], amount)
		},
	}
}

func liquidateCommand(load configLoader) *cobra.Command {
	var (
		caller    string
		tolerance uint64
	)
	c := &cobra.Command{
		Use:   "liquidate TOKEN_IN TOKEN_OUT AMOUNT",
		Short: "Dry-runs a liquidation against the configured balances",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			if !common.IsHexAddress(caller) {
				return fmt.Errorf("invalid --caller %q", caller)
			}
			app, err := loadApp(load)
			if err != nil {
				return err
			}
			return runLiquidate(os.Stdout, app, common.HexToAddress(caller), args[0], args[1], args[2], tolerance)
		},
	}
	c.Flags().StringVar(&caller, "caller", "", "account whose balance is liquidated")
	c.Flags().Uint64Var(&tolerance, "slippage", swapper.PriceImpactDenominator, "per-hop price impact tolerance")
	return c
}

func loadApp(load configLoader) (*App, error) {
	cfg, err := load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return nil, err
	}
	return bootstrap(cfg, logger, nil)
}

type pairRequest struct {
	in, out token.TokenView
	amount  *uint256.Int
}

func resolvePair(app *App, tokenIn, tokenOut, amount string) (pairRequest, error) {
	in, err := app.Tokens.Resolve(tokenIn)
	if err != nil {
		return pairRequest{}, err
	}
	out, err := app.Tokens.Resolve(tokenOut)
	if err != nil {
		return pairRequest{}, err
	}
	amt, err := in.ParseAmount(amount)
	if err != nil {
		return pairRequest{}, err
	}
	return pairRequest{in: in, out: out, amount: amt}, nil
}

func runRoute(w io.Writer, app *App, tokenIn, tokenOut, amount string) error {
	req, err := resolvePair(app, tokenIn, tokenOut, amount)
	if err != nil {
		return err
	}

	r, err := app.Liquidator.BuildRoute(req.in.Address, req.out.Address)
	if err != nil {
		fmt.Fprintf(w, "%s[NO ROUTE]%s %s\n", Red, Reset, err)
		return nil
	}
	printRoute(w, app, r)

	q, err := app.Liquidator.QuoteRoute(r, req.amount)
	if err != nil {
		fmt.Fprintf(w, "%s[QUOTE FAILED]%s %s\n", Red, Reset, err)
		return nil
	}
	fmt.Fprintf(w, "\n%sQUOTE   ::%s %s %s -> %s%s %s%s | impact %s\n",
		Green, Reset,
		req.in.FormatAmount(req.amount), app.Tokens.Label(req.in.Address),
		Bold, req.out.FormatAmount(q.AmountOut), app.Tokens.Label(req.out.Address), Reset,
		formatImpact(q.PriceImpact),
	)
	return nil
}

func runLiquidate(w io.Writer, app *App, caller common.Address, tokenIn, tokenOut, amount string, tolerance uint64) error {
	req, err := resolvePair(app, tokenIn, tokenOut, amount)
	if err != nil {
		return err
	}

	out, err := app.Liquidator.Liquidate(caller, req.in.Address, req.out.Address, req.amount, tolerance)
	if err != nil {
		fmt.Fprintf(w, "%s[REVERTED]%s %s\n", Red, Reset, err)
		return err
	}
	fmt.Fprintf(w, "%sFILLED  ::%s %s %s -> %s%s %s%s\n",
		Green, Reset,
		req.in.FormatAmount(req.amount), app.Tokens.Label(req.in.Address),
		Bold, req.out.FormatAmount(out), app.Tokens.Label(req.out.Address), Reset,
	)

	for _, t := range []token.TokenView{req.in, req.out} {
		bal, err := app.Ledger.BalanceOf(t.Address, caller)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %sbalance%s %s %s\n", Gray, Reset, t.FormatAmount(bal), app.Tokens.Label(t.Address))
	}
	return nil
}

func printRoute(w io.Writer, app *App, r route.Route) {
	fmt.Fprintf(w, "\n%sROUTE   ::%s %d hop(s)\n", Bold+Cyan, Reset, len(r))

	tw := tabwriter.NewWriter(w, 0, 0, 4, ' ', 0)
	fmt.Fprintln(tw, "#\tTOKEN IN\tTOKEN OUT\tPOOL\tSWAPPER\t")
	fmt.Fprintln(tw, "-\t--------\t---------\t----\t-------\t")
	for i, e := range r {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
			i+1, app.Tokens.Label(e.TokenIn), app.Tokens.Label(e.TokenOut), poolLabel(e.Pool), e.Swapper.Hex())
	}
	tw.Flush()
}

// poolLabel shows address-shaped keys as the pool address.
func poolLabel(key poolregistry.PoolKey) string {
	if addr, err := key.ToAddress(); err == nil {
		return addr.Hex()
	}
	return key.String()
}

// formatImpact renders an impact in PriceImpactDenominator units as a
// percentage with three decimals.
func formatImpact(impact uint64) string {
	pct := impact * 100
	return fmt.Sprintf("%d.%03d%%", pct/swapper.PriceImpactDenominator, pct%swapper.PriceImpactDenominator/100)
}
