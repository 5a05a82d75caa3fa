package main

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"investlab/internal/compound"
	"investlab/internal/history"
	"investlab/internal/invest"
	"investlab/internal/ledger"
	"investlab/internal/market"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptInt64(label string, min int64) (int64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

func promptSymbol(label string) (string, error) {
	for {
		symbol, err := promptRequired(label)
		if err != nil {
			return "", err
		}
		symbol = market.NormalizeSymbol(symbol)
		if err := market.ValidateSymbol(symbol); err != nil {
			printWarn(err.Error())
			continue
		}
		return symbol, nil
	}
}

func renderDashboard(d invest.Dashboard) {
	accent.Printf("\n== DASHBOARD (Day %d) ==\n", d.Tick)
	fmt.Printf("Cash:               %s\n", formatMoney(d.Cash))
	fmt.Printf("Portfolio Value:    %s\n", formatMoney(d.PortfolioValue))
	fmt.Printf("Portfolio Cost:     %s\n", formatMoney(d.PortfolioPrincipal))
	fmt.Printf("Open P/L:           %s\n", colorizeMoney(d.PortfolioGain))
	fmt.Printf("Net Worth:          %s\n", formatMoney(d.NetWorth))

	fmt.Println()
	accent.Println("Positions")
	if len(d.Positions) == 0 {
		printInfo("No open positions yet.")
	} else {
		fmt.Printf("%-8s %-22s %-6s %8s %12s %12s %9s %14s %14s\n", "SYMBOL", "NAME", "TYPE", "QTY", "BUY", "NOW", "DELTA%", "VALUE", "P/L")
		for _, p := range d.Positions {
			fmt.Printf("%-8s %-22s %-6s %8d %12s %12s %9s %14s %14s\n",
				p.Symbol,
				truncate(p.Name, 22),
				p.Category,
				p.Shares,
				formatMoney(p.AvgPrice),
				formatMoney(p.CurrentPrice),
				colorizePercent(percentChange(p.AvgPrice, p.CurrentPrice)),
				formatMoney(p.Value),
				colorizeMoney(p.UnrealizedGain),
			)
		}
	}

	fmt.Println()
	accent.Println("Lifetime")
	fmt.Printf("Investments Opened: %d\n", d.Lifetime.InvestmentsOpened)
	fmt.Printf("Principal Invested: %s\n", formatMoney(d.Lifetime.PrincipalInvested))
	fmt.Printf("Total Gain:         %s\n", colorizeMoney(d.Lifetime.TotalGain))
	fmt.Printf("Peak Value:         %s\n", formatMoney(d.Lifetime.PeakValue))
	fmt.Println()
}

func renderQuotes(quotes []market.Quote) {
	accent.Println("\n== MARKET ==")
	if len(quotes) == 0 {
		printInfo("No instruments listed.")
		return
	}
	fmt.Printf("%-8s %-24s %-6s %-7s %8s %12s %12s %9s\n", "SYMBOL", "NAME", "TYPE", "RISK", "RATE", "PRICE", "TREND", "VS BASE")
	for _, q := range quotes {
		fmt.Printf("%-8s %-24s %-6s %-7s %7.2f%% %12.2f %12.2f %9s\n",
			q.Symbol,
			truncate(q.Name, 24),
			q.Category,
			q.Risk,
			q.AnnualRate*100,
			q.Price,
			q.TrendPrice,
			colorizePercent(pct(q.BasePrice, q.Price)),
		)
	}
	fmt.Println()
}

func renderInstrumentDetail(d invest.InstrumentDetail) {
	accent.Printf("\n== %s (%s) ==\n", d.Symbol, d.Name)
	fmt.Printf("Category:      %s (%s risk)\n", d.Category, d.Risk)
	fmt.Printf("Annual Rate:   %.2f%%\n", d.AnnualRate*100)
	fmt.Printf("Price:         %.2f\n", d.Price)
	fmt.Printf("Trend Price:   %.2f (day %d)\n", d.TrendPrice, d.DaysElapsed)
	fmt.Printf("Since Listing: %s\n", colorizePercent(pct(d.BasePrice, d.Price)))
	renderSeries(d.Series)
}

func renderSeries(series []history.PricePoint) {
	if len(series) == 0 {
		return
	}
	prices := make([]float64, len(series))
	for i, p := range series {
		prices[i] = p.Price
	}
	fmt.Println()
	accent.Printf("Last %d days\n", len(series))
	fmt.Println(sparkline(prices))
	if len(prices) > 1 {
		fmt.Printf("Trend (window): %s\n", colorizePercent(pct(prices[0], prices[len(prices)-1])))
	}
	fmt.Println()
}

func renderSimulation(def market.Definition, prices []float64, seed int64) {
	accent.Printf("\n== SIMULATION %s (%d days, seed %d) ==\n", def.Symbol, len(prices), seed)
	fmt.Printf("Start:     %.2f\n", def.BasePrice)
	if len(prices) == 0 {
		fmt.Println()
		return
	}
	last := prices[len(prices)-1]
	lo, hi := prices[0], prices[0]
	for _, p := range prices {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	fmt.Printf("End:       %.2f (%s)\n", last, colorizePercent(pct(def.BasePrice, last)))
	fmt.Printf("Trend End: %.2f\n", def.ExpectedPrice(len(prices)))
	fmt.Printf("Range:     %.2f .. %.2f\n", lo, hi)
	fmt.Println(sparkline(prices))
	fmt.Println()
}

func renderTradeResult(out invest.TradeResult) {
	accent.Printf("\n== ORDER %s ==\n", strings.ToUpper(string(out.Side)))
	fmt.Printf("Symbol:   %s\n", out.Symbol)
	fmt.Printf("Shares:   %d\n", out.Shares)
	fmt.Printf("Price:    %s\n", formatMoney(out.Price))
	fmt.Printf("Notional: %s\n", formatMoney(out.Notional))
	if out.Sell != nil {
		fmt.Printf("Gain:     %s (%s)\n", colorizeMoney(out.Sell.Gain), colorizePercent(out.Sell.Return.InexactFloat64()*100))
	}
	fmt.Printf("Holding:  %d shares\n", out.Position.Shares)
	fmt.Printf("Balance:  %s\n", formatMoney(out.Balance))
	fmt.Println()
}

func renderTransactions(records []ledger.SellRecord) {
	accent.Println("\n== SELL LOG ==")
	if len(records) == 0 {
		printInfo("Nothing sold yet.")
		return
	}
	fmt.Printf("%-6s %-8s %-22s %8s %12s %12s %14s %9s\n", "DAY", "SYMBOL", "NAME", "QTY", "COST", "SOLD AT", "GAIN", "RETURN")
	for _, r := range records {
		fmt.Printf("%-6d %-8s %-22s %8d %12s %12s %14s %9s\n",
			r.Tick,
			r.Symbol,
			truncate(r.Name, 22),
			r.SharesSold,
			formatMoney(r.CostBasis),
			formatMoney(r.SellPrice),
			colorizeMoney(r.Gain),
			colorizePercent(r.Return.InexactFloat64()*100),
		)
	}
	fmt.Println()
}

func renderFutureValue(principal, rate float64, periods int, years float64) {
	accent.Println("\n== COMPOUND GROWTH ==")
	fmt.Printf("Principal:       %.2f\n", principal)
	fmt.Printf("Rate:            %.2f%% x %d/yr for %.2f years\n", rate*100, periods, years)
	fmt.Printf("Future Value:    %.2f\n", compound.FutureValue(principal, rate, periods, years))
	fmt.Printf("Interest Earned: %.2f\n", compound.TotalInterestEarned(principal, rate, periods, years))
	fmt.Printf("Simple Value:    %.2f\n", compound.SimpleValue(principal, rate, years))
	fmt.Printf("Advantage:       %.2f\n", compound.CompoundingAdvantage(principal, rate, periods, years))
	fmt.Println()
}

func renderDoubling(rate float64) {
	accent.Println("\n== DOUBLING TIME ==")
	exact := compound.YearsToDouble(rate)
	if math.IsInf(exact, 1) {
		printWarn("Money never doubles at a non-positive rate.")
		return
	}
	fmt.Printf("Exact:       %.2f years\n", exact)
	fmt.Printf("Rule of 72:  %.2f years\n", compound.RuleOf72(rate))
	fmt.Println()
}

func colorizeMoney(v decimal.Decimal) string {
	text := formatMoney(v)
	switch v.Sign() {
	case 1:
		return success.Sprint("+" + text)
	case -1:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func formatMoney(v decimal.Decimal) string {
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	fixed := v.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + fixed
	}
	return fmt.Sprintf("%s%s.%s", sign, comma(n), frac)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func percentChange(from, to decimal.Decimal) float64 {
	if from.IsZero() {
		return 0
	}
	return to.Sub(from).Div(from).InexactFloat64() * 100
}

func pct(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// sparkline draws at most 60 columns, sampling evenly when prices is longer.
func sparkline(prices []float64) string {
	if len(prices) == 0 {
		return ""
	}
	const width = 60
	if len(prices) > width {
		sampled := make([]float64, width)
		for i := range sampled {
			sampled[i] = prices[i*(len(prices)-1)/(width-1)]
		}
		prices = sampled
	}
	lo, hi := prices[0], prices[0]
	for _, p := range prices {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	var b strings.Builder
	for _, p := range prices {
		idx := 0
		if hi > lo {
			idx = int((p - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		b.WriteRune(sparkTicks[idx])
	}
	line := b.String()
	if prices[len(prices)-1] >= prices[0] {
		return success.Sprint(line)
	}
	return danger.Sprint(line)
}
