package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"

	"networth/internal/core"
	"networth/internal/vehicle"
)

func commands(env *environment) []subcommands.Command {
	return []subcommands.Command{
		&summaryCmd{env: env},
		&monthlyCmd{env: env},
		&unclassifiedCmd{env: env},
		&vehiclesCmd{env: env},
	}
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return subcommands.ExitFailure
}

type summaryCmd struct {
	env  *environment
	json bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print net worth and latest-month allocation" }
func (*summaryCmd) Usage() string {
	return `networth-report summary [-json]

  Prints the total net worth, its month-on-month and year-to-date change,
  and each asset type's value and share.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "print JSON instead of a table")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	d, err := c.env.Dashboard(ctx)
	if err != nil {
		return fail(err)
	}
	alloc, _, err := d.Allocation(ctx)
	if err != nil {
		return fail(err)
	}
	if c.json {
		if err := c.env.printJSON(alloc); err != nil {
			return fail(err)
		}
		return subcommands.ExitSuccess
	}

	cur := c.env.Currency()
	w := c.env.table()
	fmt.Fprintf(w, "Net worth (%s)\t%s\tMoM %s\tYTD %s\n", alloc.Refs.Latest.Label(),
		core.FormatFloat(alloc.Total.Current, cur), core.FormatPct(alloc.Total.MoM), core.FormatPct(alloc.Total.YTD))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Asset type\tValue\tShare\tMoM\tYTD")
	for _, t := range alloc.Types {
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\t%s\n", t.AssetType,
			core.FormatFloat(t.Current, cur), t.Allocation*100, core.FormatPct(t.MoM), core.FormatPct(t.YTD))
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type monthlyCmd struct {
	env       *environment
	assetType string
	last      int
}

func (*monthlyCmd) Name() string     { return "monthly" }
func (*monthlyCmd) Synopsis() string { return "print the monthly performance table" }
func (*monthlyCmd) Usage() string {
	return `networth-report monthly [-type <asset type>] [-n <months>]

  Prints value, monthly and cumulative return and drawdown per month, for
  the whole ledger or one asset type.
`
}

func (c *monthlyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.assetType, "type", "", "asset type to report on (default: whole ledger)")
	f.IntVar(&c.last, "n", 12, "number of most recent months to print, 0 for all")
}

func (c *monthlyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var t core.AssetType
	if c.assetType != "" {
		var err error
		if t, err = core.ParseAssetType(c.assetType); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	d, err := c.env.Dashboard(ctx)
	if err != nil {
		return fail(err)
	}
	rows, err := d.Performance(ctx, t)
	if err != nil {
		return fail(err)
	}
	if c.last > 0 && len(rows) > c.last {
		rows = rows[len(rows)-c.last:]
	}

	cur := c.env.Currency()
	w := c.env.table()
	fmt.Fprintln(w, "Month\tValue\tReturn\tCumulative\tDrawdown")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f%%\n", r.Month.Short(), core.FormatFloat(r.Value, cur),
			core.FormatPct(r.Return), core.FormatPct(r.Cumulative), r.Drawdown*100)
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}

type unclassifiedCmd struct {
	env *environment
}

func (*unclassifiedCmd) Name() string     { return "unclassified" }
func (*unclassifiedCmd) Synopsis() string { return "list holdings no classification rule matched" }
func (*unclassifiedCmd) Usage() string {
	return `networth-report unclassified

  Prints the classification rate and every platform/asset pair no rule
  matched. Exits non-zero when any holding is unclassified.
`
}

func (*unclassifiedCmd) SetFlags(*flag.FlagSet) {}

func (c *unclassifiedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	d, err := c.env.Dashboard(ctx)
	if err != nil {
		return fail(err)
	}
	view, err := d.Classification(ctx)
	if err != nil {
		return fail(err)
	}
	rep := view.Report

	w := c.env.table()
	fmt.Fprintf(w, "Classified\t%d of %d rows (%.1f%%)\n", rep.Classified, rep.Total, rep.Rate)
	if len(rep.Unmatched) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Platform\tAsset")
		for _, h := range rep.Unmatched {
			fmt.Fprintf(w, "%s\t%s\n", h.Platform, h.Asset)
		}
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	for _, r := range rep.Recommendations {
		fmt.Fprintf(c.env.out, "- %s\n", r)
	}
	if rep.Unclassified > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type vehiclesCmd struct {
	env *environment
}

func (*vehiclesCmd) Name() string     { return "vehicles" }
func (*vehiclesCmd) Synopsis() string { return "print equity and running costs per car" }
func (*vehiclesCmd) Usage() string {
	return `networth-report vehicles

  Prints each car's valuation, outstanding finance and equity, followed by
  the fleet totals and key dates that need attention.
`
}

func (*vehiclesCmd) SetFlags(*flag.FlagSet) {}

func (c *vehiclesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	d, err := c.env.Dashboard(ctx)
	if err != nil {
		return fail(err)
	}
	fleet, err := d.Fleet(ctx)
	if err != nil {
		return fail(err)
	}

	cur := c.env.Currency()
	w := c.env.table()
	fmt.Fprintln(w, "Car\tValuation\tOutstanding\tEquity\tRunning costs\tPer mile")
	for _, m := range fleet.Cars {
		name := strings.TrimSpace(fmt.Sprintf("%d %s %s", m.Car.Year, m.Car.Make, m.Car.Model))
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", name,
			core.FormatMoney(m.LatestValuation, cur), core.FormatMoney(m.Outstanding, cur),
			core.FormatMoney(m.Equity, cur), core.FormatMoney(m.RunningCosts, cur),
			core.FormatMoney(m.CostPerMile, cur))
	}
	s := fleet.Summary
	fmt.Fprintf(w, "Total (%d)\t%s\t%s\t%s\t%s\t\n", s.Cars,
		core.FormatMoney(s.Valuation, cur), core.FormatMoney(s.Outstanding, cur),
		core.FormatMoney(s.Equity, cur), core.FormatMoney(s.RunningCosts, cur))
	if err := w.Flush(); err != nil {
		return fail(err)
	}

	for _, m := range fleet.Cars {
		for _, k := range m.KeyDates {
			if k.Status == vehicle.StatusOK {
				continue
			}
			fmt.Fprintf(c.env.out, "%s %s: %s (%d days)\n", m.Car.Make, m.Car.Model, k.Status, k.DaysRemaining)
		}
	}
	return subcommands.ExitSuccess
}

type importsCmd struct {
	env   *environment
	limit int
}

func (*importsCmd) Name() string     { return "imports" }
func (*importsCmd) Synopsis() string { return "list recent sheet imports into SQLite" }
func (*importsCmd) Usage() string {
	return `networth-report imports [-n <runs>]

  Lists the most recent import runs recorded by networth-sync.
`
}

func (c *importsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 10, "number of runs to list")
}

func (c *importsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	runs, err := c.env.Repository().ImportRuns(ctx, c.limit)
	if err != nil {
		return fail(err)
	}
	w := c.env.table()
	fmt.Fprintln(w, "Started\tSource\tStatus\tEntries\tCashflows\tCars\tError")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n", r.StartedAt.Format("2006-01-02 15:04"),
			r.Source, r.Status, r.Entries, r.Cashflows, r.Cars, r.Error)
	}
	if err := w.Flush(); err != nil {
		return fail(err)
	}
	return subcommands.ExitSuccess
}
