package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"expensetracker/internal/chart"
	"expensetracker/internal/core"
	"expensetracker/internal/insights"
	"expensetracker/internal/services"
)

func out(cmd *cobra.Command) printer {
	return printer{w: cmd.OutOrStdout(), raw: viper.GetBool("raw")}
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		user, err := cli.user()
		if err != nil {
			return err
		}
		if err := cli.open(cmd.Context()); err != nil {
			return err
		}
		ts, err := cli.insights.Transactions(cmd.Context(), user, f)
		if err != nil {
			return err
		}
		insights.SortByDateDesc(ts)
		out(cmd).transactions(ts)
		return nil
	},
}

// filterFromFlags builds the list filter. --date and --period combine.
func filterFromFlags(cmd *cobra.Command) (insights.Filter, error) {
	var f insights.Filter
	typ, _ := cmd.Flags().GetString("type")
	tf, err := insights.ParseTypeFilter(typ)
	if err != nil {
		return f, err
	}
	f.Type = tf

	if s, _ := cmd.Flags().GetString("date"); s != "" {
		d, err := core.ParseDate(s)
		if err != nil {
			return f, fmt.Errorf("date %q: %w", s, err)
		}
		f.Date = &d
	}

	period, _ := cmd.Flags().GetString("period")
	p, err := insights.ParseRelativePeriod(period)
	if err != nil {
		return f, err
	}
	f.Period = p
	return f, nil
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show all-time totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		user, err := cli.user()
		if err != nil {
			return err
		}
		if err := cli.open(cmd.Context()); err != nil {
			return err
		}
		o, err := cli.insights.Overview(cmd.Context(), user)
		if err != nil {
			return err
		}
		out(cmd).summary(o)
		return nil
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show spending insights for this week or this month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v, err := insightView(cmd)
		if err != nil {
			return err
		}
		out(cmd).insights(v)
		return nil
	},
}

// insightView computes insights for the --period flag. A stale result
// is still the newest one this process will see.
func insightView(cmd *cobra.Command) (services.InsightView, error) {
	s, _ := cmd.Flags().GetString("period")
	period, err := insights.ParseInsightPeriod(s)
	if err != nil {
		return services.InsightView{}, err
	}
	user, err := cli.user()
	if err != nil {
		return services.InsightView{}, err
	}
	if err := cli.open(cmd.Context()); err != nil {
		return services.InsightView{}, err
	}
	v, err := cli.insights.Insights(cmd.Context(), user, period)
	if err != nil && !errors.Is(err, services.ErrStaleResult) {
		return services.InsightView{}, err
	}
	return v, nil
}

var ticksCmd = &cobra.Command{
	Use:   "ticks <max>",
	Short: "Print the y axis ticks for a chart maximum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		top, err := strconv.ParseFloat(args[0], 64)
		if err != nil || math.IsNaN(top) || math.IsInf(top, 0) {
			return fmt.Errorf("max must be a finite number, got %q", args[0])
		}
		if math.Abs(top) > insights.MaxAxisValue {
			return fmt.Errorf("max must not exceed %g, got %q", insights.MaxAxisValue, args[0])
		}
		out(cmd).ticks(top, insights.AxisTicks(top))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import transactions from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := cli.user()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		ts, err := parseImportFile(f)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		if err := cli.open(cmd.Context()); err != nil {
			return err
		}
		n, err := cli.transactions.Import(cmd.Context(), user, ts)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d transactions\n", n, len(ts))
		return err
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render an insights chart as PNG",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		if kind != "trend" && kind != "categories" {
			return fmt.Errorf("unknown chart kind %q: want trend or categories", kind)
		}
		path, _ := cmd.Flags().GetString("out")

		v, err := insightView(cmd)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if kind == "trend" {
			err = chart.RenderTrend(f, v.Data, time.Now())
		} else {
			err = chart.RenderCategories(f, v.Data)
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("render %s chart: %w", kind, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	listCmd.Flags().String("type", "all", "Transaction type: all, income or expense")
	listCmd.Flags().String("date", "", "Only this day (YYYY-MM-DD)")
	listCmd.Flags().String("period", "", "Relative period, e.g. this-week or last-30-days")

	insightsCmd.Flags().String("period", "this-month", "this-week or this-month")

	chartCmd.Flags().String("period", "this-month", "this-week or this-month")
	chartCmd.Flags().String("kind", "trend", "Chart kind: trend or categories")
	chartCmd.Flags().StringP("out", "o", "insights.png", "Output PNG path")
}
