package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/PriceHound/internal/pipeline"
	"github.com/IshaanNene/PriceHound/internal/search"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// runCmd creates the "run" subcommand: the full scrape, index, search job.
func runCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Scrape, index once and search",
		Long: `Ensure the index exists, scrape the listing and index it unless the
completion marker is already set, then search the index and print the
results with their price buckets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, o, args)
		},
	}
	scrapeFlags(cmd, o)
	searchFlags(cmd, o)
	return cmd
}

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the listing and export the dataset without indexing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			res, err := a.hound.Scrape(ctx)
			if err != nil {
				return err
			}
			printProducts(a, res.Products)
			printSortOption(a, res)

			n, err := a.hound.Export(res.Products)
			if err != nil {
				return err
			}
			printExported(a, n)
			return nil
		},
	}
	scrapeFlags(cmd, o)
	return cmd
}

func runJob(cmd *cobra.Command, o *options, args []string) error {
	a, err := newApp(cmd, o)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	query := a.cfg.Search.Query
	if len(args) > 0 {
		query = strings.Join(args, " ")
	}

	report, err := a.hound.Run(ctx, query)
	if err != nil {
		return err
	}

	if report.Skipped() {
		fmt.Fprintf(a.out, "Marker %q present, searching existing index.\n", a.cfg.Marker.Label)
	} else {
		fmt.Fprintf(a.out, "Indexed %d product(s) from %d page(s) in %.2f ms.\n",
			report.Indexed.Written, report.Scrape.Pages, millis(report.Scrape.Duration))
		printExported(a, report.Exported)
	}

	fmt.Fprintln(a.out)
	search.Render(a.out, report.Search)
	if report.Scrape != nil {
		printSortOption(a, report.Scrape)
	}

	fmt.Fprintf(a.out, "Search completed in %.2f ms.\n", millis(report.SearchDuration))
	fmt.Fprintf(a.out, "All completed in %.2f ms.\n", millis(report.Duration))

	a.logger.Info().
		Bool("skipped", report.Skipped()).
		Int64("total", report.Search.Total).
		Dur("duration", report.Duration).
		Msg("run complete")
	return nil
}

func printExported(a *app, n int) {
	if a.cfg.Export.Enabled {
		fmt.Fprintf(a.out, "Exported %d row(s) as %s.\n", n, a.cfg.Export.Type)
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func printProducts(a *app, products []*types.Product) {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	t.AppendHeader(table.Row{"#", "Product", "Price", "Rating Count", "Attributes"})
	for i, p := range products {
		price := "N/A"
		if p.Price != nil {
			price = fmt.Sprintf("%.2f", *p.Price)
		} else if p.RawPrice != "" {
			price = "? " + p.RawPrice
		}
		rating := "N/A"
		if p.RatingCount != nil {
			rating = *p.RatingCount
		}
		var attrs []string
		for _, key := range sortedKeys(p.Attributes) {
			if v, ok := p.Attr(key); ok {
				attrs = append(attrs, key+"="+v)
			}
		}
		t.AppendRow(table.Row{i + 1, p.TitleOr("N/A"), price, rating, strings.Join(attrs, ", ")})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func printSortOption(a *app, res *pipeline.Result) {
	if res.SortOption != nil {
		fmt.Fprintf(a.out, "Sort option: %s\n", *res.SortOption)
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
