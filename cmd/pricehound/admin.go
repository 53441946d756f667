package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/PriceHound/internal/search"
)

// searchCmd creates the "search" subcommand: the read path only.
func searchCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the index without scraping",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()

			ix, err := a.hound.Indexer()
			if err != nil {
				return err
			}

			if err := ix.EnsureSchema(cmd.Context()); err != nil {
				return err
			}

			query := a.cfg.Search.Query
			if len(args) > 0 {
				query = strings.Join(args, " ")
			}
			result, err := a.hound.Search(cmd.Context(), ix.Backend(), query)
			if err != nil {
				return err
			}
			search.Render(a.out, result)
			return nil
		},
	}
	searchFlags(cmd, o)
	return cmd
}

// indexCmd creates the "index" command group.
func indexCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Inspect or prepare the search index",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create the index with the product schema when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()

			ix, err := a.hound.Indexer()
			if err != nil {
				return err
			}

			if err := ix.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Index %q ready.\n", a.cfg.Index.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "count",
		Short: "Print the number of indexed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()

			ix, err := a.hound.Indexer()
			if err != nil {
				return err
			}

			n, err := ix.Backend().Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d\n", n)
			return nil
		},
	})

	return cmd
}

// markerCmd creates the "marker" command group.
func markerCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marker",
		Short: "Inspect or clear the indexing completion marker",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the marker is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()

			ix, err := a.hound.Indexer()
			if err != nil {
				return err
			}

			done, err := ix.Done(cmd.Context())
			if err != nil {
				return err
			}
			state := "absent"
			if done {
				state = "present"
			}
			fmt.Fprintf(a.out, "marker %q: %s\n", a.cfg.Marker.Label, state)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Set the marker so the next run skips scraping",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()

			ix, err := a.hound.Indexer()
			if err != nil {
				return err
			}

			if err := ix.MarkDone(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "marker %q set\n", a.cfg.Marker.Label)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the marker so the next run indexes again",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer a.Close()

			ix, err := a.hound.Indexer()
			if err != nil {
				return err
			}

			if err := ix.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "marker %q cleared\n", a.cfg.Marker.Label)
			return nil
		},
	})

	return cmd
}

func sortedKeys(m map[string]*string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
