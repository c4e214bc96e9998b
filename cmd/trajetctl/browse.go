package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"trajet.transportbi.org/internal/gateway"
	"trajet.transportbi.org/internal/mapview"
	"trajet.transportbi.org/internal/models"
)

func printResults(c *cli, results []models.SearchResult, partial bool) error {
	if c.jsonOutput {
		return c.printJSON(map[string]any{"results": results, "partial": partial})
	}
	if partial {
		fmt.Fprintln(c.errOut, "warning: some results could not be loaded")
	}
	if len(results) == 0 {
		fmt.Fprintln(c.out, "No results.")
		return nil
	}
	return c.table(results, "TYPE\tNAME\tDETAILS\tID", func(w io.Writer) {
		for _, r := range results {
			details := strings.Join(r.Zones, ", ")
			if r.Kind == models.KindIntercity {
				details = strings.TrimSpace(r.Agency + " " + r.Details)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Kind, r.Name, details, r.ID)
		}
	})
}

func newSearchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search bus lines and intercity routes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if err := c.ensure(ctx); err != nil {
				return err
			}
			out := c.app.Search.Search(ctx, strings.Join(args, " "), nil)
			return printResults(c, out.Results, out.Partial)
		},
	}
}

func newHomeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show the popular routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if err := c.ensure(ctx); err != nil {
				return err
			}
			home := c.app.Catalog.Home(ctx)
			return printResults(c, home.Items, home.Partial)
		},
	}
}

func newLinesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "lines [id]",
		Short: "List active bus lines, or show one line",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if err := c.ensure(ctx); err != nil {
				return err
			}
			if len(args) == 1 {
				view, err := c.app.Catalog.Line(ctx, args[0])
				if err != nil {
					return err
				}
				if c.jsonOutput {
					return c.printJSON(view)
				}
				d := view.Detail
				fmt.Fprintf(c.out, "%s\nZones: %s\nFare:  %s\nColor: %s\nStops: %s\n",
					d.Name, strings.Join(d.Zones, ", "), d.FareText, d.Color, strings.Join(d.Stops, " → "))
				return nil
			}

			lines, err := c.app.Gateway.BusLines.List(ctx, gateway.Active())
			if err != nil {
				return err
			}
			details := make([]mapview.LineDetail, len(lines))
			for i, l := range lines {
				details[i] = mapview.Detail(l)
			}
			return c.table(details, "NAME\tZONES\tFARE\tSTOPS\tID", func(w io.Writer) {
				for _, d := range details {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", d.Name, strings.Join(d.Zones, ", "), d.FareText, len(d.Stops), d.ID)
				}
			})
		},
	}
}

func newAgenciesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "agencies",
		Short: "List transport agencies and their intercity routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if err := c.ensure(ctx); err != nil {
				return err
			}
			agencies, err := c.app.Catalog.Agencies(ctx)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.printJSON(agencies)
			}
			if len(agencies) == 0 {
				fmt.Fprintln(c.out, "No agencies.")
				return nil
			}
			for _, a := range agencies {
				fmt.Fprintf(c.out, "%s\n", a.Name)
				if a.RoutesUnavailable {
					fmt.Fprintln(c.out, "  (routes could not be loaded)")
					continue
				}
				for _, r := range a.Routes {
					line := fmt.Sprintf("  %s → %s  %s", r.DeparturePoint, r.ArrivalPoint, r.FareText)
					if r.Duration != "" {
						line += "  " + r.Duration
					}
					fmt.Fprintln(c.out, line)
				}
			}
			return nil
		},
	}
}

func newCitiesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List cities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if err := c.ensure(ctx); err != nil {
				return err
			}
			cities, err := c.app.Catalog.Cities(ctx)
			if err != nil {
				return err
			}
			return c.table(cities, "NAME\tLAT\tLNG\tID", func(w io.Writer) {
				for _, city := range cities {
					fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%s\n", city.Name, city.Coordinates.Lat, city.Coordinates.Lng, city.ID)
				}
			})
		},
	}
}
