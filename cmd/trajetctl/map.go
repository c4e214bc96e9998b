package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"trajet.transportbi.org/internal/catalog"
	"trajet.transportbi.org/internal/mapview"
)

func newMapCmd(c *cli) *cobra.Command {
	var (
		follow   bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Print the map: every active line with its stops and the fitted viewport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			if err := c.ensure(ctx); err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			w := &mapWatcher{c: c}
			if err := w.refresh(ctx); err != nil {
				return err
			}
			if !follow {
				return nil
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := w.refresh(ctx); err != nil {
						if ctx.Err() != nil {
							return nil
						}
						fmt.Fprintln(c.errOut, "warning: refresh failed:", err)
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&follow, "follow", false, "keep polling and print the lines again when they change")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "polling interval with --follow")
	return cmd
}

// mapWatcher fits the viewport once, on the first load that has points,
// and redraws only when the rendered content changes.
type mapWatcher struct {
	c           *cli
	fitter      mapview.Fitter
	fingerprint string
}

func (w *mapWatcher) refresh(ctx context.Context) error {
	view, err := w.c.app.Catalog.Map(ctx)
	if err != nil {
		return err
	}
	if vp, ok := w.fitter.Observe(view.Lines()); ok {
		w.printViewport(vp)
	}
	if view.Fingerprint == w.fingerprint {
		return nil
	}
	w.fingerprint = view.Fingerprint
	return w.printLines(view)
}

func (w *mapWatcher) printViewport(vp mapview.Viewport) {
	if w.c.jsonOutput {
		_ = w.c.printJSON(map[string]any{"viewport": vp})
		return
	}
	fmt.Fprintf(w.c.out, "Viewport: center %.5f,%.5f  span %.5f x %.5f\n",
		vp.Center.Latitude, vp.Center.Longitude, vp.LatitudeDelta, vp.LongitudeDelta)
}

func (w *mapWatcher) printLines(view catalog.MapView) error {
	if w.c.jsonOutput {
		return w.c.printJSON(map[string]any{
			"polylines":   view.Polylines,
			"markers":     view.Markers,
			"fingerprint": view.Fingerprint,
		})
	}
	if len(view.Polylines) == 0 && len(view.Markers) == 0 {
		fmt.Fprintln(w.c.out, "No lines to draw.")
		return nil
	}
	err := w.c.table(nil, "LINE\tCOLOR\tPOINTS\tPOLYLINE", func(tw io.Writer) {
		for _, p := range view.Polylines {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.LineID, p.Color, len(p.Points), p.Encoded)
		}
	})
	if err != nil {
		return err
	}
	return w.c.table(nil, "STOP\tLINE\tLAT\tLNG", func(tw io.Writer) {
		for _, m := range view.Markers {
			fmt.Fprintf(tw, "%s\t%s\t%.5f\t%.5f\n", m.Title, m.LineID, m.Position.Latitude, m.Position.Longitude)
		}
	})
}
