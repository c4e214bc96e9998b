package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"trajet.transportbi.org/internal/admin"
	"trajet.transportbi.org/internal/gtfs"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/models"
)

func newAdminCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage agencies, bus lines, intercity routes and cities (admin accounts only)",
	}
	cmd.AddCommand(
		entityCmd(c, agencyCommands()),
		entityCmd(c, busLineCommands()),
		entityCmd(c, routeCommands()),
		entityCmd(c, cityCommands()),
		newImportCmd(c),
		newDashboardCmd(c),
	)
	return cmd
}

// entityCommands describes one managed table. remove and toggle are nil
// for tables that do not support them.
type entityCommands[F, R any] struct {
	use    string
	short  string
	header string
	row    func(R) string

	list   func(*admin.Flows, context.Context) ([]R, error)
	save   func(*admin.Flows, context.Context, F) (R, error)
	remove func(*admin.Flows, context.Context, string) error
	toggle func(*admin.Flows, context.Context, string) (R, error)

	setID func(*F, string)
	// flags registers the form flags on cmd and returns a func applying
	// the ones the user set.
	flags func(cmd *cobra.Command) func(cmd *cobra.Command, form *F)
}

func entityCmd[F, R any](c *cli, e entityCommands[F, R]) *cobra.Command {
	cmd := &cobra.Command{Use: e.use, Short: e.short}

	printRows := func(rows []R) error {
		return c.table(rows, e.header, func(w io.Writer) {
			for _, r := range rows {
				fmt.Fprintln(w, e.row(r))
			}
		})
	}
	printOne := func(r R) error {
		if c.jsonOutput {
			return c.printJSON(r)
		}
		return printRows([]R{r})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every row, inactive ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, ctx, err := c.adminFlows(commandContext(cmd))
			if err != nil {
				return err
			}
			rows, err := e.list(flows, ctx)
			if err != nil {
				return err
			}
			return printRows(rows)
		},
	})

	saveCmd := func(use, short string, args cobra.PositionalArgs) *cobra.Command {
		var file string
		sc := &cobra.Command{Use: use, Short: short, Args: args}
		apply := e.flags(sc)
		sc.Flags().StringVar(&file, "file", "", `JSON form to start from ("-" reads stdin)`)
		sc.RunE = func(cmd *cobra.Command, args []string) error {
			var form F
			if err := readForm(cmd, file, &form); err != nil {
				return err
			}
			apply(cmd, &form)
			if len(args) == 1 {
				e.setID(&form, args[0])
			} else {
				e.setID(&form, "")
			}
			flows, ctx, err := c.adminFlows(commandContext(cmd))
			if err != nil {
				return err
			}
			saved, err := e.save(flows, ctx, form)
			if err != nil {
				return err
			}
			return printOne(saved)
		}
		return sc
	}
	cmd.AddCommand(
		saveCmd("create", "Create a row", cobra.NoArgs),
		saveCmd("update <id>", "Update a row", cobra.ExactArgs(1)),
	)

	if e.remove != nil {
		cmd.AddCommand(&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a row",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				flows, ctx, err := c.adminFlows(commandContext(cmd))
				if err != nil {
					return err
				}
				if err := e.remove(flows, ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Deleted %s.\n", args[0])
				return nil
			},
		})
	}
	if e.toggle != nil {
		cmd.AddCommand(&cobra.Command{
			Use:   "toggle <id>",
			Short: "Flip the active flag of a row",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				flows, ctx, err := c.adminFlows(commandContext(cmd))
				if err != nil {
					return err
				}
				r, err := e.toggle(flows, ctx, args[0])
				if err != nil {
					return err
				}
				return printOne(r)
			},
		})
	}
	return cmd
}

func readForm(cmd *cobra.Command, path string, form any) error {
	if path == "" {
		return nil
	}
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open form: %w", err)
		}
		defer logging.SafeCloseWithLogging(f, nil, path)
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(form); err != nil {
		return fmt.Errorf("read form %s: %w", path, err)
	}
	return nil
}

func activeText(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func agencyCommands() entityCommands[admin.AgencyForm, models.TransportAgency] {
	return entityCommands[admin.AgencyForm, models.TransportAgency]{
		use:    "agencies",
		short:  "Manage transport agencies",
		header: "NAME\tPHONE\tSTATE\tID",
		row: func(a models.TransportAgency) string {
			phone := ""
			if a.ContactPhone != nil {
				phone = *a.ContactPhone
			}
			return fmt.Sprintf("%s\t%s\t%s\t%s", a.Name, phone, activeText(a.Active), a.ID)
		},
		list:   (*admin.Flows).ListAgencies,
		save:   (*admin.Flows).SaveAgency,
		remove: (*admin.Flows).DeleteAgency,
		toggle: (*admin.Flows).ToggleAgency,
		setID:  func(f *admin.AgencyForm, id string) { f.ID = id },
		flags: func(cmd *cobra.Command) func(*cobra.Command, *admin.AgencyForm) {
			var v admin.AgencyForm
			fs := cmd.Flags()
			fs.StringVar(&v.Name, "name", "", "agency name")
			fs.StringVar(&v.ContactPhone, "phone", "", "contact phone")
			fs.StringVar(&v.ContactEmail, "email", "", "contact email")
			fs.StringVar(&v.LogoURL, "logo-url", "", "logo URL")
			return func(cmd *cobra.Command, f *admin.AgencyForm) {
				fs := cmd.Flags()
				setIfChanged(fs.Changed("name"), &f.Name, v.Name)
				setIfChanged(fs.Changed("phone"), &f.ContactPhone, v.ContactPhone)
				setIfChanged(fs.Changed("email"), &f.ContactEmail, v.ContactEmail)
				setIfChanged(fs.Changed("logo-url"), &f.LogoURL, v.LogoURL)
			}
		},
	}
}

func busLineCommands() entityCommands[admin.BusLineForm, models.BusLine] {
	return entityCommands[admin.BusLineForm, models.BusLine]{
		use:    "lines",
		short:  "Manage bus lines; stops and the route shape come from --file",
		header: "NAME\tZONES\tFARE\tSTATE\tID",
		row: func(l models.BusLine) string {
			return fmt.Sprintf("%s\t%s\t%s\t%s\t%s", l.Name, strings.Join(l.ZonesCovered, ", "),
				models.FormatFare(l.Fare()), activeText(l.Active), l.ID)
		},
		list:   (*admin.Flows).ListBusLines,
		save:   (*admin.Flows).SaveBusLine,
		remove: (*admin.Flows).DeleteBusLine,
		toggle: (*admin.Flows).ToggleBusLine,
		setID:  func(f *admin.BusLineForm, id string) { f.ID = id },
		flags: func(cmd *cobra.Command) func(*cobra.Command, *admin.BusLineForm) {
			var v admin.BusLineForm
			fs := cmd.Flags()
			fs.StringVar(&v.Name, "name", "", "line name")
			fs.StringVar(&v.CityID, "city", "", "city id")
			fs.StringVar(&v.Zones, "zones", "", "comma-separated zones")
			fs.StringVar(&v.Color, "color", "", "hex color, e.g. #1E88E5")
			fs.StringVar(&v.Price, "price", "", `fare, e.g. "500" or "500 FBu"`)
			return func(cmd *cobra.Command, f *admin.BusLineForm) {
				fs := cmd.Flags()
				setIfChanged(fs.Changed("name"), &f.Name, v.Name)
				setIfChanged(fs.Changed("city"), &f.CityID, v.CityID)
				setIfChanged(fs.Changed("zones"), &f.Zones, v.Zones)
				setIfChanged(fs.Changed("color"), &f.Color, v.Color)
				setIfChanged(fs.Changed("price"), &f.Price, v.Price)
			}
		},
	}
}

func routeCommands() entityCommands[admin.RouteForm, models.IntercityRoute] {
	return entityCommands[admin.RouteForm, models.IntercityRoute]{
		use:    "routes",
		short:  "Manage intercity routes",
		header: "ROUTE\tAGENCY\tFARE\tDURATION\tSTATE\tID",
		row: func(r models.IntercityRoute) string {
			return fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s", r.DisplayName(), r.AgencyID,
				models.FormatFare(r.Fare()), models.FormatDuration(r.DurationMinutes), activeText(r.Active), r.ID)
		},
		list:   (*admin.Flows).ListRoutes,
		save:   (*admin.Flows).SaveRoute,
		remove: (*admin.Flows).DeleteRoute,
		toggle: (*admin.Flows).ToggleRoute,
		setID:  func(f *admin.RouteForm, id string) { f.ID = id },
		flags: func(cmd *cobra.Command) func(*cobra.Command, *admin.RouteForm) {
			var (
				v                admin.RouteForm
				price, duration  int
				schedule         string
				fromCity, toCity string
			)
			fs := cmd.Flags()
			fs.StringVar(&v.AgencyID, "agency", "", "agency id")
			fs.StringVar(&v.DeparturePoint, "from", "", "departure point")
			fs.StringVar(&v.ArrivalPoint, "to", "", "arrival point")
			fs.StringVar(&fromCity, "from-city", "", "departure city id")
			fs.StringVar(&toCity, "to-city", "", "arrival city id")
			fs.IntVar(&price, "price", 0, "fare in FBu")
			fs.IntVar(&duration, "duration", 0, "duration in minutes")
			fs.StringVar(&v.Frequency, "frequency", "", "free-text frequency")
			fs.StringVar(&schedule, "schedule", "", "comma-separated departure times, e.g. 06:00,14:30")
			return func(cmd *cobra.Command, f *admin.RouteForm) {
				fs := cmd.Flags()
				setIfChanged(fs.Changed("agency"), &f.AgencyID, v.AgencyID)
				setIfChanged(fs.Changed("from"), &f.DeparturePoint, v.DeparturePoint)
				setIfChanged(fs.Changed("to"), &f.ArrivalPoint, v.ArrivalPoint)
				setIfChanged(fs.Changed("from-city"), &f.DepartureCityID, fromCity)
				setIfChanged(fs.Changed("to-city"), &f.ArrivalCityID, toCity)
				setIfChanged(fs.Changed("frequency"), &f.Frequency, v.Frequency)
				if fs.Changed("price") {
					f.Price = models.IntPtr(price)
				}
				if fs.Changed("duration") {
					f.DurationMinutes = models.IntPtr(duration)
				}
				if fs.Changed("schedule") {
					f.Schedule = nil
					for _, t := range strings.Split(schedule, ",") {
						if t = strings.TrimSpace(t); t != "" {
							f.Schedule = append(f.Schedule, t)
						}
					}
				}
			}
		},
	}
}

func cityCommands() entityCommands[admin.CityForm, models.City] {
	return entityCommands[admin.CityForm, models.City]{
		use:    "cities",
		short:  "Manage cities",
		header: "NAME\tLAT\tLNG\tID",
		row: func(c models.City) string {
			return fmt.Sprintf("%s\t%.4f\t%.4f\t%s", c.Name, c.Coordinates.Lat, c.Coordinates.Lng, c.ID)
		},
		list:  (*admin.Flows).ListCities,
		save:  (*admin.Flows).SaveCity,
		setID: func(f *admin.CityForm, id string) { f.ID = id },
		flags: func(cmd *cobra.Command) func(*cobra.Command, *admin.CityForm) {
			var v admin.CityForm
			fs := cmd.Flags()
			fs.StringVar(&v.Name, "name", "", "city name")
			fs.Float64Var(&v.Lat, "lat", 0, "latitude of the city center")
			fs.Float64Var(&v.Lng, "lng", 0, "longitude of the city center")
			return func(cmd *cobra.Command, f *admin.CityForm) {
				fs := cmd.Flags()
				setIfChanged(fs.Changed("name"), &f.Name, v.Name)
				if fs.Changed("lat") {
					f.Lat = v.Lat
				}
				if fs.Changed("lng") {
					f.Lng = v.Lng
				}
			}
		},
	}
}

func setIfChanged(changed bool, dst *string, value string) {
	if changed {
		*dst = value
	}
}

func newImportCmd(c *cli) *cobra.Command {
	var (
		cityID  string
		maxSize int64
	)
	cmd := &cobra.Command{
		Use:   "import-gtfs <zip-path-or-url>",
		Short: "Create bus lines for a city from a GTFS feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, ctx, err := c.adminFlows(commandContext(cmd))
			if err != nil {
				return err
			}
			feed, err := gtfs.Load(ctx, args[0], gtfs.FetchOptions{MaxSize: maxSize})
			if err != nil {
				return err
			}
			summary, err := flows.ImportGTFS(ctx, feed, cityID)
			if err != nil {
				return err
			}
			if c.jsonOutput {
				return c.printJSON(summary)
			}
			fmt.Fprintf(c.out, "Created %d bus line(s), skipped %d.\n", summary.Created, len(summary.Skipped))
			for _, id := range summary.Skipped {
				fmt.Fprintf(c.out, "  %s: %s\n", id, summary.Errors[id])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cityID, "city", "", "id of the city the lines belong to")
	cmd.Flags().Int64Var(&maxSize, "max-size", 0, "feed size limit in bytes (default "+strconv.Itoa(gtfs.DefaultMaxFeedSize)+")")
	_ = cmd.MarkFlagRequired("city")
	return cmd
}

func newDashboardCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Count the rows of each managed table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, ctx, err := c.adminFlows(commandContext(cmd))
			if err != nil {
				return err
			}
			d, err := flows.Dashboard(ctx)
			if err != nil {
				return err
			}
			return c.table(d, "TABLE\tROWS", func(w io.Writer) {
				fmt.Fprintf(w, "agencies\t%d\n", d.Agencies)
				fmt.Fprintf(w, "bus lines\t%d\n", d.BusLines)
				fmt.Fprintf(w, "intercity routes\t%d\n", d.Routes)
				fmt.Fprintf(w, "cities\t%d\n", d.Cities)
			})
		},
	}
}
