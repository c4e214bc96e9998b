package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"trajet.transportbi.org/internal/admin"
	"trajet.transportbi.org/internal/app"
	"trajet.transportbi.org/internal/appconf"
	"trajet.transportbi.org/internal/logging"
	"trajet.transportbi.org/internal/session"
)

var errNotAdmin = errors.New("admin privileges required: sign in with an admin account")

// cli holds what one process run shares between commands: the application
// and the single session context.
type cli struct {
	out    io.Writer
	errOut io.Writer

	configFile  string
	envDir      string
	sessionPath string
	jsonOutput  bool
	verbose     bool

	app         *app.Application
	ownsBackend bool
	sess        *session.Context
}

func newCLI(out, errOut io.Writer) *cli {
	return &cli{out: out, errOut: errOut, envDir: "."}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "trajetctl",
		Short:         "Browse and administer Trajet bus lines and intercity routes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configFile, "config", "f", "", "JSON or YAML config file (default: environment and .env files)")
	flags.StringVar(&c.envDir, "env-dir", ".", "directory holding .env and .env.local")
	flags.StringVar(&c.sessionPath, "session-file", "", "where the signed-in session is kept (default: user config dir)")
	flags.BoolVar(&c.jsonOutput, "json", false, "print JSON instead of tables")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newLoginCmd(c),
		newSignupCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newSearchCmd(c),
		newHomeCmd(c),
		newLinesCmd(c),
		newAgenciesCmd(c),
		newCitiesCmd(c),
		newMapCmd(c),
		newAdminCmd(c),
		newGrantAdminCmd(c),
	)
	return root
}

func (c *cli) loadConfig() (appconf.Config, error) {
	if c.configFile != "" {
		return appconf.LoadFromFile(c.configFile)
	}
	if err := appconf.LoadDotEnv(c.envDir); err != nil {
		return appconf.Config{}, err
	}
	cfg, err := appconf.FromEnv(os.LookupEnv)
	if err != nil {
		return cfg, err
	}
	return cfg, validateForCLI(cfg)
}

// validateForCLI accepts a config without a map token; only the server
// hands it out.
func validateForCLI(cfg appconf.Config) error {
	err := cfg.Validate()
	var missing *appconf.MissingSettingsError
	if errors.As(err, &missing) && len(missing.Settings) == 1 && missing.Settings[0] == "MAPBOX_TOKEN" {
		cfg.MapboxToken = "unused"
		return cfg.Validate()
	}
	return err
}

// ensure opens the backend on first use and starts the session context of
// this run from the session file.
func (c *cli) ensure(ctx context.Context) error {
	if c.app == nil {
		cfg, err := c.loadConfig()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		level := slog.LevelWarn
		if c.verbose {
			level = slog.LevelDebug
		}
		logger := logging.NewTextLogger(c.errOut, level)
		slog.SetDefault(logger)

		backend, err := app.OpenBackend(cfg, nil)
		if err != nil {
			return fmt.Errorf("open %s backend: %w", cfg.Backend, err)
		}
		c.app = app.New(cfg, logger, nil, nil, backend)
		c.ownsBackend = true
	}
	if c.sess != nil {
		return nil
	}

	path := c.sessionPath
	if path == "" {
		p, err := session.DefaultStorePath()
		if err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
		path = p
	}
	provider, err := c.app.Backend.NewProvider(session.FileStore{Path: path})
	if err != nil {
		return err
	}
	c.sess = session.New(provider, c.app.Gateway.Admins, c.app.Logger)
	if err := c.sess.Start(ctx); err != nil {
		// The stored session is unusable; carry on signed out.
		logging.LogError(c.app.Logger, "could not restore session", err)
	}
	if _, err := c.sess.WaitSettled(ctx); err != nil {
		return err
	}
	return nil
}

// closeSession ends the session context of this run.
func (c *cli) closeSession() {
	if c.sess != nil {
		c.sess.Close()
		c.sess = nil
	}
}

func (c *cli) close() {
	c.closeSession()
	if c.ownsBackend && c.app != nil {
		logging.SafeCloseWithLogging(c.app.Backend, c.app.Logger, "backend")
	}
}

// adminFlows returns flows bound to the session, refusing non-admins before
// any admin data is fetched. The returned context carries the access token.
func (c *cli) adminFlows(ctx context.Context) (*admin.Flows, context.Context, error) {
	if err := c.ensure(ctx); err != nil {
		return nil, ctx, err
	}
	if !c.sess.IsAdmin() {
		return nil, ctx, errNotAdmin
	}
	return admin.New(c.app.Gateway, c.sess), c.sess.WithAccessToken(ctx), nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table prints rows under header, or v as JSON with --json.
func (c *cli) table(v any, header string, rows func(w io.Writer)) error {
	if c.jsonOutput {
		return c.printJSON(v)
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	rows(w)
	return w.Flush()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
