package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"trajet.transportbi.org/internal/appconf"
	"trajet.transportbi.org/internal/logging"
)

func main() {
	var (
		configFile = flag.String("f", "", "Path to a JSON or YAML config file (other flags are ignored)")
		envDir     = flag.String("env-dir", ".", "Directory holding .env and .env.local")
		port       = flag.Int("port", 0, "API server port")
		env        = flag.String("env", "", "Environment (development|test|production)")
		apiKeys    = flag.String("api-keys", "", "Comma separated API keys")
		rateLimit  = flag.Int("rate-limit", -1, "Requests per second per API key")
		verbose    = flag.Bool("verbose", false, "Enable debug logging")
		backend    = flag.String("backend", "", "Data backend (supabase|local)")
		dataPath   = flag.String("data-path", "", "SQLite path for the local backend")
	)
	flag.Parse()

	cfg, err := loadConfig(*configFile, *envDir)
	if err != nil {
		fail("failed to load configuration", err)
	}
	if *configFile == "" {
		applyFlags(&cfg, *port, *env, *apiKeys, *rateLimit, *verbose, *backend, *dataPath)
		if err := cfg.Validate(); err != nil {
			fail("invalid configuration", err)
		}
	}

	coreApp, err := BuildApplication(cfg)
	if err != nil {
		fail("failed to build application", err)
	}

	srv, api := CreateServer(coreApp, cfg)
	if err := Run(context.Background(), srv, coreApp, api); err != nil {
		logging.LogError(coreApp.Logger, "server exited with error", err)
		os.Exit(1)
	}
}

func loadConfig(configFile, envDir string) (appconf.Config, error) {
	if configFile != "" {
		return appconf.LoadFromFile(configFile)
	}
	if err := appconf.LoadDotEnv(envDir); err != nil {
		return appconf.Config{}, err
	}
	return appconf.FromEnv(os.LookupEnv)
}

// applyFlags overrides cfg with the flags that were set explicitly.
func applyFlags(cfg *appconf.Config, port int, env, apiKeys string, rateLimit int, verbose bool, backend, dataPath string) {
	if port != 0 {
		cfg.Port = port
	}
	if env != "" {
		cfg.Env = appconf.EnvFlagToEnvironment(env)
	}
	if apiKeys != "" {
		cfg.ApiKeys = ParseAPIKeys(apiKeys)
	}
	if rateLimit >= 0 {
		cfg.RateLimit = rateLimit
	}
	if verbose {
		cfg.Verbose = true
	}
	if backend != "" {
		cfg.Backend = appconf.Backend(backend)
	}
	if dataPath != "" {
		cfg.DataPath = dataPath
	}
}

func fail(msg string, err error) {
	logging.LogError(slog.Default(), msg, err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
