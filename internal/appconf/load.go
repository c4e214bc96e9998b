package appconf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv seeds the process environment from dir/.env and then lets
// dir/.env.local override it. Missing files are not an error.
func LoadDotEnv(dir string) error {
	base := filepath.Join(dir, ".env")
	local := filepath.Join(dir, ".env.local")

	if err := godotenv.Load(base); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", base, err)
	}
	if err := godotenv.Overload(local); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", local, err)
	}
	return nil
}

// firstSet returns the first non-empty value among keys.
func firstSet(lookup LookupFunc, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// FromEnv builds a Config from environment variables on top of Defaults().
// The EXPO_PUBLIC_* names used by the mobile client are accepted as fallbacks.
// The result is not validated.
func FromEnv(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := Defaults()

	if v, ok := firstSet(lookup, "TRAJET_PORT", "PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TRAJET_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v, ok := firstSet(lookup, "TRAJET_ENV"); ok {
		cfg.Env = EnvFlagToEnvironment(v)
	}
	if v, ok := firstSet(lookup, "TRAJET_API_KEYS"); ok {
		cfg.ApiKeys = splitList(v)
	}
	if v, ok := firstSet(lookup, "TRAJET_RATE_LIMIT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TRAJET_RATE_LIMIT %q: %w", v, err)
		}
		cfg.RateLimit = n
	}
	if v, ok := firstSet(lookup, "TRAJET_VERBOSE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TRAJET_VERBOSE %q: %w", v, err)
		}
		cfg.Verbose = b
	}
	if v, ok := firstSet(lookup, "TRAJET_BACKEND"); ok {
		cfg.Backend = Backend(strings.ToLower(v))
	}
	if v, ok := firstSet(lookup, "SUPABASE_URL", "EXPO_PUBLIC_SUPABASE_URL"); ok {
		cfg.SupabaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := firstSet(lookup, "SUPABASE_ANON_KEY", "EXPO_PUBLIC_SUPABASE_ANON_KEY"); ok {
		cfg.SupabaseAnonKey = v
	}
	if v, ok := firstSet(lookup, "MAPBOX_TOKEN", "EXPO_PUBLIC_MAPBOX_TOKEN"); ok {
		cfg.MapboxToken = v
	}
	if v, ok := firstSet(lookup, "TRAJET_DATA_PATH"); ok {
		cfg.DataPath = v
	}
	if v, ok := lookup("JWT_SECRET"); ok {
		cfg.JWTSecret = v
	}
	if v, ok := firstSet(lookup, "TRAJET_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid TRAJET_REQUEST_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = d
	}
	if v, ok := firstSet(lookup, "TRAJET_ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = splitList(v)
	}
	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// fileConfig is the on-disk shape of a config file.
type fileConfig struct {
	Port            int      `json:"port" yaml:"port"`
	Env             string   `json:"env" yaml:"env"`
	ApiKeys         []string `json:"api-keys" yaml:"api-keys"`
	Verbose         bool     `json:"verbose" yaml:"verbose"`
	RateLimit       *int     `json:"rate-limit" yaml:"rate-limit"`
	Backend         string   `json:"backend" yaml:"backend"`
	SupabaseURL     string   `json:"supabase-url" yaml:"supabase-url"`
	SupabaseAnonKey string   `json:"supabase-anon-key" yaml:"supabase-anon-key"`
	MapboxToken     string   `json:"mapbox-token" yaml:"mapbox-token"`
	DataPath        string   `json:"data-path" yaml:"data-path"`
	JWTSecret       string   `json:"jwt-secret" yaml:"jwt-secret"`
	RequestTimeout  string   `json:"request-timeout" yaml:"request-timeout"`
	AllowedOrigins  []string `json:"allowed-origins" yaml:"allowed-origins"`
}

func (f fileConfig) toConfig() (Config, error) {
	cfg := Defaults()
	if f.Port != 0 {
		cfg.Port = f.Port
	}
	if f.Env != "" {
		cfg.Env = EnvFlagToEnvironment(f.Env)
	}
	if f.ApiKeys != nil {
		cfg.ApiKeys = f.ApiKeys
	}
	cfg.Verbose = f.Verbose
	if f.RateLimit != nil {
		cfg.RateLimit = *f.RateLimit
	}
	if f.Backend != "" {
		cfg.Backend = Backend(strings.ToLower(f.Backend))
	}
	cfg.SupabaseURL = strings.TrimRight(f.SupabaseURL, "/")
	cfg.SupabaseAnonKey = f.SupabaseAnonKey
	cfg.MapboxToken = f.MapboxToken
	if f.DataPath != "" {
		cfg.DataPath = f.DataPath
	}
	cfg.JWTSecret = f.JWTSecret
	if f.RequestTimeout != "" {
		d, err := time.ParseDuration(f.RequestTimeout)
		if err != nil {
			return cfg, fmt.Errorf("invalid request-timeout %q: %w", f.RequestTimeout, err)
		}
		cfg.RequestTimeout = d
	}
	if len(f.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.AllowedOrigins
	}
	return cfg, nil
}

// LoadFromFile reads a JSON or YAML (by extension) config file and validates it.
func LoadFromFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("failed to stat config file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	}

	cfg, err := fc.toConfig()
	if err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
