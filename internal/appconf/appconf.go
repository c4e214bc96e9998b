// Package appconf loads and validates process configuration. Values come from
// the environment (optionally seeded from .env files) or from a JSON/YAML
// config file, and are read once at startup.
package appconf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a flag or env value to an Environment.
// Unknown values map to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

// Backend selects the data gateway implementation.
type Backend string

const (
	BackendSupabase Backend = "supabase"
	BackendLocal    Backend = "local"
)

const (
	DefaultPort           = 4000
	DefaultRateLimit      = 100
	DefaultDataPath       = "trajet.db"
	DefaultRequestTimeout = 15 * time.Second
	minJWTSecretLength    = 32
)

// ErrMissingSetting is wrapped by MissingSettingsError.
var ErrMissingSetting = errors.New("missing required setting")

// MissingSettingsError names every required setting that has no value.
type MissingSettingsError struct {
	Settings []string
}

func (e *MissingSettingsError) Error() string {
	return fmt.Sprintf("missing required setting(s): %s", strings.Join(e.Settings, ", "))
}

func (e *MissingSettingsError) Unwrap() error {
	return ErrMissingSetting
}

type Config struct {
	Port            int         `validate:"min=1,max=65535"`
	Env             Environment `validate:"min=0,max=2"`
	ApiKeys         []string    `validate:"dive,required"`
	Verbose         bool
	RateLimit       int     `validate:"min=0"`
	Backend         Backend `validate:"oneof=supabase local"`
	SupabaseURL     string  `validate:"omitempty,http_url"`
	SupabaseAnonKey string
	MapboxToken     string
	DataPath        string
	JWTSecret       string
	RequestTimeout  time.Duration `validate:"min=0"`
	AllowedOrigins  []string
}

// Defaults returns a Config with every optional field populated.
func Defaults() Config {
	return Config{
		Port:           DefaultPort,
		Env:            Development,
		RateLimit:      DefaultRateLimit,
		Backend:        BackendSupabase,
		DataPath:       DefaultDataPath,
		RequestTimeout: DefaultRequestTimeout,
		AllowedOrigins: []string{"*"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and then fails fast on missing required
// settings. The returned error wraps ErrMissingSetting when settings are absent.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid field(s): %s", strings.Join(msgs, "; "))
		}
		return err
	}

	var missing []string
	switch c.Backend {
	case BackendSupabase:
		if strings.TrimSpace(c.SupabaseURL) == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if strings.TrimSpace(c.SupabaseAnonKey) == "" {
			missing = append(missing, "SUPABASE_ANON_KEY")
		}
	case BackendLocal:
		if strings.TrimSpace(c.DataPath) == "" {
			missing = append(missing, "TRAJET_DATA_PATH")
		}
		if c.JWTSecret == "" {
			missing = append(missing, "JWT_SECRET")
		}
	}
	if strings.TrimSpace(c.MapboxToken) == "" {
		missing = append(missing, "MAPBOX_TOKEN")
	}
	if len(missing) > 0 {
		return &MissingSettingsError{Settings: missing}
	}

	if c.Backend == BackendLocal && len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters (got %d)", minJWTSecretLength, len(c.JWTSecret))
	}
	return nil
}
