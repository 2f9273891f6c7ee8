/*
 * file: config.go
 * package: config
 * description:
 *     CLI/env configuration, grounded on Seednode-partybox's cobra+viper
 *     config.go: a flat Config struct populated by pflag, with viper
 *     supplying environment-variable fallback under an ROOMSERVER_
 *     prefix, and a validate() that mirrors partybox's TLS
 *     cert/key-pairing check.
 */
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is every tunable the server reads at startup.
type Config struct {
	Port    int
	DevMode bool
	LogLevel string

	AllowedOrigins []string

	GraceWindow             time.Duration
	IdleWindow              time.Duration
	SweepInterval           time.Duration
	StartSingleFlightWindow time.Duration
	MetricsCadence          time.Duration

	RateLimitPerSecond int
	RateLimitBurst     int

	TLSCert string
	TLSKey  string

	CatalogPath string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

// UsesPostgres reports whether enough DSN fields were supplied to attempt
// a durable backend; an unconfigured server falls back to the in-memory
// repository rather than failing startup.
func (c *Config) UsesPostgres() bool {
	return c.DBHost != "" && c.DBName != ""
}

func (c *Config) validate() error {
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("rate limit and burst must both be positive")
	}
	return nil
}

// UsesTLS reports whether both halves of a certificate pair were given.
func (c *Config) UsesTLS() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// NewCommand builds the root cobra command. run is invoked with a
// validated Config once flags/env have been resolved.
func NewCommand(run func(*Config) error) *cobra.Command {
	cfg := &Config{}

	v := viper.New()
	v.SetEnvPrefix("ROOMSERVER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "roomserver",
		Short:         "Realtime multiplayer turn-based room server",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.IntVarP(&cfg.Port, "port", "p", 8081, "port to listen on (env: ROOMSERVER_PORT); scans upward if in use")
	fs.BoolVar(&cfg.DevMode, "dev-mode", false, "disable websocket origin checking and rate-limit enforcement (env: ROOMSERVER_DEV_MODE)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "log level: debug, info, warn, error (env: ROOMSERVER_LOG_LEVEL)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origin", nil, "allowed websocket Origin header value, repeatable (env: ROOMSERVER_ALLOWED_ORIGIN)")

	fs.DurationVar(&cfg.GraceWindow, "grace-window", 5*time.Minute, "time a disconnected player's seat is held during an active game (env: ROOMSERVER_GRACE_WINDOW)")
	fs.DurationVar(&cfg.IdleWindow, "idle-window", 30*time.Minute, "time an empty room is kept before reaping (env: ROOMSERVER_IDLE_WINDOW)")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", 60*time.Second, "janitor sweep period (env: ROOMSERVER_SWEEP_INTERVAL)")
	fs.DurationVar(&cfg.StartSingleFlightWindow, "start-single-flight-window", 2*time.Second, "window rejecting a duplicate startGame (env: ROOMSERVER_START_SINGLE_FLIGHT_WINDOW)")
	fs.DurationVar(&cfg.MetricsCadence, "metrics-cadence", 3*time.Second, "serverMetrics push interval (env: ROOMSERVER_METRICS_CADENCE)")

	fs.IntVar(&cfg.RateLimitPerSecond, "rate-limit", 20, "inbound events/sec allowed per connection (env: ROOMSERVER_RATE_LIMIT)")
	fs.IntVar(&cfg.RateLimitBurst, "rate-limit-burst", 40, "inbound burst allowance per connection (env: ROOMSERVER_RATE_LIMIT_BURST)")

	fs.StringVar(&cfg.TLSCert, "tls-cert", "", "path to TLS certificate (env: ROOMSERVER_TLS_CERT)")
	fs.StringVar(&cfg.TLSKey, "tls-key", "", "path to TLS keyfile (env: ROOMSERVER_TLS_KEY)")

	fs.StringVar(&cfg.CatalogPath, "catalog", "", "path to a YAML file of plugin display metadata (env: ROOMSERVER_CATALOG)")

	fs.StringVar(&cfg.DBHost, "db-host", "", "Postgres host; empty disables durable persistence (env: ROOMSERVER_DB_HOST)")
	fs.StringVar(&cfg.DBPort, "db-port", "5432", "Postgres port (env: ROOMSERVER_DB_PORT)")
	fs.StringVar(&cfg.DBUser, "db-user", "", "Postgres user (env: ROOMSERVER_DB_USER)")
	fs.StringVar(&cfg.DBPassword, "db-password", "", "Postgres password (env: ROOMSERVER_DB_PASSWORD)")
	fs.StringVar(&cfg.DBName, "db-name", "", "Postgres database name (env: ROOMSERVER_DB_NAME)")
	fs.StringVar(&cfg.DBSSLMode, "db-sslmode", "disable", "Postgres sslmode (env: ROOMSERVER_DB_SSLMODE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
