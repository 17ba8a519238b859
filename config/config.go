/*
Package config resolves server settings from flags, environment and an
optional .env file.

PRECEDENCE (highest first):
  1. Command-line flags that were set explicitly
  2. Environment variables (including those loaded from .env)
  3. Defaults

ENVIRONMENT:
  PORT               HTTP port (default 8080)
  BACKEND            "sqlite" or "supabase" (default sqlite)
  DB_PATH            SQLite path (default surf.db, ":memory:" allowed)
  SUPABASE_URL       Project URL, required for the supabase backend
  SUPABASE_ANON_KEY  Project anon key, required for the supabase backend
  BACKEND_RPS        Max backend requests per second, 0 = unlimited
  BACKEND_BURST      Limiter burst size (default 10)
  DEBUG              "true" enables development logging
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Config holds resolved settings.
type Config struct {
	Port         int
	Backend      string
	DBPath       string
	SupabaseURL  string
	SupabaseKey  string
	BackendRPS   float64
	BackendBurst int
	Debug        bool
	// Scenarios enables the demo data routes. Only honoured with SQLite.
	Scenarios bool
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Port:         8080,
		Backend:      BackendSQLite,
		DBPath:       "surf.db",
		BackendBurst: 10,
	}
}

// Load parses args (without the program name) on top of the environment.
// envFile is loaded first when it exists; a missing file is not an error.
func Load(args []string, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if err := cfg.fromEnv(); err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "data backend: sqlite or supabase")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	fs.Float64Var(&cfg.BackendRPS, "rps", cfg.BackendRPS, "max backend requests per second (0 = unlimited)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "development logging")
	fs.BoolVar(&cfg.Scenarios, "scenarios", cfg.Scenarios, "enable demo scenario routes")
	fs.String("env", envFile, "path to .env file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// EnvFileFromArgs finds an -env flag before the full parse, so the file can
// be loaded ahead of reading the environment.
func EnvFileFromArgs(args []string, def string) string {
	for i, a := range args {
		switch {
		case (a == "-env" || a == "--env") && i+1 < len(args):
			return args[i+1]
		case len(a) > 5 && a[:5] == "-env=":
			return a[5:]
		case len(a) > 6 && a[:6] == "--env=":
			return a[6:]
		}
	}
	return def
}

func (c *Config) fromEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	c.SupabaseURL = os.Getenv("SUPABASE_URL")
	c.SupabaseKey = os.Getenv("SUPABASE_ANON_KEY")
	if v := os.Getenv("BACKEND_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid BACKEND_RPS %q: %w", v, err)
		}
		c.BackendRPS = rps
	}
	if v := os.Getenv("BACKEND_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BACKEND_BURST %q: %w", v, err)
		}
		c.BackendBurst = burst
	}
	if v := os.Getenv("DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEBUG %q: %w", v, err)
		}
		c.Debug = debug
	}
	return nil
}

// Validate checks that the settings are usable together.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.BackendRPS < 0 {
		return fmt.Errorf("backend rps must not be negative: %v", c.BackendRPS)
	}
	if c.BackendRPS > 0 && c.BackendBurst < 1 {
		return fmt.Errorf("backend burst must be at least 1 when rps is set")
	}
	switch c.Backend {
	case BackendSQLite:
		if c.DBPath == "" {
			return errors.New("sqlite backend requires a database path")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return errors.New("supabase backend requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
