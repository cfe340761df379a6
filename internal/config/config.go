package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read into the config.
// FLASHMEM_DECKS_DIR sets decks-dir.
const EnvPrefix = "FLASHMEM_"

// Config holds the runtime settings of the flashmem server.
type Config struct {
	Addr         string `koanf:"addr" validate:"required"`
	DB           string `koanf:"db"`
	DecksDir     string `koanf:"decks-dir" validate:"omitempty,dir"`
	ReposDir     string `koanf:"repos-dir" validate:"required"`
	Mode         string `koanf:"mode" validate:"oneof=sequential random"`
	Seed         uint64 `koanf:"seed"`
	LogLevel     string `koanf:"log-level" validate:"oneof=debug info warn error"`
	AddSource    string `koanf:"add-source"`
	RemoveSource string `koanf:"remove-source"`
	Sync         bool   `koanf:"sync"`
	Serve        bool   `koanf:"serve"`
}

// FlagSet declares the command-line flags and their defaults.
func FlagSet(name string) *pflag.FlagSet {
	f := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f.String("config", "", "Path to a YAML config file")
	f.String("addr", ":8080", "Address for the HTTP server to listen on")
	f.String("db", "flashmem.db", "Path to the SQLite deck store (empty disables it)")
	f.String("decks-dir", "", "Directory of extra *.csv decks")
	f.String("repos-dir", "repos", "Directory that git deck sources are cloned into")
	f.String("mode", "sequential", "Default study mode: sequential or random")
	f.Uint64("seed", 0, "Seed for random mode (0 seeds from the clock)")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("add-source", "", "Register a local path or git URL as a deck source")
	f.String("remove-source", "", "Unregister a deck source and delete its imported decks")
	f.Bool("sync", false, "Import decks from all sources at startup")
	f.Bool("serve", true, "Start the HTTP server")
	return f
}

// Load builds the config from, in increasing precedence, the YAML file
// named by --config, FLASHMEM_* environment variables and the flags.
func Load(args []string) (*Config, error) {
	f := FlagSet("flashmem")
	if err := f.Parse(args); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if path, _ := f.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("loading flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints and reports each
// failing key.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed '%s' (got %q)", fe.Field(), fe.Tag(), fmt.Sprint(fe.Value())))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
