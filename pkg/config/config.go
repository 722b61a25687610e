// Package config loads Ember's TOML configuration.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"unicode"

	"github.com/naoina/toml"
)

// ProjectFile is looked up in the project directory.
const ProjectFile = "ember.toml"

// Config is the full configuration. Keys are snake_case in the file.
type Config struct {
	Log     LogConfig
	Modules ModulesConfig
	Imports ImportsConfig
	Repl    ReplConfig
	Output  OutputConfig
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// ModulesConfig is the builtin-module import policy.
type ModulesConfig struct {
	Allow []string
	Deny  []string
}

type ImportsConfig struct {
	CacheSize int
	BaseDir   string
}

type ReplConfig struct {
	HistoryFile string
	Prompt      string
}

type OutputConfig struct {
	Color string // auto, always, never
}

// Defaults returns the configuration used when no file is found.
func Defaults() *Config {
	return &Config{
		Log:     LogConfig{Level: "warn", Format: "text"},
		Imports: ImportsConfig{CacheSize: 64},
		Repl:    ReplConfig{Prompt: "ember> "},
		Output:  OutputConfig{Color: "auto"},
	}
}

// These settings map snake_case keys onto Go field names and reject keys
// that match no field.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return strings.ToLower(strings.ReplaceAll(key, "_", ""))
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return snakeCase(field)
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Load finds and reads the configuration. Precedence: the explicit path,
// then ember.toml in projectDir, then ~/.ember/config.toml, then
// defaults. It returns the path that was read, or "" for defaults. An
// explicit path that cannot be read is an error; missing fallbacks are not.
func Load(explicit, projectDir string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := LoadFile(explicit)
		if err != nil {
			return nil, "", err
		}
		return cfg, explicit, nil
	}

	candidates := []string{filepath.Join(projectDir, ProjectFile)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".ember", "config.toml"))
	}
	for _, path := range candidates {
		cfg, err := LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	return Defaults(), "", nil
}

// LoadFile reads one file over the defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Defaults()
	if err := Decode(bufio.NewReader(f), cfg); err != nil {
		// Add file name to errors that have a line number.
		if _, ok := err.(*toml.LineError); ok {
			err = errors.New(path + ", " + err.Error())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r into cfg.
func Decode(r io.Reader, cfg *Config) error {
	return tomlSettings.NewDecoder(r).Decode(cfg)
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *Config) error {
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	switch c.Output.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("output.color must be \"auto\", \"always\" or \"never\", got %q", c.Output.Color)
	}
	if c.Imports.CacheSize < 0 {
		return fmt.Errorf("imports.cache_size must not be negative, got %d", c.Imports.CacheSize)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: unknown level %q", s)
	}
	return level, nil
}

// NewLogger builds the logger described by the [log] section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// HistoryPath returns the REPL history file, defaulting to
// ~/.ember/history. It returns "" when no location is available.
func (c *Config) HistoryPath() string {
	if c.Repl.HistoryFile != "" {
		return expandHome(c.Repl.HistoryFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ember", "history")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
