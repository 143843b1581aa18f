// Package config loads romforge settings from TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"romforge/internal/editor"
	"romforge/internal/fsx"
	"romforge/internal/logging"
)

const defaultConfigPath = "~/.config/romforge/config.toml"

// Paths holds output and storage locations.
type Paths struct {
	// RipDir receives ripped artifacts. Empty means next to the source.
	RipDir string `toml:"rip_dir"`
	// HistoryDB is the SQLite history file. Empty disables history.
	HistoryDB string `toml:"history_db"`
}

// Session is the state remembered between runs.
type Session struct {
	Language int    `toml:"language"`
	LastPath string `toml:"last_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for romforge.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Session Session `toml:"session"`
	Logging Logging `toml:"logging"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: Paths{
			HistoryDB: "~/.local/share/romforge/history.db",
		},
		Session: Session{Language: int(editor.LanguageDefault)},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load parses and validates the config at path (the default location when
// empty). A missing file yields the defaults. The returned bool reports
// whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config %s is a directory", expanded)
	}
	return expanded, true, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.RipDir, err = expandPath(strings.TrimSpace(c.Paths.RipDir)); err != nil {
		return fmt.Errorf("paths.rip_dir: %w", err)
	}
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	if c.Session.LastPath, err = expandPath(strings.TrimSpace(c.Session.LastPath)); err != nil {
		return fmt.Errorf("session.last_path: %w", err)
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if !editor.Language(c.Session.Language).Valid() {
		return fmt.Errorf("session.language must be between 0 and %d, got %d", len(editor.Languages())-1, c.Session.Language)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

// Language returns the configured session language.
func (c *Config) Language() editor.Language {
	return editor.Language(c.Session.Language)
}

// SaveState records the session language and last opened path in the config
// file at path, keeping every other setting as written.
func SaveState(path string, lang editor.Language, lastPath string) error {
	if !lang.Valid() {
		return fmt.Errorf("session language %d out of range", int(lang))
	}
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return err
		}
	}
	cfg.Session.Language = int(lang)
	cfg.Session.LastPath = lastPath

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := fsx.WriteFileAtomic(filepath.Dir(resolved), filepath.Base(resolved), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
