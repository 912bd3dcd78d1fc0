package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// EnvConfig names a config file when no -config flag is given.
const EnvConfig = "TERRATILER_CONFIG"

// Load builds the job configuration from defaults, then the first config
// file found, then flags. flags may be nil.
//
// Relative input and output paths in a file are taken relative to the
// file's directory.
func Load(flags *Flags) (*Config, error) {
	cfg := Default()

	path := flags.ConfigPath()
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	flags.apply(cfg)
	return cfg, nil
}

func findConfigFile() string {
	for _, path := range []string{
		"terratiler.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	} {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user config directory.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Terratiler")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Terratiler")
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "terratiler")
	}
	return filepath.Join(home, ".config", "terratiler")
}

// loadFromFile merges the YAML file at path into cfg. Unknown keys are an
// error so a misspelled setting does not silently keep its default.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	before := *cfg
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	dir := filepath.Dir(path)
	resolve(dir, &cfg.Job.Input, before.Job.Input)
	resolve(dir, &cfg.Job.Output, before.Job.Output)
	resolve(dir, &cfg.Logging.LogFile, before.Logging.LogFile)
	resolve(dir, &cfg.Metrics.Textfile, before.Metrics.Textfile)
	return nil
}

// resolve joins a path set by the file onto dir.
func resolve(dir string, path *string, prev string) {
	if *path == prev || *path == "" || filepath.IsAbs(*path) {
		return
	}
	*path = filepath.Join(dir, *path)
}
