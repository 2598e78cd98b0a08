package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
)

// Format is a configuration file format.
type Format string

// Supported formats.
const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", flerrors.New(flerrors.ErrCodeInvalidConfig, "unsupported config format %q", filepath.Ext(path))
	}
}

// Load reads the configuration file at path on top of [Default], fills
// remaining zero values, and validates the result. An empty path returns
// the validated defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	format, err := FormatFromPath(path)
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, flerrors.Wrap(flerrors.ErrCodeInvalidConfig, err, "read config")
	}
	if err := Decode(bytes.NewReader(data), format, &cfg); err != nil {
		return cfg, err
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// Decode decodes r in the given format into cfg. Fields absent from the
// input keep their current values.
func Decode(r io.Reader, format Format, cfg *Config) error {
	var err error
	switch format {
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(cfg)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(cfg)
		if err == io.EOF {
			err = nil
		}
	case FormatJSON:
		err = json.NewDecoder(r).Decode(cfg)
	default:
		return flerrors.New(flerrors.ErrCodeInvalidConfig, "unsupported config format %q", format)
	}
	if err != nil {
		return flerrors.Wrap(flerrors.ErrCodeInvalidConfig, err, "parse %s config", format)
	}
	return nil
}

// Encode writes cfg to w in the given format.
func Encode(w io.Writer, format Format, cfg Config) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(cfg)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
}
