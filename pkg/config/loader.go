package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	groveconfig "github.com/mattsolo1/grove-core/config"
	grovelogging "github.com/mattsolo1/grove-core/logging"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultOverrideFile is read from the project directory when no
	// explicit path is given.
	DefaultOverrideFile = "assets.yml"

	// ExtensionName is the grove.yml section holding pipeline settings.
	ExtensionName = "assets"
)

var log = grovelogging.NewLogger("grove-assets.config")

// Layer is one level of configuration as a top-level key/value document.
type Layer map[string]interface{}

// Load builds the effective configuration from the built-in defaults, the
// "assets" extension of grove.yml in dir, and the override file. An empty
// overridePath means DefaultOverrideFile in dir. A missing override file is not an
// error.
func Load(dir, overridePath string) (*Config, error) {
	var layers []Layer

	ext, err := loadGroveExtension(dir)
	if err != nil {
		return nil, err
	}
	if ext != nil {
		layers = append(layers, ext)
	}

	explicit := overridePath != ""
	if !explicit {
		overridePath = filepath.Join(dir, DefaultOverrideFile)
	}
	override, err := ReadLayer(overridePath)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
		log.Info("No custom config found! Proceeding with default config only.")
	case err != nil:
		return nil, err
	default:
		layers = append(layers, override)
	}

	return Merge(Default(), layers...)
}

// ReadLayer parses a YAML override file into a Layer.
func ReadLayer(path string) (Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var layer Layer
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if layer == nil {
		layer = Layer{}
	}
	return layer, nil
}

// Merge applies layers over base in order. Each key present in a layer
// replaces the whole top-level value beneath it; nested values are not merged.
func Merge(base *Config, layers ...Layer) (*Config, error) {
	data, err := yaml.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("marshal base config: %w", err)
	}
	merged := Layer{}
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("unmarshal base config: %w", err)
	}

	for _, layer := range layers {
		for key, value := range layer {
			if _, known := merged[key]; !known {
				log.WithField("key", key).Warn("Ignoring unknown configuration key")
				continue
			}
			merged[key] = value
		}
	}

	out, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshal merged config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(out))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode merged config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadGroveExtension returns the "assets" section of grove.yml, or nil when
// there is no grove config or no such section.
func loadGroveExtension(dir string) (Layer, error) {
	coreCfg, err := groveconfig.LoadFrom(dir)
	if err != nil {
		// It's okay if the core config doesn't exist.
		return nil, nil
	}

	var ext Layer
	if err := coreCfg.UnmarshalExtension(ExtensionName, &ext); err != nil {
		return nil, fmt.Errorf("failed to parse '%s' configuration from grove.yml: %w", ExtensionName, err)
	}
	if len(ext) == 0 {
		return nil, nil
	}
	return ext, nil
}
