// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for riddhi.
package config

import "gopkg.in/yaml.v3"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir overrides the directory where SQLite files are kept.
	DataDir string `yaml:"data_dir,omitempty"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "execution.sqlite").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// Generic decodes the file into plain maps, for display with secrets
// redacted.
func (c *Config) Generic() (map[string]any, error) {
	out := map[string]any{"version": c.Version}
	if c.DataDir != "" {
		out["data_dir"] = c.DataDir
	}
	mods := make(map[string]any, len(c.Modules))
	for id, node := range c.Modules {
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		if v == nil {
			v = map[string]any{}
		}
		mods[id] = v
	}
	out["modules"] = mods
	return out, nil
}
