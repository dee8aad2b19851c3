package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// envRef matches $${VAR} escapes as well as ${VAR} and ${VAR:-default}.
var envRef = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads the YAML file at path and parses it with Parse.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands environment references in raw and decodes the result.
// Unknown top-level keys are rejected; module bodies are decoded later by
// each module's Configure.
func Parse(raw []byte) (*Config, error) {
	expanded, err := expandEnv(raw, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	return &cfg, nil
}

// expandEnv substitutes ${VAR} with its value, ${VAR:-default} with the
// value or the default, and $${VAR} with the literal ${VAR}. Every variable
// that is unset and has no default is reported in one error.
func expandEnv(raw []byte, lookup func(string) (string, bool)) ([]byte, error) {
	var missing []string

	out := envRef.ReplaceAllFunc(raw, func(match []byte) []byte {
		if bytes.HasPrefix(match, []byte("$$")) {
			return match[1:]
		}
		subs := envRef.FindSubmatch(match)
		name := string(subs[1])
		if v, ok := lookup(name); ok {
			return []byte(v)
		}
		if subs[2] != nil || bytes.Contains(match, []byte(":-")) {
			return subs[2]
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return match
	})

	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("unresolved variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
