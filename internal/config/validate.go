package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
)

// Validate checks the structural validity of a Config.
// It verifies the version field, ensures modules are present, checks that
// all referenced module IDs exist in the registry, and that exactly one
// execution store backend is configured.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for _, id := range Resolve(cfg) {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateStack(cfg)...)

	return errors.Join(errs...)
}

// validateStack checks the cross-module requirements of the scheduler.
func validateStack(cfg *Config) []error {
	var errs []error

	stores := namespace(cfg, "execution")
	switch {
	case len(stores) > 1:
		errs = append(errs, fmt.Errorf("config: exactly one execution store must be configured, got %s", strings.Join(stores, ", ")))
	case len(stores) == 0 && len(namespace(cfg, "scheduler")) > 0:
		errs = append(errs, fmt.Errorf("config: scheduler.cron requires an execution store module (one of: %s)", strings.Join(available("execution"), ", ")))
	}

	if len(namespace(cfg, "scheduler")) > 0 && len(namespace(cfg, "ledger")) == 0 {
		errs = append(errs, errors.New("config: scheduler.cron requires a ledger module (ledger.sqlite)"))
	}

	return errs
}

// namespace returns the configured modules registered under ns, sorted by ID.
// Unknown IDs are reported by Validate and never count toward a namespace.
func namespace(cfg *Config, ns string) []string {
	var ids []string
	for _, info := range core.GetModulesByNamespace(ns) {
		if _, ok := cfg.Modules[string(info.ID)]; ok {
			ids = append(ids, string(info.ID))
		}
	}
	return ids
}

// available returns every module compiled in under ns.
func available(ns string) []string {
	infos := core.GetModulesByNamespace(ns)
	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = string(info.ID)
	}
	return ids
}
