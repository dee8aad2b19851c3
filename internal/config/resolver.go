package config

import (
	"cmp"
	"slices"
	"strings"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
)

// tiers orders module namespaces so that providers of a service provision
// before the modules that look it up.
var tiers = map[string]int{
	"telemetry": 0,
	"execution": 1,
	"ledger":    2,
	"scheduler": 3,
	"gateway":   4,
}

// Resolve returns the configured module IDs in load order: by namespace
// tier, then alphabetically. Unknown namespaces load last.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(tier(a), tier(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return ids
}

func tier(id string) int {
	if t, ok := tiers[core.ModuleID(id).Namespace()]; ok {
		return t
	}
	return len(tiers)
}
