package core

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// moduleRegistry holds the modules compiled into the binary.
type moduleRegistry struct {
	mu   sync.RWMutex
	byID map[ModuleID]ModuleInfo
}

func newModuleRegistry() *moduleRegistry {
	return &moduleRegistry{byID: make(map[ModuleID]ModuleInfo)}
}

var modules = newModuleRegistry()

func (r *moduleRegistry) add(info ModuleInfo) error {
	switch {
	case info.ID == "":
		return errors.New("module ID must not be empty")
	case info.ID.Namespace() == string(info.ID):
		return fmt.Errorf("module %s: ID must be <namespace>.<name>", info.ID)
	case info.New == nil:
		return fmt.Errorf("module %s: New function must not be nil", info.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[info.ID]; exists {
		return fmt.Errorf("module already registered: %s", info.ID)
	}
	r.byID[info.ID] = info
	return nil
}

func (r *moduleRegistry) get(id ModuleID) (ModuleInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byID[id]
	return info, ok
}

// matching returns the modules whose ID has prefix, sorted by ID.
func (r *moduleRegistry) matching(prefix string) []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ModuleInfo
	for id, info := range r.byID {
		if strings.HasPrefix(string(id), prefix) {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b ModuleInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// RegisterModule records a module so it can be loaded by ID. It is called
// from init() and panics on a malformed or duplicate registration.
func RegisterModule(instance Module) {
	if err := modules.add(instance.ModuleInfo()); err != nil {
		panic(err.Error())
	}
}

// GetModule returns the ModuleInfo for id.
func GetModule(id string) (ModuleInfo, bool) {
	return modules.get(ModuleID(id))
}

// GetModules returns every compiled-in module sorted by ID.
func GetModules() []ModuleInfo {
	return modules.matching("")
}

// GetModulesByNamespace returns the modules of one namespace, such as the
// available execution store backends, sorted by ID.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return modules.matching(namespace + ".")
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	modules = newModuleRegistry()
}
