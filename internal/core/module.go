// Package core provides the module system riddhi is assembled from: storage
// backends, the scheduler, and the HTTP gateway are all modules registered
// from init() and wired together through a shared service registry.
package core

import "strings"

// ModuleID is a dotted identifier such as "execution.sqlite". The part before
// the first dot is the namespace.
type ModuleID string

// Namespace returns the part of the ID before the first dot.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// Name returns the part of the ID after the first dot, or the whole ID when
// it has no namespace.
func (id ModuleID) Name() string {
	_, name, ok := strings.Cut(string(id), ".")
	if !ok {
		return string(id)
	}
	return name
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	ID  ModuleID
	New func() Module
}

// Module is implemented by everything the App can load.
type Module interface {
	ModuleInfo() ModuleInfo
}
