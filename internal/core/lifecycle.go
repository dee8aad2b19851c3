package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable is implemented by modules that accept YAML configuration.
// Called after instantiation and before Provision().
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after instantiation:
// opening databases, resolving services registered by earlier modules, and
// registering their own.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can verify their configuration
// is complete and correct. Called after Provision(). Must be read-only.
type Validator interface {
	Validate() error
}

// Starter is implemented by modules that run background work (timers,
// listeners, sweepers). Called after every module is provisioned.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that need to release resources.
// Called during shutdown in reverse start order.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Reloader is implemented by modules that support live configuration reload.
// The context carries the freshly loaded module configs.
type Reloader interface {
	Reload(ctx *AppContext) error
}
