package app

// Compiled-in modules. Each registers itself from init().
import (
	_ "github.com/ashutoshgairola/Riddhi-sub001/internal/gateway"
	_ "github.com/ashutoshgairola/Riddhi-sub001/internal/telemetry"
	_ "github.com/ashutoshgairola/Riddhi-sub001/modules/execution/postgres"
	_ "github.com/ashutoshgairola/Riddhi-sub001/modules/execution/sqlite"
	_ "github.com/ashutoshgairola/Riddhi-sub001/modules/ledger/sqlite"
	_ "github.com/ashutoshgairola/Riddhi-sub001/modules/scheduler"
)
