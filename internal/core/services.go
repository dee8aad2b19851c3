package core

// Well-known service names shared between modules.
const (
	ServiceMetricsRegistry = "metrics.registry"          // prometheus.Registerer
	ServiceMetricsGatherer = "metrics.gatherer"          // prometheus.Gatherer
	ServiceTracerProvider  = "telemetry.tracer_provider" // trace.TracerProvider
	ServiceExecutionStore  = "execution.store"           // execution.Store
	ServiceLedger          = "ledger.store"              // jobs.Ledger, notify.Notifier
	ServiceScheduler       = "scheduler"                 // *cron.Scheduler
	ServiceSchedulerAdmin  = "scheduler.admin"           // *cron.Admin
	ServiceReloader        = "config.reloader"           // *reload.Handler
	ServiceRedactor        = "security.redactor"         // *security.Redactor
	ServiceAuditLogger     = "security.audit"            // *security.AuditLogger
)
