package security

import (
	"encoding/json"
	"io"
	"maps"
	"sync"
	"time"
)

// EventType categorizes audit events.
type EventType string

// Admin audit events.
const (
	EventAuthSuccess  EventType = "auth_success"
	EventAuthFailure  EventType = "auth_failure"
	EventRateLimit    EventType = "rate_limit"
	EventJobTrigger   EventType = "job_trigger"
	EventJobEnable    EventType = "job_enable"
	EventJobDisable   EventType = "job_disable"
	EventConfigReload EventType = "config_reload"
)

// AuditEvent is one audit log entry.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Job       string            `json:"job,omitempty"`
	Remote    string            `json:"remote,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditLoggerConfig configures an AuditLogger.
type AuditLoggerConfig struct {
	// Writer receives JSON lines. Nil only dispatches to OnEvent.
	Writer io.Writer

	// Redactor, if set, masks Detail and Metadata values.
	Redactor *Redactor

	// OnEvent is called for every event.
	OnEvent func(AuditEvent)

	Now func() time.Time
}

// AuditLogger writes admin actions as JSON lines.
type AuditLogger struct {
	cfg AuditLoggerConfig
	mu  sync.Mutex
}

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &AuditLogger{cfg: cfg}
}

// Log records event, stamping its time. The caller's metadata map is not
// modified.
func (l *AuditLogger) Log(event AuditEvent) {
	if l == nil {
		return
	}
	event.Timestamp = l.cfg.Now()
	event.Metadata = maps.Clone(event.Metadata)

	if r := l.cfg.Redactor; r != nil {
		event.Detail = r.Redact(event.Detail)
		for k, v := range event.Metadata {
			event.Metadata[k] = r.Redact(v)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cfg.OnEvent != nil {
		l.cfg.OnEvent(event)
	}
	if l.cfg.Writer != nil {
		_ = json.NewEncoder(l.cfg.Writer).Encode(event)
	}
}
