// Package telemetry provides the telemetry.otlp module, which exports job
// execution spans over OTLP/HTTP.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
)

func init() {
	core.RegisterModule(&Module{})
}

// Config configures the OTLP exporter.
type Config struct {
	// Endpoint is host:port of the collector. Defaults to localhost:4318.
	Endpoint string            `yaml:"endpoint"`
	URLPath  string            `yaml:"url_path"`
	Insecure bool              `yaml:"insecure"`
	Headers  map[string]string `yaml:"headers"`
	Timeout  time.Duration     `yaml:"timeout"`

	ServiceName string `yaml:"service_name"`

	// SampleRatio is the fraction of root traces kept, 0 to 1. Defaults to 1.
	SampleRatio *float64 `yaml:"sample_ratio"`
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.ServiceName == "" {
		c.ServiceName = "riddhi"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.SampleRatio == nil {
		ratio := 1.0
		c.SampleRatio = &ratio
	}
}

func (c *Config) validate() error {
	var errs []error
	if r := *c.SampleRatio; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("telemetry: sample_ratio must be between 0 and 1, got %g", r))
	}
	return errors.Join(errs...)
}

// exporterFunc builds the span exporter. Tests swap in an in-memory one.
type exporterFunc func(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error)

// Module installs an SDK tracer provider and registers it as
// core.ServiceTracerProvider.
type Module struct {
	config      Config
	logger      *slog.Logger
	newExporter exporterFunc
	provider    *sdktrace.TracerProvider
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "telemetry.otlp",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("telemetry: decoding config: %w", err)
	}
	m.config.defaults()
	return m.config.validate()
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.logger = ctx.Logger
	if m.newExporter == nil {
		m.newExporter = otlpExporter
	}

	exp, err := m.newExporter(context.Background(), m.config)
	if err != nil {
		return fmt.Errorf("telemetry: creating exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", m.config.ServiceName),
	)
	m.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(*m.config.SampleRatio))),
	)
	ctx.RegisterService(core.ServiceTracerProvider, trace.TracerProvider(m.provider))
	return nil
}

// Start implements core.Starter. The provider also becomes the global one,
// for libraries that trace through otel.GetTracerProvider.
func (m *Module) Start() error {
	otel.SetTracerProvider(m.provider)
	m.logger.Info("telemetry: exporting traces", "endpoint", m.config.Endpoint, "sample_ratio", *m.config.SampleRatio)
	return nil
}

// Stop implements core.Stopper. Buffered spans are flushed before shutdown.
func (m *Module) Stop(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	if err := m.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: shutdown: %w", err)
	}
	return nil
}

// TracerProvider returns the installed provider.
func (m *Module) TracerProvider() *sdktrace.TracerProvider {
	return m.provider
}

func otlpExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithTimeout(cfg.Timeout),
	}
	if cfg.URLPath != "" {
		opts = append(opts, otlptracehttp.WithURLPath(cfg.URLPath))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}
