package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"

	"github.com/ashutoshgairola/Riddhi-sub001/internal/core"
)

func configure(t *testing.T, m *Module, src string) error {
	t.Helper()
	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &doc))
	return m.Configure(doc.Content[0])
}

func newAppContext(t *testing.T) *core.AppContext {
	t.Helper()
	return core.NewAppContext(slog.New(slog.NewTextHandler(io.Discard, nil)), t.TempDir())
}

func TestConfigure_Defaults(t *testing.T) {
	t.Parallel()

	m := &Module{}
	require.NoError(t, configure(t, m, "{}"))

	assert.Equal(t, "localhost:4318", m.config.Endpoint)
	assert.Equal(t, "riddhi", m.config.ServiceName)
	require.NotNil(t, m.config.SampleRatio)
	assert.InDelta(t, 1.0, *m.config.SampleRatio, 0)
}

func TestConfigure_InvalidRatio(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"sample_ratio: 1.5", "sample_ratio: -0.1"} {
		err := configure(t, &Module{}, src)
		assert.ErrorContains(t, err, "sample_ratio", src)
	}
}

func TestConfigure_ZeroRatioAllowed(t *testing.T) {
	t.Parallel()

	m := &Module{}
	require.NoError(t, configure(t, m, "sample_ratio: 0"))
	assert.Zero(t, *m.config.SampleRatio)
}

func TestProvision_RegistersProviderAndExports(t *testing.T) {
	t.Parallel()

	exp := tracetest.NewInMemoryExporter()
	m := &Module{newExporter: func(context.Context, Config) (sdktrace.SpanExporter, error) { return exp, nil }}
	require.NoError(t, configure(t, m, "service_name: riddhi-test"))

	ctx := newAppContext(t)
	require.NoError(t, m.Provision(ctx))

	tp, ok := core.Lookup[trace.TracerProvider](ctx, core.ServiceTracerProvider)
	require.True(t, ok, "tracer provider not registered")

	_, span := tp.Tracer("test").Start(context.Background(), "cron.execute")
	span.End()
	require.NoError(t, m.TracerProvider().ForceFlush(context.Background()))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "cron.execute", spans[0].Name)
	assert.Contains(t, spans[0].Resource.Attributes(), attribute.String("service.name", "riddhi-test"))

	require.NoError(t, m.Stop(context.Background()))
}

func TestProvision_ZeroRatioDropsRootSpans(t *testing.T) {
	t.Parallel()

	exp := tracetest.NewInMemoryExporter()
	m := &Module{newExporter: func(context.Context, Config) (sdktrace.SpanExporter, error) { return exp, nil }}
	require.NoError(t, configure(t, m, "sample_ratio: 0"))
	require.NoError(t, m.Provision(newAppContext(t)))

	_, span := m.TracerProvider().Tracer("test").Start(context.Background(), "dropped")
	span.End()
	require.NoError(t, m.TracerProvider().ForceFlush(context.Background()))

	assert.Empty(t, exp.GetSpans())
	require.NoError(t, m.Stop(context.Background()))
}

func TestProvision_ExporterError(t *testing.T) {
	t.Parallel()

	m := &Module{newExporter: func(context.Context, Config) (sdktrace.SpanExporter, error) {
		return nil, errors.New("bad endpoint")
	}}
	err := m.Provision(newAppContext(t))
	assert.ErrorContains(t, err, "bad endpoint")
}

func TestProvision_RealExporter(t *testing.T) {
	t.Parallel()

	// Creating the OTLP exporter does not dial the collector.
	m := &Module{}
	require.NoError(t, configure(t, m, "endpoint: 127.0.0.1:1\ninsecure: true\nheaders: {x-api-key: k}"))
	require.NoError(t, m.Provision(newAppContext(t)))
	assert.NotNil(t, m.TracerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = m.Stop(ctx)
}

func TestStop_BeforeProvision(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&Module{}).Stop(context.Background()))
}
