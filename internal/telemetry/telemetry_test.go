package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "disabled ignores fields", modify: func(c *Config) { c.Endpoint = "" }},
		{name: "enabled defaults", modify: func(c *Config) { c.Enabled = true }},
		{name: "http protocol", modify: func(c *Config) {
			c.Enabled = true
			c.Protocol = ProtocolHTTP
			c.Endpoint = "http://127.0.0.1:4318"
		}},
		{name: "ipv6 loopback", modify: func(c *Config) {
			c.Enabled = true
			c.Endpoint = "[::1]:4317"
		}},
		{name: "missing endpoint", modify: func(c *Config) {
			c.Enabled = true
			c.Endpoint = ""
		}, wantErr: "endpoint is required"},
		{name: "bad protocol", modify: func(c *Config) {
			c.Enabled = true
			c.Protocol = "udp"
		}, wantErr: "protocol must be"},
		{name: "insecure remote", modify: func(c *Config) {
			c.Enabled = true
			c.Endpoint = "otel.example.com:4317"
		}, wantErr: "only allowed to local endpoints"},
		{name: "tls remote", modify: func(c *Config) {
			c.Enabled = true
			c.Insecure = false
			c.Endpoint = "otel.example.com:4317"
		}},
		{name: "sampling out of range", modify: func(c *Config) {
			c.Enabled = true
			c.Sampling.Rate = 1.5
		}, wantErr: "sampling.rate"},
		{name: "zero shutdown timeout", modify: func(c *Config) {
			c.Enabled = true
			c.ShutdownTimeout = 0
		}, wantErr: "shutdown_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{Enabled: true, Endpoint: "collector:4317"}
	cfg.ApplyDefaults()

	assert.Equal(t, "collector:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "docmind", cfg.ServiceName)
	assert.Equal(t, 15*time.Second, cfg.Metrics.ExportInterval)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Insecure)
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), nil)
	require.NoError(t, err)

	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.ServiceName = ""

	tel, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Nil(t, tel)
}

func TestNew_WithExporters(t *testing.T) {
	ctx := context.Background()
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	spans := tracetest.NewInMemoryExporter()
	reader := sdkmetric.NewManualReader()
	tel, err := New(ctx, cfg, WithSpanExporter(spans), WithMetricReader(reader), WithoutGlobal())
	require.NoError(t, err)
	assert.True(t, tel.IsEnabled())

	_, span := tel.Tracer("docmind.test").Start(ctx, "work")
	span.SetAttributes(attribute.String("k", "v"))
	span.End()

	counter, err := tel.Meter("docmind.test").Int64Counter("work.count")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	require.NoError(t, tel.ForceFlush(ctx))
	got := spans.GetSpans()
	require.Len(t, got, 1)
	assert.Equal(t, "work", got[0].Name)

	var service string
	for _, kv := range got[0].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "docmind", service)

	require.NoError(t, tel.Shutdown(ctx))
	assert.False(t, tel.Health().Healthy)
	assert.False(t, tel.IsEnabled())
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		_ = tel.LoggerProvider()
		_ = tel.IsEnabled()
		_ = tel.Shutdown(context.Background())
		_ = tel.ForceFlush(context.Background())
		tel.SetLoggerProvider(nil)
	})
	assert.Equal(t, HealthStatus{Degraded: true}, tel.Health())
}

func TestTestTelemetry(t *testing.T) {
	ctx := context.Background()
	tt := NewTestTelemetry()

	_, span := tt.Tracer("docmind.test").Start(ctx, "rag.Ask")
	span.SetAttributes(attribute.Int("top_k", 10), attribute.Bool("sourcing", true))
	span.End()

	tt.AssertSpanExists(t, "rag.Ask")
	tt.AssertSpanAttribute(t, "rag.Ask", "top_k", int64(10))
	tt.AssertSpanAttribute(t, "rag.Ask", "sourcing", true)
	assert.Nil(t, tt.SpanByName("missing"))

	hist, err := tt.Meter("docmind.test").Float64Histogram("ask.duration")
	require.NoError(t, err)
	hist.Record(ctx, 0.25)

	rm, err := tt.Collect(ctx)
	require.NoError(t, err)
	m, ok := FindMetric(rm, "ask.duration")
	require.True(t, ok)
	assert.Equal(t, "ask.duration", m.Name)

	_, ok = FindMetric(rm, "nope")
	assert.False(t, ok)
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "host:4318", stripScheme("https://host:4318"))
	assert.Equal(t, "host:4318", stripScheme("http://host:4318"))
	assert.Equal(t, "host:4317", stripScheme("host:4317"))
}
