package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

// recordSpans routes spans to an in-memory recorder for the rest of the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	UseTracerProvider(tp, true)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		UseTracerProvider(noop.NewTracerProvider(), false)
	})
	return sr
}

func attrMap(kvs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(kvs))
	for _, kv := range kvs {
		m[kv.Key] = kv.Value
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "refperm", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Init(ctx, DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown(ctx))
	assert.False(t, IsEnabled())

	spanCtx, span := StartSpan(ctx, SpanCheckRef)
	defer span.End()
	assert.False(t, span.IsRecording())
	assert.Empty(t, TraceID(spanCtx))
	assert.Empty(t, SpanID(spanCtx))

	// No-ops on a non-recording span.
	SetAttributes(spanCtx, Allowed(true))
	RecordError(spanCtx, errors.New("ignored"))
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "root:AlwaysOnSampler"},
		{2.0, "root:AlwaysOnSampler"},
		{0, "root:AlwaysOffSampler"},
		{-1, "root:AlwaysOffSampler"},
		{0.5, "root:TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		desc := newSampler(tt.rate).Description()
		assert.Contains(t, desc, "ParentBased")
		assert.Contains(t, desc, tt.want, "rate %v", tt.rate)
	}
}

func TestStartCheckSpan(t *testing.T) {
	sr := recordSpans(t)
	assert.True(t, IsEnabled())

	ctx, span := StartCheckSpan(context.Background(), SpanCheckRef, "demo", "UPDATE",
		Ref("refs/heads/main"), Username("alice"))
	assert.Len(t, TraceID(ctx), 32)
	assert.Len(t, SpanID(ctx), 16)

	SetAttributes(ctx, Allowed(false))
	RecordError(ctx, errors.New("project not found"))
	RecordError(ctx, nil)
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, SpanCheckRef, s.Name())

	attrs := attrMap(s.Attributes())
	assert.Equal(t, "demo", attrs[AttrProject].AsString())
	assert.Equal(t, "UPDATE", attrs[AttrPermission].AsString())
	assert.Equal(t, "refs/heads/main", attrs[AttrRef].AsString())
	assert.Equal(t, "alice", attrs[AttrUsername].AsString())
	assert.False(t, attrs[AttrAllowed].AsBool())

	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "project not found", s.Status().Description)
	assert.Len(t, s.Events(), 1, "only the non-nil error is recorded")
}

func TestStartProjectSpan(t *testing.T) {
	sr := recordSpans(t)

	ctx, span := StartProjectSpan(context.Background(), SpanProjectLoad, "platform/api",
		Generation(3), Revision("3f2a"))
	_, child := StartProjectSpan(ctx, SpanSetParent, "platform/api", Parent("platform"))
	child.End()
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, SpanSetParent, ended[0].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())

	attrs := attrMap(ended[1].Attributes())
	assert.Equal(t, "platform/api", attrs[AttrProject].AsString())
	assert.Equal(t, int64(3), attrs[AttrGeneration].AsInt64())
	assert.Equal(t, "3f2a", attrs[AttrRevision].AsString())
	assert.Equal(t, "platform", attrMap(ended[0].Attributes())[AttrParent].AsString())
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		kv  attribute.KeyValue
		key string
	}{
		{Permission("READ"), AttrPermission},
		{Project("demo"), AttrProject},
		{Parent("All-Projects"), AttrParent},
		{Ref("refs/heads/main"), AttrRef},
		{Change(42), AttrChange},
		{Username("alice"), AttrUsername},
		{Allowed(true), AttrAllowed},
		{Sections(4), AttrSections},
		{CacheHit(true), AttrCacheHit},
		{Generation(1), AttrGeneration},
		{Revision("r1"), AttrRevision},
		{StoreType("yaml"), AttrStoreType},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, string(tt.kv.Key))
		assert.True(t, tt.kv.Valid(), tt.key)
	}
	assert.Equal(t, int64(42), Change(42).Value.AsInt64())
}

func TestInitProfiling(t *testing.T) {
	stop, err := InitProfiling(ProfilingConfig{})
	require.NoError(t, err)
	assert.NoError(t, stop())
	assert.False(t, IsProfilingEnabled())

	_, err = InitProfiling(ProfilingConfig{Enabled: true, ProfileTypes: []string{"cpu", "heap"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown profile type "heap"`)
	assert.False(t, IsProfilingEnabled())
}

func TestParseProfileTypes(t *testing.T) {
	types, err := parseProfileTypes([]string{"cpu", "inuse_space", "mutex_count"})
	require.NoError(t, err)
	assert.Len(t, types, 3)

	types, err = parseProfileTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, types)
}
