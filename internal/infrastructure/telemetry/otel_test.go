package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), Config{ServiceName: "ledger-test"}, nil)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(context.Background()))

	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)
	bridged := p.BridgeLogger(base, zapcore.InfoLevel)
	assert.Same(t, base, bridged)
	bridged.Info("hello")
	assert.Equal(t, 1, logs.Len())

	p.EnableSpanProfiles()
}

func TestProviders_NilSafe(t *testing.T) {
	var p *Providers
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	traceID := trace.TraceID{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	params := sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: traceID, Name: "op"}

	tests := []struct {
		ratio float64
		want  sdktrace.SamplingDecision
	}{
		{1, sdktrace.RecordAndSample},
		{2, sdktrace.RecordAndSample},
		{0, sdktrace.Drop},
		{-1, sdktrace.Drop},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sampler(tt.ratio).ShouldSample(params).Decision, "ratio %v", tt.ratio)
	}
	assert.Contains(t, Sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestLevelCore(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	filtered := &levelCore{Core: core, min: zapcore.WarnLevel}
	log := zap.New(filtered).With(zap.String("k", "v"))

	log.Info("dropped")
	log.Warn("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "v", entry.ContextMap()["k"])
	assert.False(t, filtered.Enabled(zapcore.DebugLevel))
}
