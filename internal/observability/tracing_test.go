package observability

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestInitTracer_LazyConnection(t *testing.T) {
	// gRPC dials lazily, so an unreachable collector does not fail init
	shutdown, err := InitTracer(context.Background(), TracingConfig{
		ServiceName:   "castplane-test",
		CollectorAddr: "invalid-endpoint:9999",
		SampleRatio:   1,
	})
	if err != nil {
		t.Logf("InitTracer failed in this environment: %v", err)
		return
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function to be non-nil")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	_ = shutdown(shutdownCtx)
}

func TestTracer_StartsSpans(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "test")
	defer span.End()

	if span == nil {
		t.Fatal("expected a span")
	}
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1, "root:AlwaysOnSampler"},
		{2, "root:AlwaysOnSampler"},
		{0, "root:AlwaysOffSampler"},
		{0.25, "root:TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		desc := sampler(tt.ratio).Description()
		if !strings.HasPrefix(desc, "ParentBased{") {
			t.Errorf("sampler(%v) = %s, want a parent-based sampler", tt.ratio, desc)
		}
		if !strings.Contains(desc, tt.want) {
			t.Errorf("sampler(%v) = %s, want %s", tt.ratio, desc, tt.want)
		}
	}
}
