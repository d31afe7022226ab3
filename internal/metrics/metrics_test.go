package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second Register: %v", err)
	}
}

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = Register(reg)
	before := testutil.ToFloat64(botRestarts)
	IncRestart()
	if got := testutil.ToFloat64(botRestarts); got != before+1 {
		t.Fatalf("restarts=%v want %v", got, before+1)
	}
	lb := testutil.ToFloat64(outputLines.WithLabelValues("stdout"))
	IncLine("stdout")
	if got := testutil.ToFloat64(outputLines.WithLabelValues("stdout")); got != lb+1 {
		t.Fatalf("stdout lines=%v want %v", got, lb+1)
	}
}
