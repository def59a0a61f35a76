package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flaky struct {
	failures int
	calls    int
}

func (f *flaky) Name() string  { return "flaky" }
func (f *flaky) Model() string { return "flaky" }

func (f *flaky) Generate(_ context.Context, _ string, _ Options) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient")
	}
	return "ok", nil
}

func TestResilientRetriesTransientFailures(t *testing.T) {
	inner := &flaky{failures: 2}
	client := WithPolicy(inner, time.Second, 3, time.Millisecond)
	out, err := client.Generate(context.Background(), "hello", Options{})
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if out != "ok" {
		t.Fatalf("expected ok, got %q", out)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", inner.calls)
	}
}

func TestResilientGivesUpAfterMaxRetries(t *testing.T) {
	inner := &flaky{failures: 10}
	client := WithPolicy(inner, time.Second, 2, time.Millisecond)
	if _, err := client.Generate(context.Background(), "hello", Options{}); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 attempts (1 initial + 2 retries), got %d", inner.calls)
	}
}
