package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietConfig(maxFailures int) FallbackConfig {
	return FallbackConfig{CircuitBreaker: CircuitBreakerConfig{
		MaxFailures:  maxFailures,
		ResetTimeout: time.Hour,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}}
}

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("primary", "primary", quietConfig(3))
	fg.AddFallback("secondary", "secondary")

	var called []string
	err := fg.Execute(context.Background(), func(v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(called) != 1 || called[0] != "primary" {
		t.Errorf("called = %v, want [primary]", called)
	}
}

func TestFallbackGroup_Failover(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("primary", "primary", quietConfig(3))
	fg.AddFallback("secondary", "secondary")

	got, err := ExecuteWithResult(context.Background(), fg, func(v string) (string, error) {
		if v == "primary" {
			return "", errTest
		}
		return "from " + v, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "from secondary" {
		t.Errorf("got %q, want %q", got, "from secondary")
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("a", "a", quietConfig(3))
	fg.AddFallback("b", "b")

	errB := errors.New("b down")
	_, err := ExecuteWithResult(context.Background(), fg, func(v string) (int, error) {
		if v == "a" {
			return 0, errTest
		}
		return 0, errB
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, errTest) || !errors.Is(err, errB) {
		t.Errorf("err = %v, want both entry errors joined", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("a", "a", quietConfig(1))
	fg.AddFallback("b", "b")

	calls := map[string]int{}
	fn := func(v string) error {
		calls[v]++
		if v == "a" {
			return errTest
		}
		return nil
	}
	for range 3 {
		if err := fg.Execute(context.Background(), fn); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if calls["a"] != 1 {
		t.Errorf("primary called %d times, want 1 (breaker should open)", calls["a"])
	}
	if calls["b"] != 3 {
		t.Errorf("fallback called %d times, want 3", calls["b"])
	}
}

func TestFallbackGroup_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("a", "a", quietConfig(3))
	fg.AddFallback("b", "b")

	ctx, cancel := context.WithCancel(context.Background())
	var called []string
	err := fg.Execute(ctx, func(v string) error {
		called = append(called, v)
		cancel()
		return errTest
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(called) != 1 {
		t.Errorf("called = %v, want only the primary", called)
	}
}

func TestFallbackGroup_Names(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup(1, "gemini", quietConfig(3))
	fg.AddFallback("openai", 2)
	names := fg.Names()
	if len(names) != 2 || names[0] != "gemini" || names[1] != "openai" {
		t.Errorf("Names() = %v", names)
	}
	if fg.Primary() != 1 {
		t.Errorf("Primary() = %d, want 1", fg.Primary())
	}
}

func TestFallbackGroup_Check(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("a", "a", quietConfig(1))
	fg.AddFallback("b", "b")
	ctx := context.Background()

	if err := fg.Check(ctx); err != nil {
		t.Fatalf("Check on fresh group: %v", err)
	}
	_ = fg.Execute(ctx, func(string) error { return errTest })
	if err := fg.Check(ctx); !errors.Is(err, ErrAllFailed) {
		t.Errorf("Check with every breaker open: err = %v, want ErrAllFailed", err)
	}
}
