package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

func fastConfig(breaker bool) Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     time.Millisecond,
		RetryMaxBackoff:         2 * time.Millisecond,
		RetryMultiplier:         2,
		BreakerEnabled:          breaker,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	}
}

type countingObserver struct {
	mu      sync.Mutex
	retries int
	states  []string
}

func (o *countingObserver) OnRetry(string, int) {
	o.mu.Lock()
	o.retries++
	o.mu.Unlock()
}

func (o *countingObserver) OnBreakerState(_ string, state string) {
	o.mu.Lock()
	o.states = append(o.states, state)
	o.mu.Unlock()
}

func newTestExecutor(breaker bool) (*Executor, *countingObserver) {
	obs := &countingObserver{}
	return NewExecutor(fastConfig(breaker), WithLogger(slog.New(slog.DiscardHandler)), WithObserver(obs)), obs
}

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec, obs := newTestExecutor(false)

	attempts := 0
	err := exec.Execute(context.Background(), "summarize", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return domain.WrapError(domain.ErrTemporary, "call engine", errors.New("503"))
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if attempts != 3 || obs.retries != 2 {
		t.Fatalf("expected 3 attempts and 2 retries, got %d and %d", attempts, obs.retries)
	}
}

func TestExecuteDoesNotRetryInvalidInput(t *testing.T) {
	exec, _ := newTestExecutor(false)

	attempts := 0
	err := exec.Execute(context.Background(), "summarize", func(context.Context) error {
		attempts++
		return domain.WrapError(domain.ErrInvalidInput, "call engine", errors.New("400"))
	}, nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec, obs := newTestExecutor(true)
	boom := errors.New("engine down")
	permanent := func(error) ErrorClassification { return ErrorClassification{RecordFailure: true} }

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "speech", func(context.Context) error { return boom }, permanent)
		if !errors.Is(err, boom) {
			t.Fatalf("iteration %d: expected engine error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "speech", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, permanent)
	if !errors.Is(err, gobreaker.ErrOpenState) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected open state reported as temporary, got %v", err)
	}
	if len(obs.states) == 0 || obs.states[0] != gobreaker.StateOpen.String() {
		t.Fatalf("expected breaker open transition, got %v", obs.states)
	}

	// breakers are per operation
	if err := exec.Execute(context.Background(), "summarize", func(context.Context) error { return nil }, permanent); err != nil {
		t.Fatalf("unrelated operation must not be blocked: %v", err)
	}
}

func TestExecuteStopsOnCancel(t *testing.T) {
	exec, _ := newTestExecutor(false)
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := exec.Execute(ctx, "queue", func(context.Context) error {
		attempts++
		cancel()
		return domain.WrapError(domain.ErrTemporary, "publish", errors.New("timeout"))
	}, nil)
	if err == nil || attempts != 1 {
		t.Fatalf("expected single attempt with error, got %d, %v", attempts, err)
	}
}

func TestDoReturnsValue(t *testing.T) {
	exec, _ := newTestExecutor(true)
	got, err := Do(context.Background(), exec, "count", func(context.Context) (string, error) {
		return "ok", nil
	}, nil)
	if err != nil || got != "ok" {
		t.Fatalf("Do() = %q, %v", got, err)
	}

	_, err = Do(context.Background(), exec, "count", func(context.Context) (int, error) {
		return 0, fmt.Errorf("wrapped: %w", domain.ErrDocumentNotFound)
	}, nil)
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDomainClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"temporary", domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), ErrorClassification{}},
		{"canceled", context.Canceled, ErrorClassification{}},
		{"deadline", context.DeadlineExceeded, ErrorClassification{RecordFailure: true}},
		{"other", errors.New("x"), ErrorClassification{RecordFailure: true}},
	}
	for _, tt := range tests {
		if got := DomainClassifier(tt.err); got != tt.want {
			t.Errorf("%s: DomainClassifier() = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeAndBackoff(t *testing.T) {
	cfg := Config{RetryInitialBackoff: time.Second, RetryMaxBackoff: time.Millisecond}.normalize()
	if cfg.RetryMaxBackoff != time.Second {
		t.Fatalf("max backoff must not be below the initial backoff, got %s", cfg.RetryMaxBackoff)
	}
	if cfg.RetryMaxAttempts != DefaultConfig().RetryMaxAttempts {
		t.Fatalf("expected default attempts, got %d", cfg.RetryMaxAttempts)
	}

	q := QueueConfig().normalize()
	wait := q.RetryInitialBackoff
	for i := 0; i < 10; i++ {
		wait = q.nextBackoff(wait)
	}
	if wait != q.RetryMaxBackoff {
		t.Fatalf("expected backoff capped at %s, got %s", q.RetryMaxBackoff, wait)
	}
}
