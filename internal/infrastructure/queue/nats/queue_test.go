package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

func TestEventRoundTrip(t *testing.T) {
	payload, err := encodeEvent("report.pdf", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}
	id, err := decodeEvent(payload)
	if err != nil || id != "report.pdf" {
		t.Fatalf("decodeEvent() = %q, %v", id, err)
	}
}

func TestDecodeEventAcceptsBareID(t *testing.T) {
	id, err := decodeEvent([]byte(" notes.txt \n"))
	if err != nil || id != "notes.txt" {
		t.Fatalf("decodeEvent() = %q, %v", id, err)
	}
	if _, err := decodeEvent([]byte(`{"published_at":"2025-01-01T00:00:00Z"}`)); err == nil {
		t.Fatalf("expected error for event without id")
	}
	if _, err := decodeEvent(nil); err == nil {
		t.Fatalf("expected error for empty event")
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	err := wrapTemporaryIfNeeded(fmt.Errorf("nats publish: %w", nats.ErrConnectionClosed))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	err = wrapTemporaryIfNeeded(fmt.Errorf("nats publish: %w", nats.ErrMaxPayload))
	if domain.IsKind(err, domain.ErrTemporary) || !errors.Is(err, nats.ErrMaxPayload) {
		t.Fatalf("payload errors are permanent, got %v", err)
	}
	if wrapTemporaryIfNeeded(nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	if c := classifyNATSError(context.Canceled); c.Retryable || c.RecordFailure {
		t.Fatalf("cancellation must be neutral, got %+v", c)
	}
}
