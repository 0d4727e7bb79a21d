package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestHTTPClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"unavailable", &StatusError{Service: "x", StatusCode: http.StatusServiceUnavailable}, ErrorClassification{Retryable: true, RecordFailure: true}},
		{"too many", fmt.Errorf("call: %w", &StatusError{StatusCode: http.StatusTooManyRequests}), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"not found", &StatusError{StatusCode: http.StatusNotFound}, ErrorClassification{}},
		{"network", fmt.Errorf("dial: %w", timeoutError{}), ErrorClassification{Retryable: true, RecordFailure: true}},
		{"canceled", context.Canceled, ErrorClassification{}},
		{"deadline", context.DeadlineExceeded, ErrorClassification{RecordFailure: true}},
		{"decode", errors.New("bad json"), ErrorClassification{RecordFailure: true}},
	}
	for _, tt := range tests {
		if got := HTTPClassifier(tt.err); got != tt.want {
			t.Errorf("%s: HTTPClassifier() = %+v, want %+v", tt.name, got, tt.want)
		}
	}
}

func TestCheckResponseKeepsBody(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader("upstream down"))}
	err := CheckResponse("engine", resp)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("CheckResponse() error = %v", err)
	}
	if err.Error() != "engine status 502: upstream down" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if CheckResponse("engine", &http.Response{StatusCode: http.StatusOK}) != nil {
		t.Fatal("2xx must not be an error")
	}
}

func TestMarkTemporary(t *testing.T) {
	if err := MarkTemporary("op", &StatusError{StatusCode: http.StatusServiceUnavailable}); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if err := MarkTemporary("op", &StatusError{StatusCode: http.StatusBadRequest}); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary: %v", err)
	}
	if MarkTemporary("op", nil) != nil {
		t.Fatal("nil must stay nil")
	}
}
