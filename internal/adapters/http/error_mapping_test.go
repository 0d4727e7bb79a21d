package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	cause := errors.New("cause")
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", domain.WrapError(domain.ErrInvalidInput, "op", cause), http.StatusBadRequest},
		{"unsupported", domain.WrapError(domain.ErrUnsupportedFormat, "op", cause), http.StatusUnsupportedMediaType},
		{"not found", fmt.Errorf("lookup: %w", domain.WrapError(domain.ErrDocumentNotFound, "op", cause)), http.StatusNotFound},
		{"conflict", domain.WrapError(domain.ErrConflict, "op", cause), http.StatusConflict},
		{"temporary", domain.WrapError(domain.ErrTemporary, "op", cause), http.StatusServiceUnavailable},
		{"io", domain.WrapError(domain.ErrIOFailure, "op", cause), http.StatusInternalServerError},
		{"too large", fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{"unknown", cause, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
				t.Fatalf("mapErrorToHTTPStatus() = %d, want %d", got, tc.want)
			}
		})
	}
}
