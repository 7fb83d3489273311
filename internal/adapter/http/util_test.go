package adapthttp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"weightlog/internal/app"
	"weightlog/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("add: %w", domain.ErrInvalidValue), http.StatusBadRequest},
		{domain.ErrInvalidDate, http.StatusBadRequest},
		{app.ErrLocked, http.StatusUnauthorized},
		{app.ErrAuthInProgress, http.StatusConflict},
		{fmt.Errorf("%w: %w", app.ErrPersistence, errors.New("disk full")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
