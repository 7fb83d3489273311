package app

import (
	"errors"

	"weightlog/internal/domain"
)

// Observer receives notifications about store and gate activity, typically
// for metrics. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveMutation(op string, err error)
	ObserveCollection(size int, difference float64)
	ObserveAuth(kind OutcomeKind)
}

// MutationResult classifies a mutation error as "ok", "rejected" (invalid
// input) or "error".
func MutationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "rejected"
	default:
		return "error"
	}
}

type nopObserver struct{}

func (nopObserver) ObserveMutation(string, error)  {}
func (nopObserver) ObserveCollection(int, float64) {}
func (nopObserver) ObserveAuth(OutcomeKind)        {}
