package app

import (
	"context"
	"log/slog"
	"sync"

	"weightlog/internal/domain"
)

// DefaultPrompt is the reason shown by the platform authentication prompt.
const DefaultPrompt = "Authenticate to access your weight log."

// OutcomeKind classifies the result of an authentication attempt.
type OutcomeKind int

const (
	// OutcomeUnavailable means no authentication mechanism is configured.
	OutcomeUnavailable OutcomeKind = iota
	// OutcomeGranted means the owner was verified.
	OutcomeGranted
	// OutcomeDenied means verification failed or the prompt was dismissed.
	OutcomeDenied
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeGranted:
		return "granted"
	case OutcomeDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Outcome is the resolved result of AuthGate.Authenticate. Reason is
// informational and is nil only when access was granted.
type Outcome struct {
	Kind   OutcomeKind
	Reason error
}

// Authorized reports whether the outcome grants access.
func (o Outcome) Authorized() bool {
	return o.Kind == OutcomeGranted
}

// AuthGate performs one-shot owner authentication against a platform
// Authenticator. It keeps no state between attempts.
type AuthGate struct {
	auth     domain.Authenticator
	prompt   string
	logger   *slog.Logger
	observer Observer
}

// GateOption configures an AuthGate.
type GateOption func(*AuthGate)

// WithPrompt overrides DefaultPrompt.
func WithPrompt(prompt string) GateOption {
	return func(g *AuthGate) { g.prompt = prompt }
}

// WithGateLogger sets the logger used to report outcomes.
func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *AuthGate) { g.logger = l }
}

// WithGateObserver attaches an Observer.
func WithGateObserver(o Observer) GateOption {
	return func(g *AuthGate) { g.observer = o }
}

// NewAuthGate creates an AuthGate for the given authenticator.
func NewAuthGate(auth domain.Authenticator, opts ...GateOption) *AuthGate {
	g := &AuthGate{
		auth:     auth,
		prompt:   DefaultPrompt,
		logger:   slog.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "auth_gate")
	return g
}

// Authenticate starts an authentication attempt and returns immediately. The
// returned channel receives exactly one Outcome. Cancelling ctx resolves a
// pending attempt as denied.
func (g *AuthGate) Authenticate(ctx context.Context) <-chan Outcome {
	out := make(chan Outcome, 1)
	resolved := make(chan struct{})
	var once sync.Once
	deliver := func(o Outcome) {
		once.Do(func() {
			g.report(o)
			out <- o
			close(resolved)
		})
	}

	go func() {
		ok, err := g.auth.CanAuthenticate(ctx)
		if err != nil || !ok {
			reason := ErrAuthUnavailable
			if err != nil {
				reason = err
			}
			deliver(Outcome{Kind: OutcomeUnavailable, Reason: reason})
			return
		}

		go g.auth.RequestAuthentication(ctx, g.prompt, func(ok bool, err error) {
			if ok {
				deliver(Outcome{Kind: OutcomeGranted})
				return
			}
			if err == nil {
				err = ErrAuthDenied
			}
			deliver(Outcome{Kind: OutcomeDenied, Reason: err})
		})

		select {
		case <-resolved:
		case <-ctx.Done():
			deliver(Outcome{Kind: OutcomeDenied, Reason: ctx.Err()})
		}
	}()
	return out
}

func (g *AuthGate) report(o Outcome) {
	g.observer.ObserveAuth(o.Kind)
	switch o.Kind {
	case OutcomeGranted:
		g.logger.Info("owner authenticated")
	case OutcomeUnavailable:
		g.logger.Warn("no authentication mechanism available", "reason", o.Reason)
	default:
		g.logger.Warn("authentication failed", "reason", o.Reason)
	}
}
