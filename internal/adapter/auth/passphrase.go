package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"weightlog/internal/domain"
)

var (
	// ErrWrongPassphrase indicates the entered passphrase did not match.
	ErrWrongPassphrase = errors.New("wrong passphrase")
	// ErrNoPassphrase indicates the prompt produced no passphrase.
	ErrNoPassphrase = errors.New("no passphrase supplied")
)

// Prompter asks the owner for a secret.
type Prompter interface {
	Prompt(ctx context.Context, prompt string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, prompt string) (string, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type passphraseKey struct{}

// WithPassphrase attaches a passphrase collected by the caller to ctx.
func WithPassphrase(ctx context.Context, passphrase string) context.Context {
	return context.WithValue(ctx, passphraseKey{}, passphrase)
}

// ContextPrompter answers the prompt with the passphrase attached by WithPassphrase.
var ContextPrompter Prompter = PrompterFunc(func(ctx context.Context, _ string) (string, error) {
	p, ok := ctx.Value(passphraseKey{}).(string)
	if !ok || p == "" {
		return "", ErrNoPassphrase
	}
	return p, nil
})

// Passphrase verifies the owner against a bcrypt hash.
type Passphrase struct {
	hash     []byte
	prompter Prompter
}

var _ domain.Authenticator = (*Passphrase)(nil)

// NewPassphrase creates a Passphrase authenticator for the given bcrypt hash.
func NewPassphrase(hash string, prompter Prompter) *Passphrase {
	return &Passphrase{hash: []byte(hash), prompter: prompter}
}

// HashPassphrase returns a bcrypt hash suitable for NewPassphrase.
func HashPassphrase(passphrase string) (string, error) {
	if passphrase == "" {
		return "", ErrNoPassphrase
	}
	h, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CanAuthenticate reports whether a valid hash and a prompter are configured.
func (p *Passphrase) CanAuthenticate(ctx context.Context) (bool, error) {
	if len(p.hash) == 0 || p.prompter == nil {
		return false, nil
	}
	if _, err := bcrypt.Cost(p.hash); err != nil {
		return false, fmt.Errorf("passphrase hash: %w", err)
	}
	return true, nil
}

// RequestAuthentication prompts for the passphrase and compares it with the hash.
func (p *Passphrase) RequestAuthentication(ctx context.Context, prompt string, done func(bool, error)) {
	secret, err := p.prompter.Prompt(ctx, prompt)
	if err != nil {
		done(false, fmt.Errorf("prompt dismissed: %w", err))
		return
	}
	if err := bcrypt.CompareHashAndPassword(p.hash, []byte(secret)); err != nil {
		done(false, ErrWrongPassphrase)
		return
	}
	done(true, nil)
}
