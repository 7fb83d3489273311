// Package domain contains the core business entities and interfaces.
package domain

import "context"

// Authenticator is the port for the device-owner authentication mechanism.
//
// RequestAuthentication must invoke done exactly once, from any goroutine,
// once the owner has been verified, rejected, or the prompt was dismissed.
type Authenticator interface {
	CanAuthenticate(ctx context.Context) (bool, error)
	RequestAuthentication(ctx context.Context, prompt string, done func(ok bool, err error))
}
