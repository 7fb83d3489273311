// Package auth provides domain.Authenticator implementations: a bcrypt
// passphrase that stands in for the device passcode, and an OpenID Connect
// device-authorization login bound to a single owner identity.
package auth
