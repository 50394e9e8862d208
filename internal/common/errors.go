// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("secret not found")

	// Request errors raised by the lifecycle engine.
	ErrValidation         = errors.New("validation error")
	ErrPassphraseMismatch = errors.New("invalid passphrase")
	ErrPassphraseNotSet   = errors.New("passphrase not set")
	ErrSecretExpired      = errors.New("secret expired and has been automatically deleted")
	ErrSecretConsumed     = errors.New("secret already accessed")

	// Internal faults (store outage, corrupt ciphertext).
	ErrDecryption = errors.New("decryption error")
	ErrInternal   = errors.New("internal error")
)
