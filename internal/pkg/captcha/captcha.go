// Package captcha defines the contract for verifying human-challenge tokens.
//
// Handlers and use cases work with the Verifier interface; the concrete
// provider (Cloudflare Turnstile) is implemented elsewhere in this package.
package captcha

import (
	"context"
	"errors"
)

// ErrFailed indicates that the challenge token was rejected or could not be
// verified. Callers must treat it as a hard denial.
var ErrFailed = errors.New("captcha: challenge verification failed")

// Verifier abstracts a human-challenge provider.
type Verifier interface {
	// Verify checks the challenge token issued to the client. A nil return
	// means the token is valid; any failure, including transport problems,
	// returns ErrFailed so callers fail closed.
	Verify(ctx context.Context, token, remoteIP string) error
}
