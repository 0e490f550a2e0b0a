package entity

import "time"

// User is the account a recovery flow operates on.
type User struct {
	ID       int64
	Email    string
	FullName string
}

// Challenge is a short-lived secret bound to a user. The Token column stores
// only a hash of the secret; the plaintext exists solely in transit.
type Challenge struct {
	ID        int64
	UserID    int64
	Token     string
	Purpose   ChallengePurpose
	ExpiresAt time.Time
}
