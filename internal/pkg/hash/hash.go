package hash

// Hash is the contract for one-way hashing of secrets.
//
// Implementations must be safe for concurrent use.
type Hash interface {
	// Hash takes a plaintext string and returns its hashed representation.
	Hash(plaintext string) ([]byte, error)
	// Verify reports whether plaintext matches the hashed value.
	Verify(hashed, plaintext string) bool
}
