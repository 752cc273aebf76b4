package hash

// Hash produces and checks one-way digests of secrets.
type Hash interface {
	// Hash returns the digest of plaintext.
	Hash(plaintext string) ([]byte, error)

	// Verify reports whether plaintext matches a digest produced by Hash.
	Verify(hashed, plaintext string) bool
}
