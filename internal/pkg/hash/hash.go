package hash

// Hash produces and checks digests of secrets.
type Hash interface {
	Hash(str string) string
	Verify(hashed, str string) bool
}
