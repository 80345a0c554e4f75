// Package hash provides helpers for hashing and verifying secrets.
//
// Passcodes are stored only as HMAC digests; verification hashes the
// submitted value and compares digests in constant time.
package hash
