// Package jwt is helpers for working with JSON Web Tokens (JWT).
//
// It includes:
//   - A Claims type carrying the registered claims and the operator role.
//   - A symmetric HS512 implementation for generating and verifying tokens.
//   - Context helpers for storing and retrieving authenticated claims.
package jwt
