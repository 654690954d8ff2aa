// Package identity owns chatpad user accounts: the User record, username
// canonicalization, password hashing through cmd/security/password, and the
// user store (in-memory and PostgreSQL).
//
// Callers outside this package only read identities; creation happens during
// registration.
package identity
