// Package password hashes and verifies account passwords for chatpad.
//
// Hashes are Argon2id encoded in the PHC string form
// ($argon2id$v=19$m=..,t=..,p=..$salt$key). Stored hashes are parsed as
// untrusted input and parameters far above the configured cost are refused.
package password
