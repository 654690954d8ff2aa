// Package session implements chatpad's two-tier credential model.
//
// An access token is a short-lived stateless JWT. A refresh token is a
// long-lived JWT whose jti names a RefreshRecord in the Registry; it is valid
// only while that record exists and is not revoked. Revocation is one-way.
//
// Service orchestrates login, registration, refresh and logout on top of the
// identity store and the Credentials minting primitive. Cookie transport lives
// in the gate package; this package only produces and checks token strings.
package session
