// Package gate authenticates requests from the access-token cookie.
//
// Authentication is a four-stage chain, each stage either advancing or
// stopping with a reason:
//
//	NoCredential -> CandidateVerified -> KindChecked -> IdentityResolved
//
// Require turns a stop into 401 (no cookie) or 403 (anything else); Trace
// never rejects and only attaches the user when the chain completes. A
// deleted user is indistinguishable from a bad token.
package gate
