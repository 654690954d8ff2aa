// Package token signs and verifies chatpad session credentials.
//
// A credential is an HS256 JWT carrying the subject (user id), a kind
// discriminator ("access" or "refresh", serialized as tokenType), an optional
// token id (jti) and an expiry. Verification fails closed: a malformed token,
// a foreign algorithm, a bad signature, a missing expiry, or now >= exp all
// return ErrInvalid and no claims.
//
// Each kind has its own secret and lifetime (see Codec), but callers must
// still compare the kind claim after verifying; the secrets being different
// is not treated as sufficient.
//
// Environment:
//   - CHATPAD_JWT_ACCESS_SECRET (fallback JWT_ACCESS_SECRET)
//   - CHATPAD_JWT_REFRESH_SECRET (fallback JWT_REFRESH_SECRET)
package token
