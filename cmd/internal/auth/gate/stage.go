package gate

import (
	"fmt"

	"chatpad/cmd/identity"
	"chatpad/cmd/internal/apperr"
)

type Stage int

const (
	StageNoCredential Stage = iota
	StageCandidateVerified
	StageKindChecked
	StageIdentityResolved
)

func (s Stage) String() string {
	switch s {
	case StageNoCredential:
		return "no_credential"
	case StageCandidateVerified:
		return "candidate_verified"
	case StageKindChecked:
		return "kind_checked"
	case StageIdentityResolved:
		return "identity_resolved"
	default:
		return "unknown"
	}
}

// Reason names why the chain stopped.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNoCredential Reason = "no_credential"
	ReasonInvalidToken Reason = "invalid_token"
	ReasonWrongKind    Reason = "wrong_kind"
	ReasonUnknownUser  Reason = "unknown_user"
	ReasonLookupFailed Reason = "lookup_failed"
)

// Result is the outcome of Authenticate. Stage is the last stage reached.
type Result struct {
	Stage  Stage
	Reason Reason
	User   identity.User
	Cause  error
}

func (r Result) OK() bool { return r.Stage == StageIdentityResolved }

// Err is the client-facing rejection for the require variant, nil on success.
func (r Result) Err() error {
	const op = "gate.Require"
	switch {
	case r.OK():
		return nil
	case r.Reason == ReasonNoCredential:
		return apperr.Unauthorized(op)
	case r.Reason == ReasonLookupFailed:
		if r.Cause != nil {
			return fmt.Errorf("%s: %w", op, r.Cause)
		}
		return fmt.Errorf("%s: identity lookup failed", op)
	default:
		return apperr.Forbidden(op)
	}
}
