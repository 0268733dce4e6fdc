package flows

import (
	"errors"

	"github.com/MrEthical07/goSession/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureMissing
	ValidateFailureExpired
	ValidateFailureInvalid
)

// ValidateResult carries the verified token or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Token   jwt.Token
}

// ValidateDeps captures validation dependencies.
type ValidateDeps struct {
	Verify  func(raw string) (jwt.Token, error)
	Expired error
}

// RunValidate verifies a bearer token. Validation never consults the identity
// provider; roles come from the token.
func RunValidate(raw string, deps ValidateDeps) ValidateResult {
	if raw == "" {
		return ValidateResult{Failure: ValidateFailureMissing}
	}

	tok, err := deps.Verify(raw)
	if err != nil {
		if deps.Expired != nil && errors.Is(err, deps.Expired) {
			return ValidateResult{Failure: ValidateFailureExpired, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureInvalid, Err: err}
	}

	return ValidateResult{Token: tok}
}
