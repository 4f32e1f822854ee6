// Package proof defines the eligibility-proof verifier Turnstile consumes.
// Proofs are opaque byte blobs produced by an external zero-knowledge
// subsystem; Turnstile only passes them through for verification.
package proof

import "context"

// Claim identifies what a proof attests to.
type Claim string

// Claim kinds.
const (
	ClaimRegion Claim = "region"
	ClaimAge    Claim = "age"
)

// Verifier validates eligibility proof blobs.
type Verifier interface {
	// Verify reports whether the blob proves the claim. An empty blob is
	// the caller's way of not asserting the claim; implementations decide
	// whether that is acceptable.
	Verify(ctx context.Context, blob []byte, kind Claim) (bool, error)
}

// StubVerifier accepts every proof. It stands in until a real verifying
// backend is wired.
type StubVerifier struct{}

// Verify implements Verifier.
func (StubVerifier) Verify(context.Context, []byte, Claim) (bool, error) {
	return true, nil
}

// VerifierFunc adapts a plain function to a Verifier.
type VerifierFunc func(ctx context.Context, blob []byte, kind Claim) (bool, error)

// Verify implements Verifier.
func (f VerifierFunc) Verify(ctx context.Context, blob []byte, kind Claim) (bool, error) {
	return f(ctx, blob, kind)
}
