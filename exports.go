package turnstile

import "github.com/xraph/turnstile/types"

// Re-export common types for convenience so users don't have to import types package.

// Bps is re-exported from types package.
type Bps = types.Bps

// Entity is re-exported from types package.
type Entity = types.Entity

// Full is the basis-point scale: 10000 bps is 100%.
const Full = types.Full

// Re-export Bps constructor
var Percent = types.Percent

// Re-export Entity constructors
var (
	NewEntity = types.NewEntity
	EntityAt  = types.EntityAt
)
