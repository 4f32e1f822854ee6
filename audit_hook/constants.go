package audithook

// Action constants for audit events.
const (
	// Collection actions
	ActionCollectionCreated = "collection.created"
	ActionPolicySet         = "policy.set"
	ActionFaceValueSet      = "facevalue.set"
	ActionStrategySelected  = "strategy.selected"

	// Transfer actions
	ActionTransferApproved = "transfer.approved"
	ActionTransferRejected = "transfer.rejected"
	ActionFeeCharged       = "fee.charged"

	// Issuance actions
	ActionUnitsMinted = "units.minted"

	// Admission actions
	ActionCheckedIn = "checkin.recorded"
)

// Resource constants for audit events.
const (
	ResourceCollection = "collection"
	ResourcePolicy     = "policy"
	ResourceTransfer   = "transfer"
	ResourceFee        = "fee"
	ResourceHolding    = "holding"
	ResourceCheckIn    = "checkin"
)

// Category constants for audit events.
const (
	CategoryConfiguration = "configuration"
	CategoryTransfer      = "transfer"
	CategorySettlement    = "settlement"
	CategoryIssuance      = "issuance"
	CategoryAdmission     = "admission"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
