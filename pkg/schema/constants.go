package schema

// Well-known identifiers of the primary authentication flow.
const (
	FlowIDLogin = "login"

	StateRealSubmit                         = "realSubmit"
	StateInitialAuthnRequestValidationCheck = "initialAuthenticationRequestValidationCheck"

	TransitionSuccess = "success"
	TransitionError   = "error"

	// WildcardEventID matches any event.
	WildcardEventID = "*"
)
