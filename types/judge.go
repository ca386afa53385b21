package types

// IdentityState defines the terminal state of identity resolution
type IdentityState int

// Identity resolution states
const (
	IdentityUnknown IdentityState = iota

	// extracted and present in roster
	IdentityResolved
	// extracted but absent from roster
	IdentityUnmatched
	// the file could not be loaded
	IdentityLoadFailure
	// the file loaded but the identity entry point failed
	IdentityExtractFailure
)

var identityStateToString = []string{
	"Unknown",
	"Resolved",
	"Unmatched",
	"Load Failure",
	"Identity Failure",
}

func (s IdentityState) String() string {
	si := int(s)
	if si < 0 || si >= len(identityStateToString) {
		return identityStateToString[0]
	}
	return identityStateToString[si]
}

// MarshalText encodes the state as its name
func (s IdentityState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Identity is the result of identity resolution for one submission
type Identity struct {
	State  IdentityState
	ID     string // set for resolved and unmatched
	Detail string // failure detail for unresolved states
}

// Unresolved reports whether no identifier could be extracted
func (i Identity) Unresolved() bool {
	return i.State == IdentityLoadFailure || i.State == IdentityExtractFailure
}
