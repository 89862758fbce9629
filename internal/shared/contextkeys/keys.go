package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "gateway context key " + string(c)
}

// Context keys for the subscription gateway.
const (
	// User-related context keys
	UserIDKey    = contextKey("userID")
	UserEmailKey = contextKey("userEmail")
	RoleIDKey    = contextKey("roleID")

	// Request-related context keys
	RequestIDKey = contextKey("requestID")

	// Connection-related context keys
	ClientIDKey = contextKey("clientID")

	// Authentication context keys
	TokenKey  = contextKey("token")
	ClaimsKey = contextKey("claims")

	// Component context keys
	ComponentKey = contextKey("component")
	OperationKey = contextKey("operation")
)
