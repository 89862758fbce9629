package gateway

import "time"

// Accountability is the identity principal attached to a connection, per
// spec §3: { user, role, admin, permissions, share, ip, userAgent }. It is
// immutable for the duration of one auth epoch and replaced wholesale on
// re-auth or token refresh. Grounded on internal/auth/domain/repository.Claims
// (UserID/Email/RoleID/Admin), generalized into a role/permission-bearing
// principal — the gateway carries exactly one RoleID per connection, never a
// set of roles.
type Accountability struct {
	User        string
	Role        string
	Admin       bool
	Permissions []string
	Share       string
	IP          string
	UserAgent   string
}

// IsAuthenticated reports whether this accountability resolved to a user.
func (a Accountability) IsAuthenticated() bool {
	return a.User != ""
}

// PublicAccountability is the null principal used by public-mode
// connections and by clients whose auth epoch has expired or failed.
func PublicAccountability() Accountability {
	return Accountability{}
}

// AuthEpoch is the per-connection record { accountability, expiresAt }.
// ExpiresAt == nil means "never expires at this layer" (public mode, or a
// token whose lifetime is managed entirely outside the gateway).
type AuthEpoch struct {
	Accountability Accountability
	ExpiresAt      *time.Time
}

// IsExpired reports whether the epoch's deadline has already passed at now.
func (e AuthEpoch) IsExpired(now time.Time) bool {
	return e.ExpiresAt != nil && !e.ExpiresAt.After(now)
}

// PublicEpoch is the zero-value epoch a connection starts with in public
// mode, or falls back to after a TOKEN_EXPIRED eviction.
func PublicEpoch() AuthEpoch {
	return AuthEpoch{Accountability: PublicAccountability()}
}
