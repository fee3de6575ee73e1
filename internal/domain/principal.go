package domain

// Principal is the authenticated caller, built once per request from the
// bearer token.
type Principal struct {
	UserID int64
	Email  string
	Role   UserRole
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Principal) Is(roles ...UserRole) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// CanActFor reports whether the caller may touch data owned by userID.
func (p Principal) CanActFor(userID int64) bool {
	return p.IsAdmin() || p.UserID == userID
}
