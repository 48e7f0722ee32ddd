package guard

import "github.com/vitrinelive/storefront/identity"

// Decision is the outcome of the pure authorization predicate.
type Decision int

const (
	// Allow grants access to the dashboard.
	Allow Decision = iota
	// Deny refuses it.
	Deny
)

// Authorize decides dashboard access from role and ownership alone. Admins
// pass unconditionally; owners pass only for their own store. It performs no
// I/O so the policy can be tested exhaustively on its own.
func Authorize(role identity.Role, storeOwnerID, userID int64) Decision {
	switch role {
	case identity.RoleAdmin:
		return Allow
	case identity.RoleOwner:
		if storeOwnerID == userID {
			return Allow
		}
		return Deny
	default:
		return Deny
	}
}
