package tenancy

import "github.com/hugh/ticketdesk/internal/database/models"

// roleRank orders roles MEMBER < ADMIN. Unknown roles have no rank.
var roleRank = map[models.Role]int{
	models.RoleMember: 1,
	models.RoleAdmin:  2,
}

// AtLeast reports whether have meets or exceeds required.
func AtLeast(have, required models.Role) bool {
	h, ok := roleRank[have]
	if !ok {
		return false
	}
	r, ok := roleRank[required]
	if !ok {
		return false
	}
	return h >= r
}

// ValidRole reports whether r is a role a membership row may hold.
func ValidRole(r models.Role) bool {
	_, ok := roleRank[r]
	return ok
}
