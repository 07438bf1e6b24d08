// Package policy holds the single role gate shared by every protected
// view and action.
package policy

import "github.com/gcforum/portal/internal/models"

var weights = map[models.Role]int{
	models.RoleMember: 1,
	models.RoleEditor: 2,
	models.RoleAdmin:  3,
}

// Weight returns the position of role in member < editor < admin, or 0
// for an empty or unknown role.
func Weight(role models.Role) int {
	return weights[role]
}

// CanAccess reports whether current satisfies required. An empty required
// role admits everyone; an empty or unknown current role is admitted only
// then.
func CanAccess(required, current models.Role) bool {
	if required == "" {
		return true
	}
	w := Weight(current)
	return w > 0 && w >= Weight(required)
}

// Roles lists the known roles in ascending order.
func Roles() []models.Role {
	return []models.Role{models.RoleMember, models.RoleEditor, models.RoleAdmin}
}
