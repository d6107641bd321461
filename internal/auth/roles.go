package auth

import "strings"

// MasterRole is the super-role that bypasses fine-grained role and
// permission checks. It is matched by name, not through the permission
// graph.
const MasterRole = "master"

// IsSuperRole reports whether the role name denotes the super-role. All
// super-role logic funnels through here; no other code compares against
// MasterRole directly.
func IsSuperRole(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), MasterRole)
}
