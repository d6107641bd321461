package auth

const (
	PermManagePermissions   = "rbac.permissions.manage"
	PermManageChampionships = "championships.manage"
	PermManageDirectory     = "directory.manage"
)

// BuiltinPermissions are ensured at startup so roles can reference them
// immediately after a fresh deployment.
var BuiltinPermissions = []Permission{
	{Name: PermManagePermissions, Description: "Manage the permission catalog and role links"},
	{Name: PermManageChampionships, Description: "Create and modify championships and assignments"},
	{Name: PermManageDirectory, Description: "Manage organizers, disciplines and job positions"},
}
