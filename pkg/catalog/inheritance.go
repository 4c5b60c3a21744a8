package catalog

// inheritanceRules is the fixed set of permission implications. Holding the
// key permission also grants the listed permissions. The rule set is shallow:
// one closure pass is sufficient, no fixpoint iteration.
var inheritanceRules = map[Permission][]Permission{
	FormDelete:         {FormEdit},
	UserManageRoles:    {UserRead},
	BusinessAreaManage: {BusinessAreaRead},
}

// ExpandInherited applies the inheritance rules to a permission set in a
// single non-recursive pass and returns the expanded set. The input map is
// not modified.
func ExpandInherited(perms map[Permission]struct{}) map[Permission]struct{} {
	expanded := make(map[Permission]struct{}, len(perms))
	for p := range perms {
		expanded[p] = struct{}{}
	}
	for p := range perms {
		for _, implied := range inheritanceRules[p] {
			expanded[implied] = struct{}{}
		}
	}
	return expanded
}
