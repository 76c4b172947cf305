package event

import "slices"

const (
	RoleRead            = "read"
	RoleReadAssets      = "read:assets"
	RoleReadAttributes  = "read:attributes"
	RoleWriteAttributes = "write:attributes"
)

// AuthContext is the authenticated identity behind a connection. A nil
// *AuthContext is an anonymous connection.
type AuthContext struct {
	Realm      string
	Subject    string
	Username   string
	Roles      []string
	Superuser  bool
	Restricted bool
	// EntityIDs lists the entities a restricted user is linked to.
	EntityIDs []string
}

func (a *AuthContext) HasRole(role string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Roles, role)
}

func (a *AuthContext) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if a.HasRole(role) {
			return true
		}
	}
	return false
}

// CanAccessRealm reports whether the identity may act in realm.
func (a *AuthContext) CanAccessRealm(realm string) bool {
	if a == nil {
		return false
	}
	return a.Superuser || a.Realm == realm
}

// IsLinked reports whether a restricted identity is linked to entityID.
func (a *AuthContext) IsLinked(entityID string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.EntityIDs, entityID)
}
