package enums

// UserRole is the platform-level role carried in access tokens.
type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleOwner   UserRole = "owner"
	UserRoleAdmin   UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleStudent,
	UserRoleOwner,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	return member(r, validUserRoles)
}
