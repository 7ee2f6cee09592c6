package constant

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultRoles are seeded at startup when missing.
var DefaultRoles = []struct {
	Name        string
	Description string
}{
	{Name: RoleAdmin, Description: "Administrator"},
	{Name: RoleUser, Description: "Regular user"},
}
