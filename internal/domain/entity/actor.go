package entity

// Role is the coarse authorization role carried in the auth token.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor identifies who is performing an operation. It is threaded explicitly
// through every service call; services never read identity from ambient state.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
