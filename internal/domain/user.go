package domain

// User is the local projection of an identity-provider user. Tokens are
// verified upstream; the service only consumes the already-authenticated id.
type User struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Role string `db:"role"`
}

const RoleAdmin = "admin"
