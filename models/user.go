package models

// UserRole is carried in the "role" claim of access tokens. Accounts are
// managed by the identity provider that issues the tokens.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
)
