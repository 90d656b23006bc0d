package domain

import "context"

// Identity carries the account attributes held by the identity service.
type Identity struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// IdentityDirectory manages login accounts in the identity service. Create
// returns the id the service assigned.
type IdentityDirectory interface {
	CreateUser(ctx context.Context, identity Identity) (string, error)
	UpdateUser(ctx context.Context, id string, identity Identity) error
	DeleteUser(ctx context.Context, id string) error
}
