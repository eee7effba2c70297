package domain

import "fmt"

type Role string

const (
	RoleRenter Role = "renter"
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
)

// Principal is an authenticated caller. It is closed over Renter, Owner and
// Arbitrator; operations take the concrete variant they are reserved for.
type Principal interface {
	UserID() int64
	Role() Role
	isPrincipal()
}

type Renter struct{ ID int64 }

type Owner struct{ ID int64 }

// Arbitrator settles disputes. Identity issues it for the admin role.
type Arbitrator struct{ ID int64 }

func (r Renter) UserID() int64     { return r.ID }
func (o Owner) UserID() int64      { return o.ID }
func (a Arbitrator) UserID() int64 { return a.ID }

func (Renter) Role() Role     { return RoleRenter }
func (Owner) Role() Role      { return RoleOwner }
func (Arbitrator) Role() Role { return RoleAdmin }

func (Renter) isPrincipal()     {}
func (Owner) isPrincipal()      {}
func (Arbitrator) isPrincipal() {}

// NewPrincipal maps an identity {id, role} onto its variant.
func NewPrincipal(id int64, role string) (Principal, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: principal id must be positive", ErrValidation)
	}
	switch Role(role) {
	case RoleRenter:
		return Renter{ID: id}, nil
	case RoleOwner:
		return Owner{ID: id}, nil
	case RoleAdmin:
		return Arbitrator{ID: id}, nil
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
}

// AsRenter narrows p to a Renter or fails with ErrForbidden.
func AsRenter(p Principal) (Renter, error) {
	if r, ok := p.(Renter); ok {
		return r, nil
	}
	return Renter{}, fmt.Errorf("%w: renter role required", ErrForbidden)
}

func AsOwner(p Principal) (Owner, error) {
	if o, ok := p.(Owner); ok {
		return o, nil
	}
	return Owner{}, fmt.Errorf("%w: owner role required", ErrForbidden)
}

func AsArbitrator(p Principal) (Arbitrator, error) {
	if a, ok := p.(Arbitrator); ok {
		return a, nil
	}
	return Arbitrator{}, fmt.Errorf("%w: arbitrator role required", ErrForbidden)
}
