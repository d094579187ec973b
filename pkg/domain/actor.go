package domain

// Actor is the capability token passed explicitly into every mutating
// operation. Authorization is never ambient: handlers build an Actor from
// the authenticated request and services check it with pure predicates.
type Actor struct {
	Address Address
	Admin   bool
}

func NewActor(address Address) Actor {
	return Actor{Address: address}
}

func NewAdminActor(address Address) Actor {
	return Actor{Address: address, Admin: true}
}

func (a Actor) IsAdmin() bool {
	return a.Admin
}
