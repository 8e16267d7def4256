package model

// Role is the caller's role as reported by the identity collaborator.
type Role string

const (
	RoleUser      Role = "USER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// Actor is the verified identity performing an operation. Authentication is
// a black box upstream of this core; by the time an Actor exists its fields
// are trusted.
type Actor struct {
	UserID             string
	Role               Role
	MembershipVerified bool
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanManage reports whether the actor may mutate the given event: admins
// always, organizers only for their own events.
func (a Actor) CanManage(e *Event) bool {
	return a.IsAdmin() || a.UserID == e.OrganizerID
}
