package models

// Group represents a reusable set of participants that share expenses.
// Group expenses take their participants from Members.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates", "Ski Trip").
	Name string `json:"name"`

	// Members is the group's membership in join order.
	Members []Participant `json:"members"`

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64 `json:"created_at"`
}

// HasMember reports whether the participant ID belongs to the group.
func (g *Group) HasMember(participantID string) bool {
	for _, m := range g.Members {
		if m.ID == participantID {
			return true
		}
	}
	return false
}
