package models

// Participant is a person who can take part in an expense.
// Participants come from the identity collaborator (the current user) or
// from a group's membership; the core never looks them up itself.
type Participant struct {
	// ID is the opaque identifier for the participant.
	// It must be unique within an expense.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Email is optional contact information.
	Email string `json:"email,omitempty"`

	// ImageURL is an optional avatar URL.
	ImageURL string `json:"image_url,omitempty"`
}

// ParticipantIDs returns the IDs of participants in input order.
func ParticipantIDs(participants []Participant) []string {
	ids := make([]string, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}
	return ids
}
