package core

import "github.com/google/uuid"

// Participant is a person tracked by the ledger. Identity is the ID alone:
// two participants with the same display name are distinct, and every map in
// the engine is keyed by ID, never by name.
type Participant struct {
	ID    string
	Name  string
	Email string
}

// NewParticipant creates a participant with a freshly generated id.
func NewParticipant(name, email string) Participant {
	return Participant{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
	}
}

// Equal reports whether both values identify the same participant.
func (p Participant) Equal(o Participant) bool {
	return p.ID == o.ID
}

func (p Participant) String() string {
	return p.Name + " <" + p.Email + ">"
}
