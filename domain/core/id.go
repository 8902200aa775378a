package core

import (
	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// BuildID identifies one top-level tabulation invocation. Every build owns
// its own fit cache, so the ID doubles as the cache scope in log output.
type BuildID ID

// NewBuildID creates a build identifier for one tabulation call
func NewBuildID() BuildID {
	return BuildID(NewID())
}

func (id BuildID) String() string { return ID(id).String() }
