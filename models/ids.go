package models

import "github.com/google/uuid"

func NewID() string {
	return uuid.NewString()
}

// IsValidID reports whether id has the canonical entity ID form.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
