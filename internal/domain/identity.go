// Package domain contains entities without logic, just meta-data.
package domain

import "errors"

const MaxDisplayNameLen = 36

var (
	ErrDisplayNameEmpty   = errors.New("display name empty")
	ErrDisplayNameTooLong = errors.New("display name too long")
)

type UserID string

// Identity is the read-only reference to a user resolved by the
// external identity service. This core never mutates it.
type Identity struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"displayName"`
}

func NewIdentity(id UserID, displayName string) (Identity, error) {
	if displayName == "" {
		return Identity{}, ErrDisplayNameEmpty
	}
	if len(displayName) > MaxDisplayNameLen {
		return Identity{}, ErrDisplayNameTooLong
	}
	return Identity{ID: id, DisplayName: displayName}, nil
}
