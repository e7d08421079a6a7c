package users

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// User is the identity attached to the current session
type User struct {
	ID        int    `json:"id,omitempty"`         // Numeric id, when the API provides one
	UID       string `json:"uid,omitempty"`        // Users unique ID (user_uid on sign-in, user_id on reservations)
	Email     string `json:"email,omitempty"`      // User's email address
	FirstName string `json:"first_name,omitempty"` // First name of the user
	LastName  string `json:"last_name,omitempty"`  // Last name of the user
	Type      string `json:"type,omitempty"`       // Account type as reported by the API
}

// Anonymous is the identity of a signed out session
func Anonymous() User {
	return User{}
}

func (u User) IsAnonymous() bool {
	return u == User{}
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Owns reports whether a resource created by ownerUID belongs to this user.
// The anonymous identity owns nothing.
func (u User) Owns(ownerUID string) bool {
	return u.UID != "" && u.UID == ownerUID
}

// DisplayName prefers the full name, then the email, then the uid
func (u User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	if u.Email != "" {
		return u.Email
	}
	if u.UID != "" {
		return u.UID
	}
	return "anonymous"
}

func Marshal(u User) (string, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal user")
	}
	return string(b), nil
}

func Unmarshal(raw string) (User, error) {
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return Anonymous(), errors.Wrap(err, "failed to unmarshal user")
	}
	return u, nil
}
