package types

import (
	"fmt"
	"time"
)

// Identity is the authenticated GitHub user a paint runs as.
// It is passed explicitly to the orchestrator; nothing reads it from
// ambient state.
type Identity struct {
	Login string
	Name  string
	Email string
	// Token is the access credential for the remote API.
	Token string
}

// Signature is an author or committer block on a commit.
type Signature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// Signature returns the author/committer signature pinned to date.
// Name falls back to the login; email falls back to the noreply address.
func (id Identity) Signature(date time.Time) Signature {
	name := id.Name
	if name == "" {
		name = id.Login
	}
	email := id.Email
	if email == "" {
		email = fmt.Sprintf("%s@users.noreply.github.com", id.Login)
	}
	return Signature{Name: name, Email: email, Date: date}
}
