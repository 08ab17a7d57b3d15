package models

import "time"

// User represents a row in the PostgreSQL users table. TechniqueRefs and
// SequenceRefs mirror the ids of catalog entities the user owns or follows.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // never serialize
	UserName       string    `json:"user_name"`
	Picture        string    `json:"picture"`
	TechniqueRefs  []string  `json:"techniques"`
	SequenceRefs   []string  `json:"sequences"`
	Token          string    `json:"token,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Sanitized returns a copy safe to hand back on non-identity endpoints:
// the session token is only ever shown on a fresh sign-in response.
func (u *User) Sanitized() *User {
	c := *u
	c.Token = ""
	return &c
}

// Credentials is the JSON body for POST /api/sign-up and /api/sign-in.
type Credentials struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	UserName             string `json:"user_name"`
	Picture              string `json:"picture"`
}

// ChangePasswordRequest is the JSON body for PATCH /api/change-password.
type ChangePasswordRequest struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// ProfilePatch is the allow-listed set of mutable profile fields. Email,
// password hash, token and the reference mirrors are deliberately absent.
type ProfilePatch struct {
	UserName *string `json:"user_name"`
	Picture  *string `json:"picture"`
}
