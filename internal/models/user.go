package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is owned by the accounts side; chat code only reads it.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  *string   `json:"username,omitempty"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Level     int       `json:"level"`
	Banned    bool      `json:"isBanned"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile is the public slice of a user shown to other users.
type Profile struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Username *string `json:"username,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Username: u.Username}
}

// DisplayName prefers the username and falls back to the email.
func (p Profile) DisplayName() string {
	if p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	return p.Email
}
