package models

import "time"

// User is a credential record. Passwords are stored and compared in plain
// text; the deployment runs on a trusted internal network and hashing is an
// explicit non-goal.
type User struct {
	Username   string    `json:"username"`
	Name       string    `json:"name,omitempty"`
	Password   string    `json:"password"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}
