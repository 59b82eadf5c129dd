package model

import "time"

// User is a registered account. Passwords are stored as bcrypt hashes and
// are never serialized in API responses.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AdminUsername is the distinguished account seeded at first start. It can
// never be deleted, not even by another admin.
const AdminUsername = "admin"

// Protected reports whether the user is the built-in admin account.
func (u *User) Protected() bool {
	return u.Username == AdminUsername
}
