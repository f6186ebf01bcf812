// Package models contains data structures for the application's domain models.
package models

import "time"

// User is an account that can sign in, comment and bookmark. Admins can also
// publish posts.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	IsAdmin   bool      `gorm:"default:false" json:"isAdmin"`
	CreatedAt time.Time `json:"-"`
}

// NewUser carries the fields a caller supplies when creating a user. Password
// must already be hashed.
type NewUser struct {
	Username string
	Password string
}
