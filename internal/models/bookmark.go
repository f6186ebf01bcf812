package models

// Bookmark marks a post as saved by a user.
type Bookmark struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"userId"`
	PostID uint `gorm:"not null;index" json:"postId"`
}
