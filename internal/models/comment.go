package models

import "time"

// Comment is a reader's reply attached to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	AuthorID  uint      `gorm:"not null;index" json:"authorId"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"createdAt"`
}

// NewComment is the validated payload for creating a comment.
type NewComment struct {
	Content string `json:"content"`
}
