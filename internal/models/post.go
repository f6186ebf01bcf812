package models

import "time"

// Category is one of the fixed topics a post belongs to.
type Category string

const (
	CategoryAI        Category = "AI"
	CategoryCinema    Category = "Cinema"
	CategoryCricket   Category = "Cricket"
	CategoryMythology Category = "Mythology"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryAI, CategoryCinema, CategoryCricket, CategoryMythology}

// ParseCategory matches s exactly (case-sensitive) against the known categories.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Post is an article published by an admin.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageURL  *string   `json:"imageUrl"`
	Category  Category  `gorm:"type:varchar(32);not null;index" json:"category"`
	AuthorID  uint      `gorm:"not null;index" json:"authorId"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"createdAt"`
}

// NewPost is the validated payload for creating a post.
type NewPost struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category Category `json:"category"`
	ImageURL *string  `json:"imageUrl,omitempty"`
}
