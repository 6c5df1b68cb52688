package models

import "time"

// Defaults applied to blank review fields.
const (
	DefaultReviewText   = "No comment."
	DefaultReviewAuthor = "Anonymous"
)

// Review is a rating left on a provider. The author is a display name, not a user reference.
type Review struct {
	ID         string    `json:"-" gorm:"primaryKey;type:varchar(36)"`
	ProviderID string    `json:"-" gorm:"type:varchar(36);not null;index"`
	UserName   string    `json:"user" gorm:"type:varchar(100)"`
	Rating     int       `json:"rating" gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Text       string    `json:"text" gorm:"type:text"`
	CreatedAt  time.Time `json:"-"`
}
