package models

import (
	"math"
	"time"
)

// Provider is a listed tutor or service professional.
type Provider struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerID       *string   `json:"ownerId" gorm:"type:varchar(36);index"`
	Name          string    `json:"name" gorm:"type:varchar(150);not null"`
	Qualification string    `json:"qualification"`
	Experience    string    `json:"experience"`
	Service       string    `json:"service" gorm:"type:varchar(100);index"`
	Fees          string    `json:"fees"`
	Timing        string    `json:"timing"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	Description   string    `json:"description" gorm:"type:text"`
	Lat           float64   `json:"lat" gorm:"not null"`
	Lng           float64   `json:"lng" gorm:"not null"`
	Image         string    `json:"image" gorm:"type:text"`
	Rating        float64   `json:"rating" gorm:"not null;default:0"` // mean of review ratings, one decimal
	Reviews       []Review  `json:"userReviews" gorm:"foreignKey:ProviderID"`
	CreatedAt     time.Time `json:"-" gorm:"index"`
	UpdatedAt     time.Time `json:"-"`
}

// RoundRating rounds a mean rating to one decimal place.
func RoundRating(mean float64) float64 {
	return math.Round(mean*10) / 10
}
