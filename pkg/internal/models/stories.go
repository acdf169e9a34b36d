package models

import "time"

const StoryTTL = 24 * time.Hour

type Story struct {
	BaseModel

	Text      *string   `json:"text"`
	Img       *string   `json:"img"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`

	UserID uint       `json:"user_id" gorm:"index"`
	User   *UserBrief `json:"user,omitempty" gorm:"-"`
}

// IsActive reports whether the story is still visible at the given instant.
// A story stops being active exactly at its expiry timestamp.
func (v Story) IsActive(at time.Time) bool {
	return at.Before(v.ExpiresAt)
}
