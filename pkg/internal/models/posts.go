package models

import (
	"time"

	"gorm.io/datatypes"
)

type PostComment struct {
	Text      string     `json:"text"`
	UserID    uint       `json:"user_id"`
	User      *UserBrief `json:"user,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Post struct {
	BaseModel

	Text     *string `json:"text"`
	Img      *string `json:"img"`
	Language string  `json:"language"`

	Comments datatypes.JSONSlice[PostComment] `json:"comments"`
	Likes    datatypes.JSONSlice[uint]        `json:"likes"`

	IsRepost       bool  `json:"repost"`
	OriginalPostID *uint `json:"original_post_id" gorm:"uniqueIndex:idx_post_repost_owner"`
	OriginalPost   *Post `json:"original_post" gorm:"-"`

	UserID uint       `json:"user_id" gorm:"index;uniqueIndex:idx_post_repost_owner"`
	User   *UserBrief `json:"user,omitempty" gorm:"-"`
}
