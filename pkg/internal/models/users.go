package models

import "gorm.io/datatypes"

type User struct {
	BaseModel

	Username   string `json:"username" gorm:"uniqueIndex"`
	Email      string `json:"email" gorm:"uniqueIndex"`
	Password   string `json:"-"`
	FullName   string `json:"full_name"`
	Bio        string `json:"bio"`
	Link       string `json:"link"`
	ProfileImg string `json:"profile_img"`
	CoverImg   string `json:"cover_img"`

	Followers       datatypes.JSONSlice[uint] `json:"followers"`
	Following       datatypes.JSONSlice[uint] `json:"following"`
	LikedPosts      datatypes.JSONSlice[uint] `json:"liked_posts"`
	BookmarkedPosts datatypes.JSONSlice[uint] `json:"bookmarked_posts"`
}

// UserBrief is the embedded author info attached to read models.
type UserBrief struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	ProfileImg string `json:"profile_img"`
}

func (v User) Brief() UserBrief {
	return UserBrief{
		ID:         v.ID,
		Username:   v.Username,
		FullName:   v.FullName,
		ProfileImg: v.ProfileImg,
	}
}
