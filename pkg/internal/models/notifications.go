package models

type NotificationType = string

const (
	NotificationTypeLike    = NotificationType("like")
	NotificationTypeComment = NotificationType("comment")
	NotificationTypeFollow  = NotificationType("follow")
)

type Notification struct {
	BaseModel

	Type NotificationType `json:"type"`
	Read bool             `json:"read" gorm:"column:is_read"`

	FromID uint       `json:"from_id" gorm:"index"`
	ToID   uint       `json:"to_id" gorm:"index"`
	From   *UserBrief `json:"from,omitempty" gorm:"-"`
}
