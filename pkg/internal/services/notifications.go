package services

import (
	"context"
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// notify records a notification inside the caller's transaction.
// Users are never notified about their own actions.
func notify(tx *gorm.DB, from, to uint, kind models.NotificationType) error {
	if from == to {
		return nil
	}

	notification := models.Notification{
		Type:   kind,
		FromID: from,
		ToID:   to,
	}
	if err := tx.Create(&notification).Error; err != nil {
		return fmt.Errorf("%w: unable to create notification: %v", ErrUnexpected, err)
	}

	log.Debug().Uint("from", from).Uint("to", to).Str("type", kind).Msg("Notified user.")
	return nil
}

// List returns the user's notifications as they were before this call and
// then marks all of them as read.
func (v *NotificationService) List(ctx context.Context, userID uint) ([]models.Notification, error) {
	tx := v.db.WithContext(ctx)

	var notifications []models.Notification
	if err := tx.Where("to_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&notifications).Error; err != nil {
		return nil, fmt.Errorf("%w: unable to list notifications: %v", ErrUnexpected, err)
	}

	senders := make([]uint, 0, len(notifications))
	for _, item := range notifications {
		senders = append(senders, item.FromID)
	}
	briefs, err := ListUserBrief(tx, senders)
	if err != nil {
		return nil, err
	}
	for idx, item := range notifications {
		if brief, ok := briefs[item.FromID]; ok {
			notifications[idx].From = &brief
		}
	}

	if err := tx.Model(&models.Notification{}).
		Where("to_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error; err != nil {
		return notifications, fmt.Errorf("%w: unable to mark notifications as read: %v", ErrUnexpected, err)
	}

	return notifications, nil
}

func (v *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := v.db.WithContext(ctx).Model(&models.Notification{}).
		Where("to_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: unable to count notifications: %v", ErrUnexpected, err)
	}
	return count, nil
}

func (v *NotificationService) DeleteOne(ctx context.Context, id, userID uint) error {
	tx := v.db.WithContext(ctx)

	var notification models.Notification
	if err := tx.Where("id = ?", id).First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: notification %d", ErrNotFound, id)
		}
		return fmt.Errorf("%w: unable to get notification: %v", ErrUnexpected, err)
	}
	if notification.ToID != userID {
		return fmt.Errorf("%w: you are not allowed to delete this notification", ErrForbidden)
	}

	if err := tx.Delete(&notification).Error; err != nil {
		return fmt.Errorf("%w: unable to delete notification: %v", ErrUnexpected, err)
	}
	return nil
}

func (v *NotificationService) DeleteAll(ctx context.Context, userID uint) error {
	if err := v.db.WithContext(ctx).
		Where("to_id = ?", userID).
		Delete(&models.Notification{}).Error; err != nil {
		return fmt.Errorf("%w: unable to delete notifications: %v", ErrUnexpected, err)
	}
	return nil
}
