package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type EngagementService struct {
	db    *gorm.DB
	feeds *FeedService

	NowFunc func() time.Time
}

func NewEngagementService(db *gorm.DB, feeds *FeedService) *EngagementService {
	return &EngagementService{db: db, feeds: feeds, NowFunc: time.Now}
}

// engagementTarget follows a repost to the post it points at. Likes and
// comments always land on the original.
func engagementTarget(tx *gorm.DB, postID uint) (models.Post, error) {
	post, err := getPost(lockForUpdate(tx), postID)
	if err != nil {
		return post, err
	}
	if post.IsRepost && post.OriginalPostID != nil {
		return getPost(lockForUpdate(tx), *post.OriginalPostID)
	}
	return post, nil
}

// LikeUnlike toggles the user's like and returns the post's likes afterwards.
func (v *EngagementService) LikeUnlike(ctx context.Context, postID, userID uint) ([]uint, bool, error) {
	var likes []uint
	var liked bool

	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := engagementTarget(tx, postID)
		if err != nil {
			return err
		}
		user, err := getUser(lockForUpdate(tx), userID)
		if err != nil {
			return err
		}

		liked = !lo.Contains(post.Likes, userID)
		if liked {
			post.Likes = appendUnique(post.Likes, userID)
			user.LikedPosts = appendUnique(user.LikedPosts, post.ID)
		} else {
			post.Likes = removeAll(post.Likes, userID)
			user.LikedPosts = removeAll(user.LikedPosts, post.ID)
		}

		if err := tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			Update("likes", post.Likes).Error; err != nil {
			return fmt.Errorf("%w: unable to update likes: %v", ErrUnexpected, err)
		}
		if err := updateIDSet(tx, user.ID, "liked_posts", user.LikedPosts); err != nil {
			return err
		}

		likes = []uint(post.Likes)
		if liked {
			return notify(tx, userID, post.UserID, models.NotificationTypeLike)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if likes == nil {
		likes = []uint{}
	}
	return likes, liked, nil
}

// Comment appends a comment to the post and returns the resolved post the
// comment was made on.
func (v *EngagementService) Comment(ctx context.Context, postID, userID uint, text string) (models.Post, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return models.Post{}, fmt.Errorf("%w: text field is required", ErrValidation)
	}

	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := engagementTarget(tx, postID)
		if err != nil {
			return err
		}
		if _, err := getUser(tx, userID); err != nil {
			return err
		}

		post.Comments = append(post.Comments, models.PostComment{
			Text:      text,
			UserID:    userID,
			CreatedAt: v.NowFunc().UTC(),
		})
		if err := tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			Update("comments", post.Comments).Error; err != nil {
			return fmt.Errorf("%w: unable to save comment: %v", ErrUnexpected, err)
		}

		return notify(tx, userID, post.UserID, models.NotificationTypeComment)
	})
	if err != nil {
		return models.Post{}, err
	}

	return v.feeds.GetPost(ctx, postID)
}
