package services

import (
	"context"
	"fmt"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultSuggestionLimit = 4
	suggestionPoolSize     = 10
)

type GraphService struct {
	db *gorm.DB
}

func NewGraphService(db *gorm.DB) *GraphService {
	return &GraphService{db: db}
}

// FollowUnfollow toggles the follow edge from actor to target and reports
// whether the actor follows the target afterwards. Both users are written in
// one transaction and each side is set explicitly, so a previously diverged
// pair ends up consistent again.
func (v *GraphService) FollowUnfollow(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == targetID {
		return false, fmt.Errorf("%w: you can't follow or unfollow yourself", ErrValidation)
	}

	var followed bool
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, target, err := lockUserPair(tx, actorID, targetID)
		if err != nil {
			return err
		}

		followed = !lo.Contains(actor.Following, targetID)
		if followed {
			actor.Following = appendUnique(actor.Following, targetID)
			target.Followers = appendUnique(target.Followers, actorID)
		} else {
			actor.Following = removeAll(actor.Following, targetID)
			target.Followers = removeAll(target.Followers, actorID)
		}

		if err := updateIDSet(tx, actorID, "following", actor.Following); err != nil {
			return err
		}
		if err := updateIDSet(tx, targetID, "followers", target.Followers); err != nil {
			return err
		}

		if followed {
			return notify(tx, actorID, targetID, models.NotificationTypeFollow)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	log.Debug().Uint("actor", actorID).Uint("target", targetID).Bool("followed", followed).Msg("Toggled follow.")
	return followed, nil
}

// lockUserPair loads both users in a single query ordered by id, so two
// transactions on the same pair always lock the rows in the same order.
func lockUserPair(tx *gorm.DB, firstID, secondID uint) (models.User, models.User, error) {
	var first, second models.User

	var users []models.User
	if err := lockForUpdate(tx).
		Where("id IN ?", []uint{firstID, secondID}).
		Order("id").
		Find(&users).Error; err != nil {
		return first, second, fmt.Errorf("%w: unable to get users: %v", ErrUnexpected, err)
	}

	found := lo.SliceToMap(users, func(item models.User) (uint, models.User) {
		return item.ID, item
	})
	var ok bool
	if first, ok = found[firstID]; !ok {
		return first, second, fmt.Errorf("%w: user %d", ErrNotFound, firstID)
	}
	if second, ok = found[secondID]; !ok {
		return first, second, fmt.Errorf("%w: user %d", ErrNotFound, secondID)
	}
	return first, second, nil
}

func updateIDSet(tx *gorm.DB, userID uint, column string, set datatypes.JSONSlice[uint]) error {
	if set == nil {
		set = datatypes.JSONSlice[uint]{}
	}
	if err := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update(column, set).Error; err != nil {
		return fmt.Errorf("%w: unable to update %s: %v", ErrUnexpected, column, err)
	}
	return nil
}

// SuggestedUsers samples a random pool of other users and drops the ones the
// user already follows.
func (v *GraphService) SuggestedUsers(ctx context.Context, userID uint, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	tx := v.db.WithContext(ctx)
	user, err := getUser(tx, userID)
	if err != nil {
		return nil, err
	}

	var pool []models.User
	if err := tx.Where("id <> ?", userID).
		Order("RANDOM()").
		Limit(max(suggestionPoolSize, limit)).
		Find(&pool).Error; err != nil {
		return nil, fmt.Errorf("%w: unable to sample users: %v", ErrUnexpected, err)
	}

	suggestions := lo.Filter(pool, func(item models.User, _ int) bool {
		return !lo.Contains(user.Following, item.ID)
	})
	return lo.Subset(suggestions, 0, uint(limit)), nil
}

func (v *GraphService) ListFollowing(ctx context.Context, userID uint) ([]models.UserBrief, error) {
	tx := v.db.WithContext(ctx)
	user, err := getUser(tx, userID)
	if err != nil {
		return nil, err
	}

	briefs, err := ListUserBrief(tx, user.Following)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(user.Following, func(id uint, _ int) (models.UserBrief, bool) {
		brief, ok := briefs[id]
		return brief, ok
	}), nil
}
