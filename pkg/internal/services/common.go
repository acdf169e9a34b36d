package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/media"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Pagination struct {
	Take   int
	Offset int
}

const MaxPageSize = 100

func (v Pagination) Apply(tx *gorm.DB) *gorm.DB {
	if v.Take > 0 {
		tx = tx.Limit(min(v.Take, MaxPageSize))
	}
	if v.Offset > 0 {
		tx = tx.Offset(v.Offset)
	}
	return tx
}

// Window slices an in-memory list the same way Apply limits a query.
func Window[T any](items []T, page Pagination) []T {
	start := min(max(page.Offset, 0), len(items))
	end := len(items)
	if page.Take > 0 {
		end = min(start+min(page.Take, MaxPageSize), len(items))
	}
	return items[start:end]
}

// lockForUpdate takes row locks on databases that support them. SQLite
// serializes writers on its own and rejects the clause.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func getUser(tx *gorm.DB, id uint) (models.User, error) {
	var user models.User
	if err := tx.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return user, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return user, fmt.Errorf("%w: unable to get user: %v", ErrUnexpected, err)
	}
	return user, nil
}

func getPost(tx *gorm.DB, id uint) (models.Post, error) {
	var post models.Post
	if err := tx.Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return post, fmt.Errorf("%w: post %d", ErrNotFound, id)
		}
		return post, fmt.Errorf("%w: unable to get post: %v", ErrUnexpected, err)
	}
	return post, nil
}

// ListUserBrief loads the public author info for a batch of users.
func ListUserBrief(tx *gorm.DB, ids []uint) (map[uint]models.UserBrief, error) {
	ids = lo.Uniq(ids)
	out := make(map[uint]models.UserBrief, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := tx.
		Select("id", "username", "full_name", "profile_img").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return out, fmt.Errorf("%w: unable to load users: %v", ErrUnexpected, err)
	}
	for _, user := range users {
		out[user.ID] = user.Brief()
	}
	return out, nil
}

func appendUnique(set datatypes.JSONSlice[uint], id uint) datatypes.JSONSlice[uint] {
	if lo.Contains(set, id) {
		return set
	}
	return append(set, id)
}

func removeAll(set datatypes.JSONSlice[uint], id uint) datatypes.JSONSlice[uint] {
	return lo.Without(set, id)
}

func uploadMedia(ctx context.Context, store media.Store, folder, raw string) (string, error) {
	payload, err := media.DecodeDataURL(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	ref, err := store.Upload(ctx, payload.ObjectName(folder), bytes.NewReader(payload.Data))
	if err != nil {
		return "", fmt.Errorf("%w: media upload failed: %v", ErrUnexpected, err)
	}

	log.Debug().Str("ref", ref).Int("size", len(payload.Data)).Msg("Uploaded media.")
	return ref, nil
}

// releaseMedia frees hosted media. Failures are logged and never returned.
func releaseMedia(ctx context.Context, store media.Store, ref *string) {
	if ref == nil || len(*ref) == 0 {
		return
	}
	if err := store.Release(ctx, *ref); err != nil {
		log.Warn().Err(err).Str("ref", *ref).Msg("An error occurred when releasing media...")
	}
}
