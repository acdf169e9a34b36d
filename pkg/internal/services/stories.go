package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/media"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type StoryService struct {
	db    *gorm.DB
	media media.Store

	NowFunc func() time.Time
}

func NewStoryService(db *gorm.DB, mediaStore media.Store) *StoryService {
	return &StoryService{db: db, media: mediaStore, NowFunc: time.Now}
}

func (v *StoryService) now() time.Time {
	return v.NowFunc().UTC()
}

type StoryInput struct {
	Text string
	Img  string
}

// CreateStory uploads the media first, a failed upload leaves no record.
func (v *StoryService) CreateStory(ctx context.Context, userID uint, in StoryInput) (models.Story, error) {
	var story models.Story
	if len(strings.TrimSpace(in.Text)) == 0 && len(in.Img) == 0 {
		return story, fmt.Errorf("%w: story must have either text or media", ErrValidation)
	}

	tx := v.db.WithContext(ctx)
	user, err := getUser(tx, userID)
	if err != nil {
		return story, err
	}

	story.UserID = userID
	if len(strings.TrimSpace(in.Text)) > 0 {
		story.Text = lo.ToPtr(in.Text)
	}
	if len(in.Img) > 0 {
		ref, err := uploadMedia(ctx, v.media, "stories", in.Img)
		if err != nil {
			return story, err
		}
		story.Img = &ref
	}

	story.CreatedAt = v.now()
	story.ExpiresAt = story.CreatedAt.Add(models.StoryTTL)
	if err := tx.Create(&story).Error; err != nil {
		releaseMedia(ctx, v.media, story.Img)
		return story, fmt.Errorf("%w: unable to save story: %v", ErrUnexpected, err)
	}

	story.User = lo.ToPtr(user.Brief())
	return story, nil
}

// GetStory returns an active story. Expired stories are treated as gone even
// before the sweep removes them.
func (v *StoryService) GetStory(ctx context.Context, storyID uint) (models.Story, error) {
	tx := v.db.WithContext(ctx)

	var story models.Story
	if err := tx.Where("id = ? AND expires_at > ?", storyID, v.now()).First(&story).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return story, fmt.Errorf("%w: story %d", ErrNotFound, storyID)
		}
		return story, fmt.Errorf("%w: unable to get story: %v", ErrUnexpected, err)
	}

	out, err := v.completeStories(tx, []models.Story{story})
	if err != nil {
		return story, err
	}
	return out[0], nil
}

func (v *StoryService) GetActiveStoriesByUser(ctx context.Context, userID uint) ([]models.Story, error) {
	tx := v.db.WithContext(ctx)
	return v.listActive(tx, tx.Where("user_id = ?", userID))
}

func (v *StoryService) GetFollowingStories(ctx context.Context, userID uint) ([]models.Story, error) {
	tx := v.db.WithContext(ctx)
	user, err := getUser(tx, userID)
	if err != nil {
		return nil, err
	}
	if len(user.Following) == 0 {
		return []models.Story{}, nil
	}
	return v.listActive(tx, tx.Where("user_id IN ?", []uint(user.Following)))
}

func (v *StoryService) listActive(tx, query *gorm.DB) ([]models.Story, error) {
	var stories []models.Story
	if err := query.
		Where("expires_at > ?", v.now()).
		Order("created_at DESC, id DESC").
		Find(&stories).Error; err != nil {
		return nil, fmt.Errorf("%w: unable to list stories: %v", ErrUnexpected, err)
	}
	return v.completeStories(tx, stories)
}

func (v *StoryService) completeStories(tx *gorm.DB, stories []models.Story) ([]models.Story, error) {
	if len(stories) == 0 {
		return []models.Story{}, nil
	}

	briefs, err := ListUserBrief(tx, lo.Map(stories, func(item models.Story, _ int) uint {
		return item.UserID
	}))
	if err != nil {
		return stories, err
	}
	for idx := range stories {
		if brief, ok := briefs[stories[idx].UserID]; ok {
			stories[idx].User = &brief
		}
	}
	return stories, nil
}

// DeleteStory removes the story whether or not it has expired, media first.
func (v *StoryService) DeleteStory(ctx context.Context, storyID, userID uint) error {
	tx := v.db.WithContext(ctx)

	var story models.Story
	if err := tx.Where("id = ?", storyID).First(&story).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: story %d", ErrNotFound, storyID)
		}
		return fmt.Errorf("%w: unable to get story: %v", ErrUnexpected, err)
	}
	if story.UserID != userID {
		return fmt.Errorf("%w: you can only delete your own story", ErrForbidden)
	}

	releaseMedia(ctx, v.media, story.Img)
	if err := tx.Delete(&story).Error; err != nil {
		return fmt.Errorf("%w: unable to delete story: %v", ErrUnexpected, err)
	}
	return nil
}

// SweepExpired deletes every story whose expiry is at or before now and
// releases its media. One failing story never stops the batch. The count of
// deleted records is returned.
func (v *StoryService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tx := v.db.WithContext(ctx)

	var expired []models.Story
	if err := tx.Where("expires_at <= ?", now.UTC()).Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("%w: unable to find expired stories: %v", ErrUnexpected, err)
	}

	var count int
	for _, story := range expired {
		releaseMedia(ctx, v.media, story.Img)
		res := tx.Delete(&models.Story{}, story.ID)
		if res.Error != nil {
			log.Error().Err(res.Error).Uint("story", story.ID).Msg("Failed to delete expired story...")
			continue
		}
		// already removed by its owner or another instance
		if res.RowsAffected > 0 {
			count++
		}
	}

	return count, nil
}

// SweepTimedTask is the entry for the scheduler.
func (v *StoryService) SweepTimedTask() {
	log.Debug().Msg("Sweeping expired stories...")

	start := time.Now()
	count, err := v.SweepExpired(context.Background(), v.NowFunc())
	if err != nil {
		log.Error().Err(err).Msg("An error occurred when sweeping expired stories...")
		return
	}

	log.Info().Int("count", count).Dur("elapsed", time.Since(start)).Msg("Swept expired stories.")
}
