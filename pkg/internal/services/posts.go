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
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FeedService struct {
	db        *gorm.DB
	media     media.Store
	accounts  *AccountService
	languages *LanguageDetector

	NowFunc func() time.Time
}

// NewFeedService builds the feed service. A nil language detector disables
// language tagging.
func NewFeedService(db *gorm.DB, mediaStore media.Store, accounts *AccountService, languages *LanguageDetector) *FeedService {
	return &FeedService{
		db:        db,
		media:     mediaStore,
		accounts:  accounts,
		languages: languages,
		NowFunc:   time.Now,
	}
}

type PostInput struct {
	Text string
	Img  string
}

func (v *FeedService) CreatePost(ctx context.Context, userID uint, in PostInput) (models.Post, error) {
	var post models.Post
	if len(strings.TrimSpace(in.Text)) == 0 && len(in.Img) == 0 {
		return post, fmt.Errorf("%w: post must have either text or image", ErrValidation)
	}

	tx := v.db.WithContext(ctx)
	if _, err := getUser(tx, userID); err != nil {
		return post, err
	}

	start := time.Now()
	post = models.Post{
		UserID:   userID,
		Comments: datatypes.JSONSlice[models.PostComment]{},
		Likes:    datatypes.JSONSlice[uint]{},
	}
	post.CreatedAt = v.NowFunc().UTC()
	if len(strings.TrimSpace(in.Text)) > 0 {
		post.Text = lo.ToPtr(in.Text)
		post.Language = v.languages.Detect(in.Text)
	}
	if len(in.Img) > 0 {
		ref, err := uploadMedia(ctx, v.media, "posts", in.Img)
		if err != nil {
			return post, err
		}
		post.Img = &ref
	}

	if err := tx.Create(&post).Error; err != nil {
		releaseMedia(ctx, v.media, post.Img)
		return post, fmt.Errorf("%w: unable to save post: %v", ErrUnexpected, err)
	}

	log.Debug().Uint("post", post.ID).Dur("elapsed", time.Since(start)).Msg("The post is posted.")
	return v.completePost(ctx, post)
}

func (v *FeedService) DeletePost(ctx context.Context, postID, userID uint) error {
	tx := v.db.WithContext(ctx)
	post, err := getPost(tx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return fmt.Errorf("%w: you can only delete your own post", ErrForbidden)
	}

	releaseMedia(ctx, v.media, post.Img)
	if err := tx.Delete(&post).Error; err != nil {
		return fmt.Errorf("%w: unable to delete post: %v", ErrUnexpected, err)
	}
	return nil
}

func (v *FeedService) GetPost(ctx context.Context, postID uint) (models.Post, error) {
	post, err := getPost(v.db.WithContext(ctx), postID)
	if err != nil {
		return post, err
	}
	return v.completePost(ctx, post)
}

func (v *FeedService) GetAllPosts(ctx context.Context, page Pagination) ([]models.Post, error) {
	return v.listPosts(ctx, v.db.WithContext(ctx), page)
}

func (v *FeedService) GetFollowingFeed(ctx context.Context, userID uint, page Pagination) ([]models.Post, error) {
	user, err := getUser(v.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if len(user.Following) == 0 {
		return []models.Post{}, nil
	}
	return v.listPosts(ctx, v.db.WithContext(ctx).Where("user_id IN ?", []uint(user.Following)), page)
}

func (v *FeedService) GetUserFeed(ctx context.Context, username string, page Pagination) ([]models.Post, error) {
	userID, err := v.accounts.LookupUserID(ctx, username)
	if err != nil {
		return nil, err
	}
	return v.listPosts(ctx, v.db.WithContext(ctx).Where("user_id = ?", userID), page)
}

func (v *FeedService) GetLikedPosts(ctx context.Context, userID uint, page Pagination) ([]models.Post, error) {
	user, err := getUser(v.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if len(user.LikedPosts) == 0 {
		return []models.Post{}, nil
	}
	return v.listPosts(ctx, v.db.WithContext(ctx).Where("id IN ?", []uint(user.LikedPosts)), page)
}

// GetBookmarkedPosts keeps the order the user bookmarked the posts in.
// Bookmarks pointing at deleted posts are skipped.
func (v *FeedService) GetBookmarkedPosts(ctx context.Context, userID uint, page Pagination) ([]models.Post, error) {
	tx := v.db.WithContext(ctx)
	user, err := getUser(tx, userID)
	if err != nil {
		return nil, err
	}

	idx := Window([]uint(user.BookmarkedPosts), page)
	if len(idx) == 0 {
		return []models.Post{}, nil
	}

	var items []models.Post
	if err := tx.Where("id IN ?", idx).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("%w: unable to list bookmarked posts: %v", ErrUnexpected, err)
	}
	itemMap := lo.SliceToMap(items, func(item models.Post) (uint, models.Post) {
		return item.ID, item
	})

	posts := lo.FilterMap(idx, func(id uint, _ int) (models.Post, bool) {
		post, ok := itemMap[id]
		return post, ok
	})
	return v.completePosts(ctx, posts)
}

// RepostPost toggles the user's repost of a post. Reposting a repost targets
// the post it points at. The returned flag is true when a repost was created.
func (v *FeedService) RepostPost(ctx context.Context, postID, userID uint) (models.Post, bool, error) {
	tx := v.db.WithContext(ctx)

	target := postID
	var source models.Post
	sourceErr := tx.Where("id = ?", postID).First(&source).Error
	if sourceErr != nil && !errors.Is(sourceErr, gorm.ErrRecordNotFound) {
		return source, false, fmt.Errorf("%w: unable to get post: %v", ErrUnexpected, sourceErr)
	}
	if sourceErr == nil && source.IsRepost && source.OriginalPostID != nil {
		target = *source.OriginalPostID
	}

	var existing models.Post
	if err := tx.
		Where("user_id = ? AND original_post_id = ? AND is_repost = ?", userID, target, true).
		First(&existing).Error; err == nil {
		if err := tx.Delete(&existing).Error; err != nil {
			return existing, false, fmt.Errorf("%w: unable to remove repost: %v", ErrUnexpected, err)
		}
		log.Debug().Uint("user", userID).Uint("post", target).Msg("Repost removed.")
		return existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return existing, false, fmt.Errorf("%w: unable to check repost: %v", ErrUnexpected, err)
	}

	if sourceErr != nil {
		return source, false, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	}
	if target != postID {
		if _, err := getPost(tx, target); err != nil {
			return source, false, err
		}
	}
	if _, err := getUser(tx, userID); err != nil {
		return source, false, err
	}

	repost := models.Post{
		UserID:         userID,
		IsRepost:       true,
		OriginalPostID: &target,
		Comments:       datatypes.JSONSlice[models.PostComment]{},
		Likes:          datatypes.JSONSlice[uint]{},
	}
	repost.CreatedAt = v.NowFunc().UTC()
	if err := tx.Create(&repost).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repost, false, fmt.Errorf("%w: post already reposted", ErrConflict)
		}
		return repost, false, fmt.Errorf("%w: unable to save repost: %v", ErrUnexpected, err)
	}

	out, err := v.completePost(ctx, repost)
	return out, true, err
}

// BookmarkToggle adds or removes the post from the user's bookmarks and
// reports whether it is bookmarked afterwards.
func (v *FeedService) BookmarkToggle(ctx context.Context, postID, userID uint) (bool, error) {
	var bookmarked bool
	err := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getPost(tx, postID); err != nil {
			return err
		}
		user, err := getUser(lockForUpdate(tx), userID)
		if err != nil {
			return err
		}

		bookmarked = !lo.Contains(user.BookmarkedPosts, postID)
		if bookmarked {
			user.BookmarkedPosts = append(user.BookmarkedPosts, postID)
		} else {
			user.BookmarkedPosts = removeAll(user.BookmarkedPosts, postID)
		}
		return updateIDSet(tx, userID, "bookmarked_posts", user.BookmarkedPosts)
	})
	return bookmarked, err
}

func (v *FeedService) listPosts(ctx context.Context, tx *gorm.DB, page Pagination) ([]models.Post, error) {
	var posts []models.Post
	if err := page.Apply(tx).
		Order("created_at DESC, id DESC").
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("%w: unable to list posts: %v", ErrUnexpected, err)
	}
	return v.completePosts(ctx, posts)
}

func (v *FeedService) completePost(ctx context.Context, post models.Post) (models.Post, error) {
	out, err := v.completePosts(ctx, []models.Post{post})
	if err != nil {
		return post, err
	}
	return out[0], nil
}

// completePosts turns stored records into their read model: reposts take the
// likes and comments of the post they point at, and authors are attached.
// A repost whose original is gone resolves to empty engagement and no
// original post.
func (v *FeedService) completePosts(ctx context.Context, posts []models.Post) ([]models.Post, error) {
	if len(posts) == 0 {
		return []models.Post{}, nil
	}
	tx := v.db.WithContext(ctx)

	originalsID := lo.FilterMap(posts, func(item models.Post, _ int) (uint, bool) {
		if item.IsRepost && item.OriginalPostID != nil {
			return *item.OriginalPostID, true
		}
		return 0, false
	})
	originals := make(map[uint]models.Post)
	if len(originalsID) > 0 {
		var items []models.Post
		if err := tx.Where("id IN ?", lo.Uniq(originalsID)).Find(&items).Error; err != nil {
			return posts, fmt.Errorf("%w: unable to load original posts: %v", ErrUnexpected, err)
		}
		originals = lo.SliceToMap(items, func(item models.Post) (uint, models.Post) {
			return item.ID, item
		})
	}

	var usersID []uint
	for idx := range posts {
		post := &posts[idx]
		if post.IsRepost {
			post.OriginalPost = nil
			post.Likes = datatypes.JSONSlice[uint]{}
			post.Comments = datatypes.JSONSlice[models.PostComment]{}
			if post.OriginalPostID != nil {
				if original, ok := originals[*post.OriginalPostID]; ok {
					post.OriginalPost = &original
					post.Likes = original.Likes
					post.Comments = original.Comments
					usersID = append(usersID, original.UserID)
				}
			}
		}
		if post.Likes == nil {
			post.Likes = datatypes.JSONSlice[uint]{}
		}
		if post.Comments == nil {
			post.Comments = datatypes.JSONSlice[models.PostComment]{}
		}

		usersID = append(usersID, post.UserID)
		for _, comment := range post.Comments {
			usersID = append(usersID, comment.UserID)
		}
	}

	briefs, err := ListUserBrief(tx, usersID)
	if err != nil {
		return posts, err
	}
	findBrief := func(id uint) *models.UserBrief {
		if brief, ok := briefs[id]; ok {
			return &brief
		}
		return nil
	}

	for idx := range posts {
		post := &posts[idx]
		post.User = findBrief(post.UserID)

		comments := make(datatypes.JSONSlice[models.PostComment], len(post.Comments))
		for cdx, comment := range post.Comments {
			comment.User = findBrief(comment.UserID)
			comments[cdx] = comment
		}
		post.Comments = comments

		if post.OriginalPost != nil {
			post.OriginalPost.User = findBrief(post.OriginalPost.UserID)
			post.OriginalPost.Comments = comments
		}
	}

	return posts, nil
}
