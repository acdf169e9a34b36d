package services

import (
	"context"
	"errors"
	"testing"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"github.com/samber/lo"
)

func TestLikeUnlike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")
	bob := createTestUser(t, env.db, "bob")

	post := env.post(t, alice.ID, "hello")

	likes, liked, err := env.engagement.LikeUnlike(ctx, post.ID, bob.ID)
	if err != nil || !liked {
		t.Fatalf("like: liked=%v err=%v", liked, err)
	}
	if len(likes) != 1 || likes[0] != bob.ID {
		t.Fatalf("unexpected likes %v", likes)
	}
	if user := reloadUser(t, env.db, bob.ID); !lo.Contains(user.LikedPosts, post.ID) {
		t.Fatalf("expected post in liked set, got %v", user.LikedPosts)
	}

	liked2, err := env.feeds.GetLikedPosts(ctx, bob.ID, Pagination{})
	if err != nil {
		t.Fatalf("liked posts: %v", err)
	}
	if len(liked2) != 1 || liked2[0].ID != post.ID {
		t.Fatalf("unexpected liked posts %v", postTexts(liked2))
	}

	likes, liked, err = env.engagement.LikeUnlike(ctx, post.ID, bob.ID)
	if err != nil || liked {
		t.Fatalf("unlike: liked=%v err=%v", liked, err)
	}
	if len(likes) != 0 {
		t.Fatalf("expected no likes, got %v", likes)
	}
	if user := reloadUser(t, env.db, bob.ID); len(user.LikedPosts) != 0 {
		t.Fatalf("expected empty liked set, got %v", user.LikedPosts)
	}

	var notifications []models.Notification
	env.db.Where("to_id = ?", alice.ID).Find(&notifications)
	if len(notifications) != 1 || notifications[0].Type != models.NotificationTypeLike {
		t.Fatalf("expected a single like notification, got %+v", notifications)
	}

	if _, _, err := env.engagement.LikeUnlike(ctx, 999, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLikeOwnPostDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")

	post := env.post(t, alice.ID, "hello")
	if _, _, err := env.engagement.LikeUnlike(ctx, post.ID, alice.ID); err != nil {
		t.Fatalf("like: %v", err)
	}

	var count int64
	env.db.Model(&models.Notification{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no notifications, got %d", count)
	}
}

func TestLikeRepostTargetsOriginal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")
	bob := createTestUser(t, env.db, "bob")
	carol := createTestUser(t, env.db, "carol")

	original := env.post(t, alice.ID, "original")
	repost, _, err := env.feeds.RepostPost(ctx, original.ID, bob.ID)
	if err != nil {
		t.Fatalf("repost: %v", err)
	}

	if _, _, err := env.engagement.LikeUnlike(ctx, repost.ID, carol.ID); err != nil {
		t.Fatalf("like repost: %v", err)
	}

	stored, err := getPost(env.db, original.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if !lo.Contains(stored.Likes, carol.ID) {
		t.Fatalf("expected like on the original, got %v", stored.Likes)
	}
}

func TestComment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")
	bob := createTestUser(t, env.db, "bob")

	post := env.post(t, alice.ID, "hello")

	if _, err := env.engagement.Comment(ctx, post.ID, bob.ID, " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := env.engagement.Comment(ctx, 999, bob.ID, "hi"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	first, err := env.engagement.Comment(ctx, post.ID, bob.ID, "first")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	second, err := env.engagement.Comment(ctx, post.ID, alice.ID, "second")
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	if len(first.Comments) != 1 || len(second.Comments) != 2 {
		t.Fatalf("unexpected comment counts %d, %d", len(first.Comments), len(second.Comments))
	}
	if second.Comments[0].Text != "first" || second.Comments[1].Text != "second" {
		t.Fatalf("expected append order, got %+v", second.Comments)
	}
	if second.Comments[0].User == nil || second.Comments[0].User.Username != "bob" {
		t.Fatalf("expected commenter brief, got %+v", second.Comments[0].User)
	}

	var notifications []models.Notification
	env.db.Where("to_id = ?", alice.ID).Find(&notifications)
	if len(notifications) != 1 || notifications[0].Type != models.NotificationTypeComment {
		t.Fatalf("expected one comment notification, got %+v", notifications)
	}
}
