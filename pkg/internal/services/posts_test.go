package services

import (
	"context"
	"errors"
	"testing"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
)

func postTexts(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, post := range posts {
		if post.Text != nil {
			out = append(out, *post.Text)
		} else {
			out = append(out, "")
		}
	}
	return out
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")

	post, err := env.feeds.CreatePost(ctx, alice.ID, PostInput{Text: "hello", Img: testImage})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.Img == nil || env.media.Stored() != 1 {
		t.Fatalf("expected uploaded image, got %v", post.Img)
	}
	if post.User == nil || post.User.ID != alice.ID {
		t.Fatalf("expected author brief, got %+v", post.User)
	}
	if post.Likes == nil || post.Comments == nil {
		t.Fatal("expected empty likes and comments")
	}

	if _, err := env.feeds.CreatePost(ctx, alice.ID, PostInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := env.feeds.CreatePost(ctx, alice.ID, PostInput{Img: "not a data url"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for bad media, got %v", err)
	}
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")
	bob := createTestUser(t, env.db, "bob")

	post, err := env.feeds.CreatePost(ctx, alice.ID, PostInput{Img: testImage})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err := env.feeds.DeletePost(ctx, post.ID, bob.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := env.feeds.DeletePost(ctx, post.ID, alice.ID); err != nil {
		t.Fatalf("delete post: %v", err)
	}
	if env.media.Stored() != 0 {
		t.Fatal("expected media to be released")
	}
	if _, err := env.feeds.GetPost(ctx, post.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFeedsOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")
	bob := createTestUser(t, env.db, "bob")
	carol := createTestUser(t, env.db, "carol")

	env.post(t, bob.ID, "bob-1")
	env.post(t, carol.ID, "carol-1")
	env.post(t, bob.ID, "bob-2")

	all, err := env.feeds.GetAllPosts(ctx, Pagination{})
	if err != nil {
		t.Fatalf("all posts: %v", err)
	}
	if got := postTexts(all); len(got) != 3 || got[0] != "bob-2" || got[2] != "bob-1" {
		t.Fatalf("unexpected order %v", got)
	}

	paged, err := env.feeds.GetAllPosts(ctx, Pagination{Take: 1, Offset: 1})
	if err != nil {
		t.Fatalf("paged posts: %v", err)
	}
	if got := postTexts(paged); len(got) != 1 || got[0] != "carol-1" {
		t.Fatalf("unexpected page %v", got)
	}

	following, err := env.feeds.GetFollowingFeed(ctx, alice.ID, Pagination{})
	if err != nil {
		t.Fatalf("following feed: %v", err)
	}
	if len(following) != 0 {
		t.Fatalf("expected empty feed, got %v", postTexts(following))
	}

	if _, err := env.graph.FollowUnfollow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("follow: %v", err)
	}
	following, err = env.feeds.GetFollowingFeed(ctx, alice.ID, Pagination{})
	if err != nil {
		t.Fatalf("following feed: %v", err)
	}
	if got := postTexts(following); len(got) != 2 || got[0] != "bob-2" || got[1] != "bob-1" {
		t.Fatalf("unexpected following feed %v", got)
	}

	followed, err := env.graph.FollowUnfollow(ctx, alice.ID, bob.ID)
	if err != nil || followed {
		t.Fatalf("unfollow: followed=%v err=%v", followed, err)
	}
	following, err = env.feeds.GetFollowingFeed(ctx, alice.ID, Pagination{})
	if err != nil {
		t.Fatalf("following feed: %v", err)
	}
	if len(following) != 0 {
		t.Fatalf("expected empty feed after unfollow, got %v", postTexts(following))
	}

	byUser, err := env.feeds.GetUserFeed(ctx, "carol", Pagination{})
	if err != nil {
		t.Fatalf("user feed: %v", err)
	}
	if got := postTexts(byUser); len(got) != 1 || got[0] != "carol-1" {
		t.Fatalf("unexpected user feed %v", got)
	}
	if _, err := env.feeds.GetUserFeed(ctx, "nobody", Pagination{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepostToggle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")
	bob := createTestUser(t, env.db, "bob")
	carol := createTestUser(t, env.db, "carol")

	original := env.post(t, alice.ID, "original")

	repost, created, err := env.feeds.RepostPost(ctx, original.ID, bob.ID)
	if err != nil || !created {
		t.Fatalf("repost: created=%v err=%v", created, err)
	}
	if !repost.IsRepost || repost.OriginalPost == nil || repost.OriginalPost.ID != original.ID {
		t.Fatalf("expected resolved repost, got %+v", repost)
	}

	// reposting a repost targets the root post
	nested, created, err := env.feeds.RepostPost(ctx, repost.ID, carol.ID)
	if err != nil || !created {
		t.Fatalf("nested repost: created=%v err=%v", created, err)
	}
	if *nested.OriginalPostID != original.ID {
		t.Fatalf("expected root target %d, got %d", original.ID, *nested.OriginalPostID)
	}

	_, created, err = env.feeds.RepostPost(ctx, original.ID, bob.ID)
	if err != nil || created {
		t.Fatalf("un-repost: created=%v err=%v", created, err)
	}

	var count int64
	env.db.Model(&models.Post{}).Where("user_id = ? AND is_repost = ?", bob.ID, true).Count(&count)
	if count != 0 {
		t.Fatalf("expected bob's repost removed, got %d", count)
	}

	if _, _, err := env.feeds.RepostPost(ctx, 999, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRepostResolution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")
	bob := createTestUser(t, env.db, "bob")

	original := env.post(t, alice.ID, "original")
	repost, _, err := env.feeds.RepostPost(ctx, original.ID, bob.ID)
	if err != nil {
		t.Fatalf("repost: %v", err)
	}

	if _, _, err := env.engagement.LikeUnlike(ctx, original.ID, bob.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := env.engagement.Comment(ctx, original.ID, bob.ID, "nice"); err != nil {
		t.Fatalf("comment: %v", err)
	}

	resolved, err := env.feeds.GetPost(ctx, repost.ID)
	if err != nil {
		t.Fatalf("get repost: %v", err)
	}
	if len(resolved.Likes) != 1 || resolved.Likes[0] != bob.ID {
		t.Fatalf("expected original likes, got %v", resolved.Likes)
	}
	if len(resolved.Comments) != 1 || resolved.Comments[0].User == nil || resolved.Comments[0].User.ID != bob.ID {
		t.Fatalf("expected original comments with authors, got %+v", resolved.Comments)
	}

	if err := env.feeds.DeletePost(ctx, original.ID, alice.ID); err != nil {
		t.Fatalf("delete original: %v", err)
	}
	tombstone, err := env.feeds.GetPost(ctx, repost.ID)
	if err != nil {
		t.Fatalf("get repost: %v", err)
	}
	if tombstone.OriginalPost != nil || len(tombstone.Likes) != 0 || len(tombstone.Comments) != 0 {
		t.Fatalf("expected tombstoned repost, got %+v", tombstone)
	}

	// the dangling repost can still be toggled off
	_, created, err := env.feeds.RepostPost(ctx, original.ID, bob.ID)
	if err != nil || created {
		t.Fatalf("remove dangling repost: created=%v err=%v", created, err)
	}
}

func TestBookmarks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")

	first := env.post(t, alice.ID, "first")
	second := env.post(t, alice.ID, "second")
	third := env.post(t, alice.ID, "third")

	for _, post := range []models.Post{second, first, third} {
		bookmarked, err := env.feeds.BookmarkToggle(ctx, post.ID, alice.ID)
		if err != nil || !bookmarked {
			t.Fatalf("bookmark %d: bookmarked=%v err=%v", post.ID, bookmarked, err)
		}
	}

	// re-bookmarking moves the post to the end
	if _, err := env.feeds.BookmarkToggle(ctx, first.ID, alice.ID); err != nil {
		t.Fatalf("unbookmark: %v", err)
	}
	if _, err := env.feeds.BookmarkToggle(ctx, first.ID, alice.ID); err != nil {
		t.Fatalf("rebookmark: %v", err)
	}

	bookmarks, err := env.feeds.GetBookmarkedPosts(ctx, alice.ID, Pagination{})
	if err != nil {
		t.Fatalf("bookmarks: %v", err)
	}
	if got := postTexts(bookmarks); len(got) != 3 || got[0] != "second" || got[1] != "third" || got[2] != "first" {
		t.Fatalf("unexpected bookmark order %v", got)
	}

	if err := env.feeds.DeletePost(ctx, third.ID, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	bookmarks, err = env.feeds.GetBookmarkedPosts(ctx, alice.ID, Pagination{})
	if err != nil {
		t.Fatalf("bookmarks: %v", err)
	}
	if got := postTexts(bookmarks); len(got) != 2 {
		t.Fatalf("expected deleted post skipped, got %v", got)
	}

	if _, err := env.feeds.BookmarkToggle(ctx, 999, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBookmarkToggleTwiceRestoresList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := createTestUser(t, env.db, "alice")

	first := env.post(t, alice.ID, "first")
	second := env.post(t, alice.ID, "second")
	other := env.post(t, alice.ID, "other")

	for _, post := range []models.Post{first, second} {
		if _, err := env.feeds.BookmarkToggle(ctx, post.ID, alice.ID); err != nil {
			t.Fatalf("bookmark %d: %v", post.ID, err)
		}
	}
	before := []uint(reloadUser(t, env.db, alice.ID).BookmarkedPosts)

	for i, want := range []bool{true, false} {
		bookmarked, err := env.feeds.BookmarkToggle(ctx, other.ID, alice.ID)
		if err != nil || bookmarked != want {
			t.Fatalf("toggle %d: bookmarked=%v err=%v", i, bookmarked, err)
		}
	}

	after := []uint(reloadUser(t, env.db, alice.ID).BookmarkedPosts)
	if len(after) != len(before) {
		t.Fatalf("expected %v, got %v", before, after)
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("expected %v, got %v", before, after)
		}
	}
	if before[0] != first.ID || before[1] != second.ID {
		t.Fatalf("unexpected bookmark order %v", before)
	}
}
