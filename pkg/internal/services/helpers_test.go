package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/murmur/pkg/internal/database"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/models"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testImage = "data:image/png;base64,aGVsbG8gd29ybGQ="

var testEpoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"), database.Config{})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.RunMigration(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{
		Username:        username,
		Email:           username + "@example.com",
		FullName:        username,
		Password:        "unused",
		Followers:       datatypes.JSONSlice[uint]{},
		Following:       datatypes.JSONSlice[uint]{},
		LikedPosts:      datatypes.JSONSlice[uint]{},
		BookmarkedPosts: datatypes.JSONSlice[uint]{},
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) models.User {
	t.Helper()

	user, err := getUser(db, id)
	if err != nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return user
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeMediaStore keeps uploads in memory and can be told to fail.
type fakeMediaStore struct {
	mu        sync.Mutex
	seq       int
	objects   map[string][]byte
	released  []string
	failOnPut bool
	failOnRel bool
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{objects: make(map[string][]byte)}
}

func (s *fakeMediaStore) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failOnPut {
		return "", errors.New("upload rejected")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.seq++
	ref := fmt.Sprintf("https://media.test/%d/%s", s.seq, name)
	s.objects[ref] = data
	return ref, nil
}

func (s *fakeMediaStore) Release(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.released = append(s.released, ref)
	if s.failOnRel {
		return errors.New("release rejected")
	}
	delete(s.objects, ref)
	return nil
}

func (s *fakeMediaStore) Released() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.released...)
}

func (s *fakeMediaStore) Stored() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

type testEnv struct {
	db            *gorm.DB
	media         *fakeMediaStore
	clock         *testClock
	accounts      *AccountService
	notifications *NotificationService
	graph         *GraphService
	feeds         *FeedService
	engagement    *EngagementService
	stories       *StoryService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:    newTestDB(t),
		media: newFakeMediaStore(),
		clock: newTestClock(),
	}
	env.accounts = NewAccountService(env.db, env.media, nil)
	env.notifications = NewNotificationService(env.db)
	env.graph = NewGraphService(env.db)
	env.feeds = NewFeedService(env.db, env.media, env.accounts, nil)
	env.feeds.NowFunc = env.clock.Now
	env.engagement = NewEngagementService(env.db, env.feeds)
	env.engagement.NowFunc = env.clock.Now
	env.stories = NewStoryService(env.db, env.media)
	env.stories.NowFunc = env.clock.Now
	return env
}

func (env *testEnv) post(t *testing.T, userID uint, text string) models.Post {
	t.Helper()

	post, err := env.feeds.CreatePost(context.Background(), userID, PostInput{Text: text})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	env.clock.Advance(time.Second)
	return post
}
