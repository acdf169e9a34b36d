package api

import (
	"git.solsynth.dev/hypernet/murmur/pkg/internal/http/exts"
	"git.solsynth.dev/hypernet/murmur/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

type Deps struct {
	Accounts      *services.AccountService
	Graph         *services.GraphService
	Feeds         *services.FeedService
	Engagement    *services.EngagementService
	Stories       *services.StoryService
	Notifications *services.NotificationService
	Tokens        *exts.TokenKeeper
	AuthLimiter   *exts.RateLimiter
}

type controller struct {
	Deps
}

func MapControllers(app *fiber.App, baseURL string, deps Deps) {
	v := &controller{deps}

	api := app.Group(baseURL).Name("API")
	{
		auth := api.Group("/auth").Name("Auth API")
		if deps.AuthLimiter != nil {
			auth.Use(deps.AuthLimiter.Middleware())
		}
		{
			auth.Post("/signup", v.signUp)
			auth.Post("/login", v.login)
			auth.Post("/logout", v.logout)
			auth.Get("/me", v.getMe)
		}

		users := api.Group("/users").Name("Users API")
		{
			users.Get("/profile/:username", v.getUserProfile)
			users.Get("/suggested", v.listSuggestedUsers)
			users.Get("/following", v.listFollowingUsers)
			users.Get("/search", v.searchUsers)
			users.Post("/follow/:userId", v.followUnfollowUser)
			users.Post("/update", v.updateUser)
		}

		posts := api.Group("/posts").Name("Posts API")
		{
			posts.Get("/all", v.listAllPosts)
			posts.Get("/following", v.listFollowingPosts)
			posts.Get("/likes/:userId", v.listLikedPosts)
			posts.Get("/user/:username", v.listUserPosts)
			posts.Get("/bookmarks", v.listBookmarkedPosts)
			posts.Get("/:postId", v.getPost)
			posts.Post("/create", v.createPost)
			posts.Post("/like/:postId", v.likeUnlikePost)
			posts.Post("/comment/:postId", v.commentOnPost)
			posts.Post("/repost/:postId", v.repostPost)
			posts.Post("/bookmark/:postId", v.bookmarkPost)
			posts.Delete("/:postId", v.deletePost)
		}

		notifications := api.Group("/notifications").Name("Notifications API")
		{
			notifications.Get("/", v.listNotifications)
			notifications.Get("/count", v.countUnreadNotifications)
			notifications.Delete("/", v.deleteNotifications)
			notifications.Delete("/:notificationId", v.deleteNotification)
		}

		stories := api.Group("/stories").Name("Stories API")
		{
			stories.Post("/create", v.createStory)
			stories.Get("/mine", v.listMyStories)
			stories.Get("/following", v.listFollowingStories)
			stories.Get("/user/:userId", v.listUserStories)
			stories.Get("/:storyId", v.getStory)
			stories.Delete("/:storyId", v.deleteStory)
		}
	}
}

func paginationOf(c *fiber.Ctx) services.Pagination {
	return services.Pagination{
		Take:   c.QueryInt("take", 0),
		Offset: c.QueryInt("offset", 0),
	}
}

func idParam(c *fiber.Ctx, key string) (uint, error) {
	id, err := c.ParamsInt(key, 0)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+key)
	}
	return uint(id), nil
}
