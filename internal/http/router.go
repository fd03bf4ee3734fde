package http

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/auth"
	"github.com/gabriel/media-catalog/internal/config"
	"github.com/gabriel/media-catalog/internal/http/handlers"
	"github.com/gabriel/media-catalog/internal/notifications"
	"github.com/gabriel/media-catalog/internal/repository"
	"github.com/gabriel/media-catalog/internal/scraperclient"
	"github.com/gabriel/media-catalog/internal/tmdb"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Dependencies struct {
	Config   config.Config
	DB       *sql.DB
	TMDB     *tmdb.Client
	Auth     *auth.Manager
	Scraper  *scraperclient.Client
	Notifier notifications.Notifier
	Logger   *slog.Logger
}

func NewServer(deps Dependencies) *fiber.App {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Scraper == nil {
		deps.Scraper = scraperclient.NewClient(cfg.ScraperURL, nil)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	if cfg.APIRateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.APIRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return apperr.New(apperr.KindRateLimited, "too many requests")
			},
		}))
	}

	users := repository.NewUserRepository(deps.DB)
	friendRepo := repository.NewFriendRepository(deps.DB)
	linkRepo := repository.NewLinkRepository(deps.DB)

	health := handlers.NewHealthHandler(deps.DB, deps.TMDB, deps.Scraper.Configured())
	accounts := handlers.NewUsersHandler(users, friendRepo, deps.Auth, cfg.AdminEmails)
	catalog := handlers.NewCatalogHandler(deps.TMDB)
	favorites := handlers.NewFavoritesHandler(repository.NewFavoriteRepository(deps.DB))
	collections := handlers.NewCollectionsHandler(repository.NewCollectionRepository(deps.DB))
	reviews := handlers.NewReviewsHandler(repository.NewReviewRepository(deps.DB))
	watched := handlers.NewWatchedHandler(repository.NewWatchedRepository(deps.DB), deps.TMDB)
	friends := handlers.NewFriendsHandler(friendRepo, deps.Notifier, logger)
	links := handlers.NewLinksHandler(
		linkRepo,
		scraperclient.NewDiscoverer(deps.Scraper, linkRepo, logger),
		deps.Scraper,
	)

	app.Get("/health", health.Check)
	app.Get("/v1/health", health.Check)

	v1 := app.Group("/v1")
	v1.Post("/auth/register", accounts.Register)
	v1.Post("/auth/login", accounts.Login)

	v1.Get("/catalog/trending", catalog.Trending)
	v1.Get("/catalog/popular/:mediaType", catalog.Popular)
	v1.Get("/catalog/top-rated/:mediaType", catalog.TopRated)
	v1.Get("/catalog/search", catalog.Search)
	v1.Get("/catalog/discover/:mediaType", catalog.Discover)
	v1.Get("/catalog/genres/:mediaType", catalog.Genres)
	v1.Get("/catalog/movie/:id", catalog.Movie)
	v1.Get("/catalog/tv/:id", catalog.TV)
	v1.Get("/catalog/tv/:id/season/:season", catalog.Season)

	v1.Get("/reviews/:mediaType/:id", reviews.ListForTitle)
	v1.Get("/links/movie/:id", links.Movie)
	v1.Get("/links/tv/:id", links.Series)
	v1.Get("/links/tv/:id/season/:season/episode/:episode", links.Episode)

	authed := v1.Group("", deps.Auth.RequireUser())
	authed.Get("/me", accounts.Me)
	authed.Put("/me", accounts.UpdateMe)
	authed.Get("/users", accounts.Search)
	authed.Get("/users/:id", accounts.Get)
	authed.Get("/users/:id/collections", collections.ListForUser)
	authed.Get("/users/:id/reviews", reviews.ListByUser)

	authed.Get("/favorites", favorites.List)
	authed.Post("/favorites", favorites.Add)
	authed.Get("/favorites/:mediaType/:id", favorites.Status)
	authed.Delete("/favorites/:mediaType/:id", favorites.Remove)

	authed.Get("/collections", collections.List)
	authed.Post("/collections", collections.Create)
	authed.Get("/collections/containing/:mediaType/:tmdbId", collections.Containing)
	authed.Get("/collections/:id", collections.Get)
	authed.Put("/collections/:id", collections.Update)
	authed.Delete("/collections/:id", collections.Delete)
	authed.Get("/collections/:id/items", collections.ListItems)
	authed.Post("/collections/:id/items", collections.AddItem)
	authed.Delete("/collections/:id/items/:mediaType/:tmdbId", collections.RemoveItem)

	authed.Get("/reviews/:mediaType/:id/mine", reviews.Mine)
	authed.Put("/reviews/:mediaType/:id", reviews.Upsert)
	authed.Delete("/reviews/:mediaType/:id", reviews.Delete)

	authed.Get("/watched/tv/:id", watched.List)
	authed.Put("/watched/tv/:id/season/:season", watched.MarkSeason)
	authed.Delete("/watched/tv/:id/season/:season", watched.UnmarkSeason)
	authed.Put("/watched/tv/:id/season/:season/episode/:episode", watched.Mark)
	authed.Delete("/watched/tv/:id/season/:season/episode/:episode", watched.Unmark)

	authed.Get("/friends", friends.List)
	authed.Delete("/friends/:id", friends.Remove)
	authed.Get("/friend-requests", friends.ListRequests)
	authed.Post("/friend-requests", friends.Send)
	authed.Post("/friend-requests/:id/accept", friends.Accept)
	authed.Post("/friend-requests/:id/decline", friends.Decline)
	authed.Post("/friend-requests/:id/cancel", friends.Cancel)

	admin := authed.Group("/admin", auth.RequireAdmin())
	admin.Post("/links", links.Add)
	admin.Delete("/links/:id", links.Delete)
	admin.Post("/links/discover", links.Discover)
	admin.Get("/scraper/health", links.ScraperHealth)
	admin.Put("/users/:id/role", accounts.SetRole)

	return app
}
