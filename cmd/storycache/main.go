package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/newsgenie/storycache/cache"
	"github.com/newsgenie/storycache/config"
	"github.com/newsgenie/storycache/feed"
	"github.com/newsgenie/storycache/model"
	"github.com/newsgenie/storycache/prefetch"
	"github.com/newsgenie/storycache/remote"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(ExitUsageError)
	}

	app := &cli.App{
		Name:    "storycache",
		Usage:   "A scriptable offline cache for the mobile news feed",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Value:   cfg.DBPath,
				Usage:   "Story cache database path",
				EnvVars: []string{"STORYCACHE_DB"},
			},
			&cli.StringFlag{
				Name:    "api-url",
				Value:   cfg.APIBaseURL,
				Usage:   "Remote feed API base URL",
				EnvVars: []string{"STORYCACHE_API_URL"},
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token for the remote API",
				EnvVars: []string{"STORYCACHE_API_TOKEN"},
			},
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "Use the built-in mock feed instead of the network",
			},
			&cli.StringFlag{
				Name:  "rss",
				Usage: "Serve the feed from an RSS/Atom URL (read-only)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "feed",
				Usage: "Fetch a page of the feed",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "page",
						Aliases: []string{"p"},
						Value:   0,
						Usage:   "Page number (ignored when --cursor is set)",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   cfg.PageSize,
						Usage:   "Stories per page",
					},
					&cli.StringFlag{
						Name:  "cursor",
						Usage: "Opaque cursor from a previous page",
					},
					&cli.StringSliceFlag{
						Name:    "category",
						Aliases: []string{"c"},
						Usage:   "Filter by category (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "language",
						Usage: "Filter by language code (repeatable)",
					},
				},
				Action: fetchFeed,
			},
			{
				Name:      "story",
				Usage:     "Fetch a single story (cache first, then remote)",
				ArgsUsage: "<story-id>",
				Action:    fetchStory,
			},
			{
				Name:  "warm",
				Usage: "Prefetch the window ahead of a feed position",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Value:   -1,
						Usage:   "Current position in the page (-1 warms from the top)",
					},
					&cli.IntFlag{
						Name:    "window",
						Aliases: []string{"w"},
						Value:   cfg.PrefetchWindow,
						Usage:   "Lookahead window size",
					},
					&cli.StringFlag{
						Name:  "ttl",
						Usage: "Cache TTL for warmed stories (e.g., 30m, 6h, 2d)",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   cfg.PageSize,
						Usage:   "Stories per page",
					},
				},
				Action: warmWindow,
			},
			{
				Name:      "bookmark",
				Usage:     "Bookmark a story (local first, then remote)",
				ArgsUsage: "<story-id>",
				Action:    bookmarkStory,
			},
			{
				Name:      "unbookmark",
				Usage:     "Remove a bookmark",
				ArgsUsage: "<story-id>",
				Action:    unbookmarkStory,
			},
			{
				Name:   "bookmarks",
				Usage:  "List bookmarked story IDs",
				Action: listBookmarks,
			},
			{
				Name:  "cached",
				Usage: "List live cached stories",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Value:   cfg.MaxCachedStories,
						Usage:   "Maximum number of stories to return",
					},
				},
				Action: listCached,
			},
			{
				Name:   "evict",
				Usage:  "Delete expired cache records",
				Action: evictExpired,
			},
			{
				Name:   "clear",
				Usage:  "Delete all cached stories and bookmarks",
				Action: clearCache,
			},
			{
				Name:      "share",
				Usage:     "Record a share event",
				ArgsUsage: "<story-id> <platform>",
				Action:    shareStory,
			},
			{
				Name:   "sync",
				Usage:  "Replay pending bookmark operations against the remote",
				Action: drainSyncs,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitGeneralError)
	}
}

func getCache(c *cli.Context) *cache.Cache {
	dbPath := c.String("db")

	// Best effort; a failure here just means a degraded cache.
	_ = os.MkdirAll(filepath.Dir(dbPath), 0755)

	store := cache.OpenOrDegrade(dbPath, slog.Default())
	store.EvictExpired()
	return store
}

func getSource(c *cli.Context) (remote.Source, error) {
	if c.Bool("mock") {
		return remote.NewMock(), nil
	}
	if rssURL := c.String("rss"); rssURL != "" {
		src, err := remote.NewRSSSourceFromURL(c.Context, rssURL)
		if err != nil {
			return nil, fmt.Errorf("failed to load RSS feed: %w", err)
		}
		return src, nil
	}

	token := c.String("token")
	return remote.NewClient(
		c.String("api-url"),
		remote.WithTokenProvider(func() string { return token }),
	), nil
}

func getService(c *cli.Context) (*feed.Service, *cache.Cache, error) {
	src, err := getSource(c)
	if err != nil {
		return nil, nil, err
	}
	store := getCache(c)
	return feed.New(src, store, slog.Default()), store, nil
}

func feedParams(c *cli.Context) model.FeedParams {
	params := model.FeedParams{
		Page:   c.Int("page"),
		Limit:  c.Int("limit"),
		Cursor: c.String("cursor"),
	}
	for _, cat := range c.StringSlice("category") {
		params.Categories = append(params.Categories, model.Category(cat))
	}
	for _, lang := range c.StringSlice("language") {
		params.Languages = append(params.Languages, model.Language(lang))
	}
	return params
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func fetchFeed(c *cli.Context) error {
	svc, store, err := getService(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer store.Close()

	page, err := svc.FetchPage(c.Context, feedParams(c))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to fetch feed: %v", err), ExitDataError)
	}

	return outputJSON(page)
}

func fetchStory(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: storycache story <story-id>", ExitUsageError)
	}

	svc, store, err := getService(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer store.Close()

	storyID := c.Args().Get(0)
	cached := store.Get(storyID) != nil

	story, err := svc.FetchStory(c.Context, storyID)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to fetch story: %v", err), ExitDataError)
	}

	return outputJSON(map[string]interface{}{
		"story":      story,
		"from_cache": cached,
	})
}

// logSink stands in for the platform image pipeline: it reports what
// would be preloaded instead of downloading anything.
type logSink struct{}

func (logSink) Preload(urls []string, priority prefetch.Priority) {
	slog.Info("image preload", "count", len(urls), "priority", string(priority), "urls", urls)
}

func warmWindow(c *cli.Context) error {
	svc, store, err := getService(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer store.Close()

	page, err := svc.FetchPage(c.Context, model.FeedParams{Page: 0, Limit: c.Int("limit")})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to fetch feed: %v", err), ExitDataError)
	}

	opts := []prefetch.Option{prefetch.WithWindow(c.Int("window"))}
	if ttlStr := c.String("ttl"); ttlStr != "" {
		ttl, err := cache.ParseTTL(ttlStr)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Invalid TTL: %v", err), ExitUsageError)
		}
		opts = append(opts, prefetch.WithTTL(ttl))
	}

	controller := prefetch.NewController(store, logSink{}, opts...)
	controller.OnPositionChanged(page.Stories, c.Int("index"))
	controller.Wait()

	start, end := model.Window(c.Int("index"), c.Int("window"), len(page.Stories))
	return outputJSON(map[string]interface{}{
		"fetched": len(page.Stories),
		"warmed":  end - start,
		"cached":  store.CountCached(),
	})
}

func bookmarkStory(c *cli.Context) error {
	return setBookmark(c, true)
}

func unbookmarkStory(c *cli.Context) error {
	return setBookmark(c, false)
}

func setBookmark(c *cli.Context, bookmarked bool) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: storycache bookmark|unbookmark <story-id>", ExitUsageError)
	}

	svc, store, err := getService(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer store.Close()

	storyID := c.Args().Get(0)
	syncErr := svc.SetBookmark(c.Context, storyID, bookmarked)

	// The local write landed either way; report the remote state so
	// scripts can decide whether to re-run sync later.
	result := map[string]interface{}{
		"story_id":   storyID,
		"bookmarked": bookmarked,
		"synced":     syncErr == nil,
	}
	if syncErr != nil {
		result["sync_error"] = syncErr.Error()
	}
	return outputJSON(result)
}

func listBookmarks(c *cli.Context) error {
	store := getCache(c)
	defer store.Close()

	ids := store.ListBookmarkIDs()

	// Hydrate payloads that are still live in the cache.
	stories := make(map[string]*model.StoryCard)
	for _, id := range ids {
		if story := store.Get(id); story != nil {
			stories[id] = story
		}
	}

	return outputJSON(map[string]interface{}{
		"count":   len(ids),
		"ids":     ids,
		"cached":  stories,
		"pending": len(store.PendingSyncs()),
	})
}

func listCached(c *cli.Context) error {
	store := getCache(c)
	defer store.Close()

	stories := store.GetAllLive(c.Int("limit"))
	return outputJSON(map[string]interface{}{
		"count":   len(stories),
		"stories": stories,
	})
}

func evictExpired(c *cli.Context) error {
	dbPath := c.String("db")
	_ = os.MkdirAll(filepath.Dir(dbPath), 0755)

	// Skip the bootstrap eviction getCache runs so the count reflects
	// this command alone.
	store := cache.OpenOrDegrade(dbPath, slog.Default())
	defer store.Close()

	evicted := store.EvictExpired()

	return outputJSON(map[string]interface{}{
		"evicted": evicted,
		"live":    store.CountCached(),
	})
}

func clearCache(c *cli.Context) error {
	store := getCache(c)
	defer store.Close()

	store.Clear()
	return outputJSON(map[string]interface{}{
		"success": true,
	})
}

func shareStory(c *cli.Context) error {
	if c.NArg() < 2 {
		return cli.Exit("Usage: storycache share <story-id> <platform>", ExitUsageError)
	}

	svc, store, err := getService(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer store.Close()

	storyID := c.Args().Get(0)
	platform := c.Args().Get(1)

	// Analytics-style call: a failure is reported, never fatal.
	shareErr := svc.ShareStory(c.Context, storyID, platform)

	result := map[string]interface{}{
		"story_id": storyID,
		"platform": platform,
		"shared":   shareErr == nil,
	}
	if shareErr != nil {
		result["error"] = shareErr.Error()
	}
	return outputJSON(result)
}

func drainSyncs(c *cli.Context) error {
	src, err := getSource(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	store := getCache(c)
	defer store.Close()

	worker := feed.NewSyncWorker(store, src, 0, slog.Default())
	drained := worker.DrainOnce(c.Context)

	return outputJSON(map[string]interface{}{
		"drained":   drained,
		"remaining": len(store.PendingSyncs()),
	})
}
