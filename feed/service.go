// Package feed orchestrates paginated retrieval and cache-consistent
// mutations: pages come from the remote source, single-story reads go
// through the cache, and bookmark writes land locally first.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/newsgenie/storycache/cache"
	"github.com/newsgenie/storycache/model"
	"github.com/newsgenie/storycache/remote"
)

// Service is the feed query layer.
type Service struct {
	remote remote.Source
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates a Service over the given source and cache.
func New(src remote.Source, c *cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{remote: src, cache: c, logger: logger}
}

// FetchPage returns one page of the feed. Pages are never served from
// cache: pagination state belongs to the remote source, and a cached
// page is stale the moment filters change. A cursor the source no
// longer honors yields an empty page rather than an error.
func (s *Service) FetchPage(ctx context.Context, params model.FeedParams) (*model.FeedPage, error) {
	page, err := s.remote.GetFeed(ctx, params)
	if err != nil {
		if params.Cursor != "" && isDeadCursor(err) {
			return &model.FeedPage{Stories: []model.StoryCard{}, HasMore: false}, nil
		}
		return nil, fmt.Errorf("fetch feed page: %w", err)
	}

	if page.Stories == nil {
		page.Stories = []model.StoryCard{}
	}
	return page, nil
}

// isDeadCursor reports whether the remote rejected a cursor it once
// issued. 404/410 on the feed path means the window behind the token is
// gone, which callers treat the same as "no more pages".
func isDeadCursor(err error) bool {
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusGone
}

// FetchStory is the read-through single-story path: a live cache hit
// returns immediately without a network call; a miss goes to the remote
// source. Nothing is written back here. Warming the cache is the
// prefetch controller's job, which keeps this path free of write
// contention.
func (s *Service) FetchStory(ctx context.Context, storyID string) (*model.StoryCard, error) {
	if cached := s.cache.Get(storyID); cached != nil {
		return cached, nil
	}

	story, err := s.remote.GetStory(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("fetch story %s: %w", storyID, err)
	}
	return story, nil
}

// SetBookmark applies a bookmark change locally first, so the UI
// reflects it immediately and it survives a restart while offline, then
// persists it remotely. On remote failure the local state is retained,
// the operation is queued for the sync worker, and the error is
// returned so the caller can surface a retry.
func (s *Service) SetBookmark(ctx context.Context, storyID string, bookmarked bool) error {
	s.cache.SetBookmark(storyID, bookmarked)

	var err error
	op := cache.SyncOpBookmark
	if bookmarked {
		err = s.remote.BookmarkStory(ctx, storyID)
	} else {
		op = cache.SyncOpUnbookmark
		err = s.remote.UnbookmarkStory(ctx, storyID)
	}

	if err != nil {
		s.cache.EnqueueSync(storyID, op)
		return fmt.Errorf("bookmark %s: %w", storyID, err)
	}
	return nil
}

// IsBookmarked reports the local bookmark state.
func (s *Service) IsBookmarked(storyID string) bool {
	return s.cache.IsBookmarked(storyID)
}

// ListBookmarkIDs returns locally bookmarked story IDs, most recent
// first.
func (s *Service) ListBookmarkIDs() []string {
	return s.cache.ListBookmarkIDs()
}

// ShareStory records a share event. Pure remote call; the failure is
// reported but carries no local state to roll back.
func (s *Service) ShareStory(ctx context.Context, storyID, platform string) error {
	if err := s.remote.ShareStory(ctx, storyID, platform); err != nil {
		return fmt.Errorf("share story %s: %w", storyID, err)
	}
	return nil
}

// Bootstrap runs the startup eviction pass so reads only ever see live
// records.
func (s *Service) Bootstrap() {
	s.cache.EvictExpired()
}
