// Package remote provides the story providers the feed layer reads from:
// an HTTP JSON client, a deterministic in-process mock, and a read-only
// RSS adapter.
package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newsgenie/storycache/model"
)

// Source is the remote feed contract the cache core consumes.
type Source interface {
	// GetFeed returns one page of the feed. Cursor tokens in the returned
	// page are opaque and monotonically issued by the source.
	GetFeed(ctx context.Context, params model.FeedParams) (*model.FeedPage, error)

	// GetStory returns a single story by ID.
	GetStory(ctx context.Context, storyID string) (*model.StoryCard, error)

	// BookmarkStory persists a bookmark server-side.
	BookmarkStory(ctx context.Context, storyID string) error

	// UnbookmarkStory removes a server-side bookmark.
	UnbookmarkStory(ctx context.Context, storyID string) error

	// ShareStory records a share event for analytics.
	ShareStory(ctx context.Context, storyID, platform string) error
}

var (
	_ Source = (*Client)(nil)
	_ Source = (*Mock)(nil)
	_ Source = (*RSSSource)(nil)
)

// APIError is the uniform error shape surfaced by remote sources.
type APIError struct {
	Message    string          `json:"message"`
	Code       string          `json:"code"`
	StatusCode int             `json:"statusCode"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound reports whether err is an APIError for a missing resource.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == 404
}

// filterStories applies category and language filters, preserving order.
func filterStories(stories []model.StoryCard, params model.FeedParams) []model.StoryCard {
	if len(params.Categories) == 0 && len(params.Languages) == 0 {
		return stories
	}

	categories := make(map[model.Category]bool, len(params.Categories))
	for _, c := range params.Categories {
		categories[c] = true
	}
	languages := make(map[model.Language]bool, len(params.Languages))
	for _, l := range params.Languages {
		languages[l] = true
	}

	var out []model.StoryCard
	for _, s := range stories {
		if len(categories) > 0 && !categories[s.Category] {
			continue
		}
		if len(languages) > 0 && !languages[s.Language] {
			continue
		}
		out = append(out, s)
	}
	return out
}
