package remote

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/newsgenie/storycache/model"
)

// RSSSource adapts an RSS/Atom document into a read-only Source. It is
// useful for local development against a real publisher feed without the
// backend. Mutations (bookmark, share) are unsupported and report an
// APIError.
type RSSSource struct {
	title   string
	stories []model.StoryCard
}

// NewRSSSourceFromURL fetches and parses a feed from a URL.
func NewRSSSourceFromURL(ctx context.Context, url string) (*RSSSource, error) {
	parsed, err := gofeed.NewParser().ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed from %s: %w", url, err)
	}
	return newRSSSource(parsed), nil
}

// NewRSSSource parses feed content from a string.
func NewRSSSource(content string) (*RSSSource, error) {
	if content == "" {
		return nil, fmt.Errorf("feed content is empty")
	}

	parsed, err := gofeed.NewParser().ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return newRSSSource(parsed), nil
}

func newRSSSource(parsed *gofeed.Feed) *RSSSource {
	src := &RSSSource{title: parsed.Title}

	language := model.LangEnglish
	if parsed.Language != "" {
		// "en-US" and friends carry a region suffix.
		code := strings.SplitN(strings.ToLower(parsed.Language), "-", 2)[0]
		language = model.Language(code)
	}

	for _, item := range parsed.Items {
		src.stories = append(src.stories, convertItem(item, parsed.Title, language))
	}
	return src
}

// convertItem maps a gofeed.Item onto a StoryCard.
func convertItem(item *gofeed.Item, sourceName string, language model.Language) model.StoryCard {
	story := model.StoryCard{
		ID:       item.GUID,
		Title:    item.Title,
		Summary:  item.Description,
		Category: categoryFromItem(item),
		Source:   sourceName,
		Language: language,
	}

	// Use link as ID if GUID is missing
	if story.ID == "" {
		story.ID = item.Link
	}

	if item.Image != nil {
		story.ImageURL = item.Image.URL
	}
	for _, enclosure := range item.Enclosures {
		switch {
		case story.ImageURL == "" && strings.HasPrefix(enclosure.Type, "image/"):
			story.ImageURL = enclosure.URL
		case story.AudioURL == "" && strings.HasPrefix(enclosure.Type, "audio/"):
			story.AudioURL = enclosure.URL
		}
	}

	if item.PublishedParsed != nil {
		story.PublishedAt = item.PublishedParsed.UTC().Format(time.RFC3339)
	} else if item.UpdatedParsed != nil {
		story.PublishedAt = item.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	story.ReadTime = estimateReadTime(item.Content + " " + item.Description)
	return story
}

// categoryFromItem matches the item's categories against the known
// topic tags, defaulting to "world".
func categoryFromItem(item *gofeed.Item) model.Category {
	for _, raw := range item.Categories {
		candidate := model.Category(strings.ToLower(strings.TrimSpace(raw)))
		for _, known := range model.Categories {
			if candidate == known {
				return known
			}
		}
	}
	return model.CategoryWorld
}

// estimateReadTime approximates minutes to read at ~200 words/minute.
func estimateReadTime(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + 199) / 200
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Len returns the number of stories parsed from the feed.
func (r *RSSSource) Len() int {
	return len(r.stories)
}

// GetFeed pages through the parsed items. Cursors are page numbers
// rendered as opaque strings.
func (r *RSSSource) GetFeed(_ context.Context, params model.FeedParams) (*model.FeedPage, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	filtered := filterStories(r.stories, params)

	page := params.Page
	if params.Cursor != "" {
		parsed, err := strconv.Atoi(params.Cursor)
		if err != nil {
			return &model.FeedPage{Stories: []model.StoryCard{}, HasMore: false}, nil
		}
		page = parsed
	}

	start := page * limit
	if start < 0 || start >= len(filtered) {
		return &model.FeedPage{Stories: []model.StoryCard{}, HasMore: false}, nil
	}

	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	out := &model.FeedPage{
		Stories: append([]model.StoryCard(nil), filtered[start:end]...),
		HasMore: end < len(filtered),
	}
	if out.HasMore {
		out.NextCursor = strconv.Itoa(page + 1)
	}
	return out, nil
}

// GetStory returns the parsed story with the given ID, or a 404 APIError.
func (r *RSSSource) GetStory(_ context.Context, storyID string) (*model.StoryCard, error) {
	for _, s := range r.stories {
		if s.ID == storyID {
			story := s
			return &story, nil
		}
	}
	return nil, &APIError{
		Message:    fmt.Sprintf("story %s not found", storyID),
		Code:       "NOT_FOUND",
		StatusCode: http.StatusNotFound,
	}
}

func (r *RSSSource) readOnly(op string) error {
	return &APIError{
		Message:    fmt.Sprintf("rss source does not support %s", op),
		Code:       "READ_ONLY",
		StatusCode: http.StatusMethodNotAllowed,
	}
}

// BookmarkStory is unsupported on RSS sources.
func (r *RSSSource) BookmarkStory(context.Context, string) error {
	return r.readOnly("bookmark")
}

// UnbookmarkStory is unsupported on RSS sources.
func (r *RSSSource) UnbookmarkStory(context.Context, string) error {
	return r.readOnly("unbookmark")
}

// ShareStory is unsupported on RSS sources.
func (r *RSSSource) ShareStory(context.Context, string, string) error {
	return r.readOnly("share")
}
