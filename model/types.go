// Package model defines the core data structures for storycache.
package model

import (
	"errors"
	"time"
)

// Category is one of the fixed topic tags a story can carry.
type Category string

const (
	CategoryPolitics      Category = "politics"
	CategoryBusiness      Category = "business"
	CategoryTechnology    Category = "technology"
	CategorySports        Category = "sports"
	CategoryEntertainment Category = "entertainment"
	CategoryScience       Category = "science"
	CategoryHealth        Category = "health"
	CategoryWorld         Category = "world"
)

// Categories lists every known topic tag.
var Categories = []Category{
	CategoryPolitics,
	CategoryBusiness,
	CategoryTechnology,
	CategorySports,
	CategoryEntertainment,
	CategoryScience,
	CategoryHealth,
	CategoryWorld,
}

// Language is an ISO-639-1 code for a story's language.
type Language string

const (
	LangEnglish   Language = "en"
	LangHindi     Language = "hi"
	LangTamil     Language = "ta"
	LangTelugu    Language = "te"
	LangBengali   Language = "bn"
	LangMarathi   Language = "mr"
	LangGujarati  Language = "gu"
	LangKannada   Language = "kn"
	LangMalayalam Language = "ml"
	LangPunjabi   Language = "pa"
)

// StoryCard is the compact feed record served to the reading views.
// Cards are immutable once cached; a newer card for the same ID fully
// replaces the older one.
type StoryCard struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Category    Category `json:"category"`
	Source      string   `json:"source"`
	ImageURL    string   `json:"imageUrl"`
	AudioURL    string   `json:"audioUrl,omitempty"`
	PublishedAt string   `json:"publishedAt"` // ISO-8601
	ReadTime    int      `json:"readTime"`    // estimated minutes
	Language    Language `json:"language"`
}

// Validate checks if the story has required fields.
func (s *StoryCard) Validate() error {
	if s.ID == "" {
		return errors.New("story ID is required")
	}
	if s.Title == "" {
		return errors.New("story title is required")
	}
	return nil
}

// PublishedTime parses the story's ISO-8601 publish timestamp.
func (s *StoryCard) PublishedTime() (time.Time, error) {
	return time.Parse(time.RFC3339, s.PublishedAt)
}

// HasAudio reports whether the story carries a narration audio URL.
func (s *StoryCard) HasAudio() bool {
	return s.AudioURL != ""
}

// CachedRecord wraps a StoryCard with its cache lifetime. Timestamps are
// epoch milliseconds; ExpiresAt is always strictly after CachedAt.
type CachedRecord struct {
	Story     StoryCard `json:"story"`
	CachedAt  int64     `json:"cachedAt"`
	ExpiresAt int64     `json:"expiresAt"`
}

// Live reports whether the record is still valid at the given time.
func (r *CachedRecord) Live(now time.Time) bool {
	return now.UnixMilli() < r.ExpiresAt
}

// BookmarkMark records that a story was bookmarked. At most one mark
// exists per story; re-bookmarking replaces the timestamp.
type BookmarkMark struct {
	StoryID      string `json:"storyId"`
	BookmarkedAt int64  `json:"bookmarkedAt"` // epoch millis
}

// FeedParams selects a page of the remote feed.
type FeedParams struct {
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Categories []Category `json:"categories,omitempty"`
	Languages  []Language `json:"languages,omitempty"`
	Cursor     string     `json:"cursor,omitempty"`
}

// FeedPage is one page of the remote feed. NextCursor is an opaque token
// issued by the remote source; callers forward it without interpreting it.
type FeedPage struct {
	Stories    []StoryCard `json:"stories"`
	NextCursor string      `json:"nextCursor,omitempty"`
	HasMore    bool        `json:"hasMore"`
}

// Window returns the half-open index range [start, end) of the prefetch
// window for the item at current in a list of the given length. The range
// is empty (start == end) when nothing is ahead of the current position.
func Window(current, size, length int) (start, end int) {
	start = current + 1
	if start < 0 {
		start = 0
	}
	end = start + size
	if end > length {
		end = length
	}
	if start > end {
		start = end
	}
	return start, end
}
