package remote

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/newsgenie/storycache/model"
)

// Mock is a deterministic in-process Source used while the live API is
// not wired up, and in tests. Cursors are opaque tokens issued
// monotonically; a token the mock no longer recognizes yields an empty
// page rather than an error.
type Mock struct {
	mu        sync.Mutex
	stories   []model.StoryCard
	bookmarks map[string]bool
	shares    map[string]int
	cursors   map[string]int // token -> next offset
	cursorSeq int
}

// NewMock creates a Mock serving the given stories, or the built-in
// sample corpus when none are supplied.
func NewMock(stories ...model.StoryCard) *Mock {
	if len(stories) == 0 {
		stories = SampleStories()
	}
	return &Mock{
		stories:   stories,
		bookmarks: make(map[string]bool),
		shares:    make(map[string]int),
		cursors:   make(map[string]int),
	}
}

// GetFeed pages through the corpus, applying category/language filters.
func (m *Mock) GetFeed(_ context.Context, params model.FeedParams) (*model.FeedPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	filtered := filterStories(m.stories, params)

	var start int
	if params.Cursor != "" {
		offset, ok := m.cursors[params.Cursor]
		if !ok {
			// Stale or foreign cursor: empty page, not an error.
			return &model.FeedPage{Stories: []model.StoryCard{}, HasMore: false}, nil
		}
		start = offset
	} else {
		start = params.Page * limit
	}

	if start < 0 || start >= len(filtered) {
		return &model.FeedPage{Stories: []model.StoryCard{}, HasMore: false}, nil
	}

	end := start + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	page := &model.FeedPage{
		Stories: append([]model.StoryCard(nil), filtered[start:end]...),
		HasMore: end < len(filtered),
	}
	if page.HasMore {
		m.cursorSeq++
		token := fmt.Sprintf("c%06d", m.cursorSeq)
		m.cursors[token] = end
		page.NextCursor = token
	}
	return page, nil
}

// GetStory returns the story with the given ID, or a 404 APIError.
func (m *Mock) GetStory(_ context.Context, storyID string) (*model.StoryCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.stories {
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

// BookmarkStory records a bookmark. Idempotent.
func (m *Mock) BookmarkStory(_ context.Context, storyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookmarks[storyID] = true
	return nil
}

// UnbookmarkStory removes a bookmark. Idempotent.
func (m *Mock) UnbookmarkStory(_ context.Context, storyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookmarks, storyID)
	return nil
}

// ShareStory counts a share event.
func (m *Mock) ShareStory(_ context.Context, storyID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shares[storyID]++
	return nil
}

// Bookmarked reports whether the mock has a server-side bookmark for
// the story.
func (m *Mock) Bookmarked(storyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bookmarks[storyID]
}

// ShareCount returns how many shares were recorded for the story.
func (m *Mock) ShareCount(storyID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shares[storyID]
}

// SampleStories returns the built-in development corpus.
func SampleStories() []model.StoryCard {
	published := func(hoursAgo int) string {
		return time.Now().Add(-time.Duration(hoursAgo) * time.Hour).UTC().Format(time.RFC3339)
	}

	return []model.StoryCard{
		{
			ID:          "1",
			Title:       "India's GDP Growth Surpasses Expectations in Q3",
			Summary:     "Indian economy shows robust growth at 7.8%, driven by strong consumer demand and infrastructure investments.",
			Category:    model.CategoryBusiness,
			Source:      "Economic Times",
			ImageURL:    "https://images.unsplash.com/photo-1554224155-6726b3ff858f",
			AudioURL:    "https://example.com/audio/1.mp3",
			PublishedAt: published(2),
			ReadTime:    3,
			Language:    model.LangEnglish,
		},
		{
			ID:          "2",
			Title:       "ISRO Successfully Launches Chandrayaan-4 Mission",
			Summary:     "India's space agency achieves another milestone with the successful launch of its fourth lunar mission.",
			Category:    model.CategoryScience,
			Source:      "The Hindu",
			ImageURL:    "https://images.unsplash.com/photo-1516849841032-87cbac4d88f7",
			AudioURL:    "https://example.com/audio/2.mp3",
			PublishedAt: published(5),
			ReadTime:    4,
			Language:    model.LangEnglish,
		},
		{
			ID:          "3",
			Title:       "Indian Cricket Team Wins Test Series Against Australia",
			Summary:     "Historic victory as India defeats Australia 3-1 in the Border-Gavaskar Trophy.",
			Category:    model.CategorySports,
			Source:      "Cricbuzz",
			ImageURL:    "https://images.unsplash.com/photo-1531415074968-036ba1b575da",
			AudioURL:    "https://example.com/audio/3.mp3",
			PublishedAt: published(8),
			ReadTime:    2,
			Language:    model.LangEnglish,
		},
		{
			ID:          "4",
			Title:       "New Education Policy Shows Promising Results",
			Summary:     "Implementation of NEP 2020 brings positive changes in school curriculum and student outcomes.",
			Category:    model.CategoryPolitics,
			Source:      "India Today",
			ImageURL:    "https://images.unsplash.com/photo-1503676260728-1c00da094a0b",
			PublishedAt: published(12),
			ReadTime:    5,
			Language:    model.LangEnglish,
		},
		{
			ID:          "5",
			Title:       "Bollywood Star Announces New Film Project",
			Summary:     "Leading actor collaborates with acclaimed director for an ambitious period drama.",
			Category:    model.CategoryEntertainment,
			Source:      "Filmfare",
			ImageURL:    "https://images.unsplash.com/photo-1478720568477-152d9b164e26",
			AudioURL:    "https://example.com/audio/5.mp3",
			PublishedAt: published(24),
			ReadTime:    3,
			Language:    model.LangEnglish,
		},
		{
			ID:          "6",
			Title:       "Tech Startups Raise Record Funding This Quarter",
			Summary:     "Indian startup ecosystem attracts $4.2 billion in venture capital across fintech and SaaS.",
			Category:    model.CategoryTechnology,
			Source:      "YourStory",
			ImageURL:    "https://images.unsplash.com/photo-1559136555-9303baea8ebd",
			AudioURL:    "https://example.com/audio/6.mp3",
			PublishedAt: published(26),
			ReadTime:    4,
			Language:    model.LangEnglish,
		},
		{
			ID:          "7",
			Title:       "Monsoon Arrives Early Across Western Coast",
			Summary:     "IMD reports above-average rainfall expected this season, bringing relief to farmers.",
			Category:    model.CategoryWorld,
			Source:      "NDTV",
			ImageURL:    "https://images.unsplash.com/photo-1534274988757-a28bf1a57c17",
			PublishedAt: published(30),
			ReadTime:    2,
			Language:    model.LangEnglish,
		},
		{
			ID:          "8",
			Title:       "नई स्वास्थ्य योजना से करोड़ों को लाभ",
			Summary:     "सरकार की नई स्वास्थ्य बीमा योजना के तहत ग्रामीण परिवारों को मुफ्त इलाज मिलेगा।",
			Category:    model.CategoryHealth,
			Source:      "Dainik Bhaskar",
			ImageURL:    "https://images.unsplash.com/photo-1576091160399-112ba8d25d1d",
			AudioURL:    "https://example.com/audio/8.mp3",
			PublishedAt: published(32),
			ReadTime:    3,
			Language:    model.LangHindi,
		},
		{
			ID:          "9",
			Title:       "AI Research Lab Opens in Bengaluru",
			Summary:     "Global technology firm launches its largest AI research facility outside the US.",
			Category:    model.CategoryTechnology,
			Source:      "Mint",
			ImageURL:    "https://images.unsplash.com/photo-1485827404703-89b55fcc595e",
			PublishedAt: published(40),
			ReadTime:    4,
			Language:    model.LangEnglish,
		},
		{
			ID:          "10",
			Title:       "Rupee Strengthens Against Dollar on Export Surge",
			Summary:     "Strong services exports and FII inflows push the rupee to a six-month high.",
			Category:    model.CategoryBusiness,
			Source:      "Business Standard",
			ImageURL:    "https://images.unsplash.com/photo-1611974789855-9c2a0a7236a3",
			AudioURL:    "https://example.com/audio/10.mp3",
			PublishedAt: published(48),
			ReadTime:    3,
			Language:    model.LangEnglish,
		},
		{
			ID:          "11",
			Title:       "தமிழ் சினிமாவில் புதிய அத்தியாயம்",
			Summary:     "பிரபல இயக்குனரின் புதிய படம் உலக அளவில் வரவேற்பு பெறுகிறது.",
			Category:    model.CategoryEntertainment,
			Source:      "Dinamalar",
			ImageURL:    "https://images.unsplash.com/photo-1489599849927-2ee91cede3ba",
			PublishedAt: published(52),
			ReadTime:    2,
			Language:    model.LangTamil,
		},
		{
			ID:          "12",
			Title:       "Hockey Team Qualifies for World Cup Semifinals",
			Summary:     "A late winner seals the quarterfinal and a first semifinal berth in twelve years.",
			Category:    model.CategorySports,
			Source:      "The Hindu",
			ImageURL:    "https://images.unsplash.com/photo-1580748141549-71748dbe0bdc",
			AudioURL:    "https://example.com/audio/12.mp3",
			PublishedAt: published(60),
			ReadTime:    2,
			Language:    model.LangEnglish,
		},
	}
}
