package remote

import (
	"context"
	"testing"

	"github.com/newsgenie/storycache/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_GetFeed_ByPage(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	first, err := m.GetFeed(ctx, model.FeedParams{Page: 0, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, first.Stories, 5)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextCursor)

	second, err := m.GetFeed(ctx, model.FeedParams{Page: 1, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, second.Stories, 5)
	assert.NotEqual(t, first.Stories[0].ID, second.Stories[0].ID)
}

func TestMock_GetFeed_ByCursor(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	var seen []string
	page, err := m.GetFeed(ctx, model.FeedParams{Limit: 5})
	require.NoError(t, err)

	prevCursor := ""
	for {
		for _, s := range page.Stories {
			seen = append(seen, s.ID)
		}
		if page.NextCursor != "" {
			// Tokens are issued monotonically.
			assert.Greater(t, page.NextCursor, prevCursor)
			prevCursor = page.NextCursor
		}
		if !page.HasMore {
			break
		}
		page, err = m.GetFeed(ctx, model.FeedParams{Cursor: page.NextCursor, Limit: 5})
		require.NoError(t, err)
	}

	assert.Len(t, seen, len(SampleStories()), "Cursor walk should cover the corpus exactly once")
}

func TestMock_GetFeed_StaleCursor(t *testing.T) {
	m := NewMock()

	page, err := m.GetFeed(context.Background(), model.FeedParams{Cursor: "c-foreign"})
	require.NoError(t, err, "Unknown cursor yields an empty page, not an error")
	assert.Empty(t, page.Stories)
	assert.False(t, page.HasMore)
}

func TestMock_GetFeed_BeyondEnd(t *testing.T) {
	m := NewMock()

	page, err := m.GetFeed(context.Background(), model.FeedParams{Page: 99, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Stories)
	assert.False(t, page.HasMore)
}

func TestMock_GetFeed_NegativePage(t *testing.T) {
	m := NewMock()

	page, err := m.GetFeed(context.Background(), model.FeedParams{Page: -1, Limit: 10})
	require.NoError(t, err, "Negative page yields an empty page, not an error")
	assert.Empty(t, page.Stories)
	assert.False(t, page.HasMore)
}

func TestMock_GetFeed_Filters(t *testing.T) {
	m := NewMock()

	page, err := m.GetFeed(context.Background(), model.FeedParams{
		Limit:      50,
		Categories: []model.Category{model.CategoryBusiness},
	})
	require.NoError(t, err)
	require.NotEmpty(t, page.Stories)
	for _, s := range page.Stories {
		assert.Equal(t, model.CategoryBusiness, s.Category)
	}

	page, err = m.GetFeed(context.Background(), model.FeedParams{
		Limit:     50,
		Languages: []model.Language{model.LangHindi},
	})
	require.NoError(t, err)
	require.NotEmpty(t, page.Stories)
	for _, s := range page.Stories {
		assert.Equal(t, model.LangHindi, s.Language)
	}
}

func TestMock_GetStory(t *testing.T) {
	m := NewMock()

	story, err := m.GetStory(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "3", story.ID)

	_, err = m.GetStory(context.Background(), "no-such-story")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestMock_Bookmarks(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	assert.False(t, m.Bookmarked("1"))

	require.NoError(t, m.BookmarkStory(ctx, "1"))
	assert.True(t, m.Bookmarked("1"))

	// Idempotent both ways.
	require.NoError(t, m.BookmarkStory(ctx, "1"))
	assert.True(t, m.Bookmarked("1"))

	require.NoError(t, m.UnbookmarkStory(ctx, "1"))
	assert.False(t, m.Bookmarked("1"))
	require.NoError(t, m.UnbookmarkStory(ctx, "1"))
}

func TestMock_Shares(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	require.NoError(t, m.ShareStory(ctx, "2", "whatsapp"))
	require.NoError(t, m.ShareStory(ctx, "2", "twitter"))
	assert.Equal(t, 2, m.ShareCount("2"))
	assert.Equal(t, 0, m.ShareCount("1"))
}
