package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newsgenie/storycache/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okEnvelope(t *testing.T, w http.ResponseWriter, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	err = json.NewEncoder(w).Encode(map[string]any{
		"data":    json.RawMessage(raw),
		"success": true,
	})
	require.NoError(t, err)
}

func TestClient_GetFeed(t *testing.T) {
	var gotQuery map[string][]string
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mobile/feed", r.URL.Path)
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		okEnvelope(t, w, model.FeedPage{
			Stories:    []model.StoryCard{{ID: "1", Title: "First"}},
			NextCursor: "c000001",
			HasMore:    true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTokenProvider(func() string { return "tok-123" }))

	page, err := client.GetFeed(context.Background(), model.FeedParams{
		Page:       2,
		Limit:      10,
		Categories: []model.Category{model.CategoryBusiness, model.CategorySports},
		Languages:  []model.Language{model.LangEnglish},
	})
	require.NoError(t, err)

	require.Len(t, page.Stories, 1)
	assert.Equal(t, "1", page.Stories[0].ID)
	assert.Equal(t, "c000001", page.NextCursor)
	assert.True(t, page.HasMore)

	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"10"}, gotQuery["limit"])
	assert.Equal(t, []string{"business", "sports"}, gotQuery["categories"])
	assert.Equal(t, []string{"en"}, gotQuery["languages"])
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClient_GetFeed_ForwardsCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c000042", r.URL.Query().Get("cursor"))
		okEnvelope(t, w, model.FeedPage{Stories: []model.StoryCard{}, HasMore: false})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	page, err := client.GetFeed(context.Background(), model.FeedParams{Cursor: "c000042"})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
}

func TestClient_GetStory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stories/abc", r.URL.Path)
		okEnvelope(t, w, model.StoryCard{ID: "abc", Title: "A Story"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	story, err := client.GetStory(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", story.ID)
	assert.Equal(t, "A Story", story.Title)
}

func TestClient_StructuredError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "story missing not found",
			"code":    "NOT_FOUND",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetStory(context.Background(), "missing")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "Should surface an *APIError")
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.True(t, IsNotFound(err))
}

func TestClient_PlainHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetStory(context.Background(), "x")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "HTTP_ERROR", apiErr.Code)
	assert.False(t, IsNotFound(err))
}

func TestClient_EnvelopeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"message": "feed temporarily unavailable",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetFeed(context.Background(), model.FeedParams{})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "REQUEST_FAILED", apiErr.Code)
	assert.Equal(t, "feed temporarily unavailable", apiErr.Message)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		okEnvelope(t, w, model.FeedPage{})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(20*time.Millisecond))
	_, err := client.GetFeed(context.Background(), model.FeedParams{})
	assert.Error(t, err, "Timeout should surface as a fetch failure, not a hang")
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		okEnvelope(t, w, model.FeedPage{})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(server.URL)
	_, err := client.GetFeed(ctx, model.FeedParams{})
	assert.Error(t, err)
}

func TestClient_Mutations(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody = nil
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&gotBody)
		}
		okEnvelope(t, w, nil)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	require.NoError(t, client.BookmarkStory(ctx, "s1"))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/stories/s1/bookmark", gotPath)

	require.NoError(t, client.UnbookmarkStory(ctx, "s1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/stories/s1/bookmark", gotPath)

	require.NoError(t, client.ShareStory(ctx, "s1", "whatsapp"))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/stories/s1/share", gotPath)
	assert.Equal(t, "whatsapp", gotBody["platform"])
}
